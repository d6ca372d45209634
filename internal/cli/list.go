package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/annkit"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered algorithms",
	Long: `Lists every registered (algorithm, element type) key in sorted order,
together with its concurrency limit and slot policy.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}

type listEntry struct {
	Algorithm   string `json:"algorithm"`
	ElementType string `json:"element_type"`
	Limit       int    `json:"limit"`
	Policy      string `json:"policy"`
}

func runList(cmd *cobra.Command, _ []string) error {
	r := annkit.Default()

	var entries []listEntry
	for key := range r.ListRegistered() {
		entry, err := r.Lookup(key.Name, key.ElementType)
		if err != nil {
			return err
		}
		entries = append(entries, listEntry{
			Algorithm:   key.Name,
			ElementType: key.ElementType.String(),
			Limit:       entry.Limit(),
			Policy:      entry.Policy().String(),
		})
	}

	if listJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, e := range entries {
		limit := "unbounded"
		if e.Limit > 0 {
			limit = fmt.Sprintf("limit=%d policy=%s", e.Limit, e.Policy)
		}
		cmd.Printf("%-20s %-6s %s\n", e.Algorithm, e.ElementType, limit)
	}
	return nil
}
