package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/annkit"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List indexes saved in the configured catalog",
	Args:  cobra.NoArgs,
	RunE:  runSaved,
}

var savedRmCmd = &cobra.Command{
	Use:   "rm [name]",
	Short: "Delete a saved index and its blob",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedRm,
}

func init() {
	savedCmd.AddCommand(savedRmCmd)
	rootCmd.AddCommand(savedCmd)
}

func runSaved(cmd *cobra.Command, _ []string) error {
	logger, err := annkit.NewLoggerFromConfig(cmd.ErrOrStderr(), appCfg)
	if err != nil {
		return err
	}
	store, err := openPersist(cmd.Context(), appCfg, logger)
	if err != nil {
		return err
	}
	recs, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		cmd.Println("No saved indexes.")
		return nil
	}
	for _, rec := range recs {
		cmd.Printf("%-20s %s/%s v%d dim=%d count=%d rev=%d %s\n",
			rec.Name, rec.Algorithm, rec.ElementType, rec.Version, rec.Dim, rec.Count, rec.Revision, rec.Blob)
	}
	return nil
}

func runSavedRm(cmd *cobra.Command, args []string) error {
	logger, err := annkit.NewLoggerFromConfig(cmd.ErrOrStderr(), appCfg)
	if err != nil {
		return err
	}
	store, err := openPersist(cmd.Context(), appCfg, logger)
	if err != nil {
		return err
	}
	return store.Delete(cmd.Context(), args[0])
}
