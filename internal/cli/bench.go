package cli

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/annkit"
	"github.com/hupe1980/annkit/index"
)

var benchOpts struct {
	algorithm   string
	elementType string
	metric      string
	rows        int
	dim         int
	queries     int
	k           int
	nlist       int
	nprobe      int
	seed        int64
	save        string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Build and search an index on synthetic data",
	Long: `Builds the selected algorithm on uniformly random vectors, runs a batch
of queries and reports build time, query throughput and recall against an
exact FLAT search. With --save the built index is persisted through the
configured blob and catalog backends.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	f := benchCmd.Flags()
	f.StringVarP(&benchOpts.algorithm, "algorithm", "a", "IVF_FLAT", "registered algorithm name")
	f.StringVarP(&benchOpts.elementType, "type", "t", "fp32", "element type (fp32, fp16, bf16, int8, binary)")
	f.StringVar(&benchOpts.metric, "metric", "", "metric type (L2, IP, COSINE, HAMMING)")
	f.IntVarP(&benchOpts.rows, "rows", "n", 10000, "number of indexed vectors")
	f.IntVarP(&benchOpts.dim, "dim", "d", 64, "vector dimension")
	f.IntVarP(&benchOpts.queries, "queries", "q", 100, "number of queries")
	f.IntVarP(&benchOpts.k, "k", "k", 10, "neighbors per query")
	f.IntVar(&benchOpts.nlist, "nlist", 0, "IVF list count")
	f.IntVar(&benchOpts.nprobe, "nprobe", 0, "IVF lists probed per query")
	f.Int64Var(&benchOpts.seed, "seed", 42, "random seed")
	f.StringVar(&benchOpts.save, "save", "", "persist the built index under this name")
	rootCmd.AddCommand(benchCmd)
}

type benchReport struct {
	key       annkit.Key
	build     time.Duration
	search    time.Duration
	queries   int
	recall    float64
	saved     string
	savedSize int
}

func runBench(cmd *cobra.Command, _ []string) error {
	et, err := index.ParseElementType(benchOpts.elementType)
	if err != nil {
		return err
	}
	key := annkit.Key{Name: strings.ToUpper(benchOpts.algorithm), ElementType: et}

	report, err := bench(cmd.Context(), annkit.Default(), key)
	if err != nil {
		return err
	}

	cmd.Printf("algorithm:  %s\n", report.key)
	cmd.Printf("build:      %s\n", report.build.Round(time.Microsecond))
	cmd.Printf("search:     %s (%.0f qps)\n", report.search.Round(time.Microsecond), float64(report.queries)/report.search.Seconds())
	cmd.Printf("recall@%d:  %.4f\n", benchOpts.k, report.recall)
	if report.saved != "" {
		cmd.Printf("saved:      %s (%d vectors)\n", report.saved, report.savedSize)
	}
	return nil
}

func bench(ctx context.Context, r *annkit.Registry, key annkit.Key) (benchReport, error) {
	report := benchReport{key: key, queries: benchOpts.queries}

	data, queries, err := syntheticData(key.ElementType)
	if err != nil {
		return report, err
	}
	cfg := index.Config{Metric: benchOpts.metric, NList: benchOpts.nlist, NProbe: benchOpts.nprobe, Seed: benchOpts.seed}

	node, err := r.CreateIndex(key.Name, key.ElementType, index.CurrentVersion)
	if err != nil {
		return report, err
	}
	defer node.Close()

	start := time.Now()
	if err := node.Build(ctx, data, cfg); err != nil {
		return report, fmt.Errorf("build %s: %w", key, err)
	}
	report.build = time.Since(start)

	start = time.Now()
	got, err := node.Search(ctx, queries, benchOpts.k, cfg, nil)
	if err != nil {
		return report, fmt.Errorf("search %s: %w", key, err)
	}
	report.search = time.Since(start)

	report.recall, err = exactRecall(ctx, r, key.ElementType, data, queries, cfg, got)
	if err != nil {
		return report, err
	}

	if benchOpts.save != "" {
		logger, err := annkit.NewLoggerFromConfig(rootCmd.ErrOrStderr(), appCfg)
		if err != nil {
			return report, err
		}
		store, err := openPersist(ctx, appCfg, logger)
		if err != nil {
			return report, err
		}
		rec, err := store.Save(ctx, r, node, key, benchOpts.save)
		if err != nil {
			return report, err
		}
		report.saved, report.savedSize = rec.Blob, rec.Count
	}
	return report, nil
}

// exactRecall compares got against a FLAT index over the same data.
func exactRecall(ctx context.Context, r *annkit.Registry, et index.ElementType, data, queries *index.Dataset, cfg index.Config, got *index.Neighbors) (float64, error) {
	name := "FLAT"
	if et == index.Binary {
		name = "BIN_FLAT"
	}
	exact, err := r.CreateIndex(name, et, index.CurrentVersion)
	if err != nil {
		return 0, err
	}
	defer exact.Close()

	if err := exact.Build(ctx, data, cfg); err != nil {
		return 0, fmt.Errorf("build exact: %w", err)
	}
	truth, err := exact.Search(ctx, queries, benchOpts.k, cfg, nil)
	if err != nil {
		return 0, fmt.Errorf("search exact: %w", err)
	}

	var hits, total int
	for q := 0; q < truth.Queries(); q++ {
		want, _ := truth.Row(q)
		ids, _ := got.Row(q)
		set := make(map[int64]struct{}, len(want))
		for _, id := range want {
			if id >= 0 {
				set[id] = struct{}{}
			}
		}
		total += len(set)
		for _, id := range ids {
			if _, ok := set[id]; ok {
				hits++
			}
		}
	}
	if total == 0 {
		return 1, nil
	}
	return float64(hits) / float64(total), nil
}

func syntheticData(et index.ElementType) (data, queries *index.Dataset, err error) {
	rng := rand.New(rand.NewSource(benchOpts.seed))
	dim := benchOpts.dim

	if et == index.Binary {
		codes := make([]byte, (benchOpts.rows+benchOpts.queries)*dim/8)
		rng.Read(codes)
		split := benchOpts.rows * dim / 8
		if data, err = index.NewBinary(dim, codes[:split]); err != nil {
			return nil, nil, err
		}
		queries, err = index.NewBinary(dim, codes[split:])
		return data, queries, err
	}

	values := make([]float32, (benchOpts.rows+benchOpts.queries)*dim)
	for i := range values {
		values[i] = rng.Float32()
		if et == index.Int8 {
			values[i] = values[i]*254 - 127
		}
	}
	split := benchOpts.rows * dim
	if data, err = index.Convert(et, dim, values[:split]); err != nil {
		return nil, nil, err
	}
	queries, err = index.Convert(et, dim, values[split:])
	return data, queries, err
}
