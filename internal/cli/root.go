// Package cli implements the annkit command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/annkit"
	"github.com/hupe1980/annkit/config"
	"github.com/hupe1980/annkit/metrics"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configFile  string
	envFiles    []string
	metricsAddr string

	appCfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "annkit",
	Short: "Inspect and benchmark the annkit algorithm registry",
	Long: `annkit registers the built-in vector index algorithms and lets you
list them, benchmark them on synthetic data and manage saved indexes.

Configuration is read from --config, .env files and ANNKIT_* variables.`,
	SilenceUsage: true,
}

func init() {
	// Assigned here rather than in the literal to break the
	// rootCmd -> setup -> serveMetrics -> rootCmd initialization cycle.
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files to load")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(config.LoadOptions{File: configFile, EnvFiles: envFiles})
	if err != nil {
		return err
	}
	appCfg = loaded

	var opts []annkit.Option
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, annkit.WithMetrics(metrics.NewPrometheus(reg)))
		serveMetrics(cmd.Context(), reg)
	}
	return annkit.Init(appCfg, opts...)
}

func serveMetrics(ctx context.Context, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rootCmd.PrintErrln("metrics server:", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("annkit: %w", err)
	}
	return nil
}
