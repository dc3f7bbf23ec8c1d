// Package cli implements crediface-cli, which runs the risk engine in-process
// against the configured tenant store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/credicefi/crediface/internal/bootstrap"
	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/infrastructure/monitoring"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the command tree. A fresh tree is returned on every call so
// tests can run commands in isolation.
// NewRootCmd 构建命令树。
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "crediface-cli",
		Short: "Assess credit applicants and inspect tenants from the command line.",
		Long: `crediface-cli runs the multi-tenant risk engine in-process. It reads the same
configuration as the server, so assessments use the server's tenant store and
are written to its audit sinks.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level to stderr")

	cmd.AddCommand(
		newAssessCmd(opts),
		newInstitutionsCmd(opts),
		newDataCheckCmd(opts),
		newSeedCmd(opts),
	)
	return cmd
}

// Execute is the main entry point for the CLI application.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withContainer loads the configuration, wires the engine, runs fn and releases
// everything, draining pending audit entries.
func withContainer(ctx context.Context, opts *rootOptions, fn func(*bootstrap.Container) error) (err error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	// one-shot process: no file watching, no throttling
	cfg.Storage.Watch = false
	cfg.RateLimit.Enabled = false

	cfg.Log.OutputPath = "stderr"
	if opts.verbose {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	c, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
