package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/icecraft-rep/internal/config"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/logging"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/metrics"
	"github.com/robert-at-pretension-io/icecraft-rep/internal/pipeline"
)

// errLintFailed is returned when lint found error level violations.
var errLintFailed = errors.New("lint found errors")

// app is the state shared by the subcommands of one invocation.
type app struct {
	configPath  string
	root        string
	logLevel    string
	logFormat   string
	metricsPath string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "icerep",
		Short: "Build and decode genotype representations for iCE40 tiles",
		Long: `icerep turns experiment requests into representations: the genes,
constant bits and derived data an evolutionary search needs to write
chromosomes into an iCE40 configuration.

Configuration is read from:
  1. ./icerep.json
  2. ./.icerep.json
  3. <root>/icerep.json
  4. ~/.config/icerep/config.json

Run 'icerep init' to create a default configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (default: search order above)")
	flags.StringVar(&a.root, "root", ".", "project root for request globs, cache and timing")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&a.metricsPath, "metrics", "", "write prometheus metrics to this file on exit")

	cmd.AddCommand(
		newInitCmd(),
		newGenerateCmd(a),
		newDecodeCmd(a),
		newLintCmd(a),
		newReportCmd(a),
		newChipDBCmd(a),
		newCacheCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "init" {
		return nil
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
		if err != nil {
			return fmt.Errorf("loading config %s: %w", a.configPath, err)
		}
	} else {
		a.cfg, err = config.Load(a.root)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Could not load config: %v (using defaults)\n", err)
			a.cfg = config.DefaultConfig()
		}
	}

	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}
	a.logger, err = logging.New(logging.Config{
		Level:  a.cfg.Log.Level,
		Format: a.cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.metrics = metrics.NewCollector()
	return nil
}

func (a *app) newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	return pipeline.New(cmd.Context(), a.cfg, a.root,
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	)
}

func (a *app) writeMetrics() error {
	if a.metricsPath == "" || a.metrics == nil {
		return nil
	}
	f, err := os.Create(a.metricsPath)
	if err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	defer func() { _ = f.Close() }()
	return a.metrics.WriteText(f)
}

// exitCode maps errors to process exit codes: 2 for bad requests, 3 for
// lint errors and 1 for everything else.
func exitCode(err error) int {
	switch {
	case pipeline.IsInputError(err):
		return 2
	case errors.Is(err, errLintFailed):
		return 3
	default:
		return 1
	}
}
