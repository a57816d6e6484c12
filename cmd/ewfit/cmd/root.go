// Package cmd implements the ewfit commands.
package cmd

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-spectro/internal/config"
	"github.com/cwbudde/algo-spectro/internal/logging"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string

	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "ewfit",
		Short: "Measure equivalent widths of stellar absorption lines",
		Long: `ewfit fits Gaussian absorption profiles to transitions of a line list
in a one-dimensional spectrum and reports their equivalent widths.

Settings are read from an optional YAML file (--config) and the
EWFIT_LOG_LEVEL, EWFIT_WORKERS and EWFIT_DB environment variables;
command line flags take precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.logCloser != nil {
				return opts.logCloser.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")

	root.AddCommand(newMeasureCmd(opts))
	root.AddCommand(newSpeciesCmd())
	root.AddCommand(newFitsCmd(opts))
	return root
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.LoadWithEnv(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if cfg.Log.Output == "stderr" {
		level, err := zerolog.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		o.logger = logging.NewWriter(cmd.ErrOrStderr(), level, cfg.Log.Format, cfg.Log.TimeFormat)
	} else {
		o.logger, o.logCloser, err = logging.New(cfg.Log)
		if err != nil {
			return err
		}
	}
	o.cfg = cfg
	return nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
