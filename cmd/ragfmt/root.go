package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/hupe1980/ragfmt"
	"github.com/hupe1980/ragfmt/internal/config"
	"github.com/hupe1980/ragfmt/internal/version"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	colorMode  string
	logLevel   string
	logFormat  string
	quiet      bool

	cfg    config.Config
	logger *ragfmt.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "ragfmt",
		Short:         "Normalize retrieval results into response envelopes",
		Long:          `ragfmt converts raw retrieval output (entities, relations, chunks, references) into the canonical response envelope.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to configuration file (default ./"+config.DefaultFile+" if present)")
	flags.StringVar(&a.colorMode, "color", "auto", "colorize output (auto|on|off)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (text|json)")
	flags.BoolVar(&a.quiet, "quiet", false, "suppress non-essential output")

	cmd.AddCommand(newNormalizeCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newArchiveCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.Log.Format, level)

	switch a.colorMode {
	case "auto":
		color.NoColor = !isTerminal(cmd.ErrOrStderr())
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color %q (want auto|on|off)", a.colorMode)
	}
	return nil
}

func newLogger(w io.Writer, format string, level slog.Level) *ragfmt.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return ragfmt.NewLogger(slog.NewJSONHandler(w, opts))
	}
	return ragfmt.NewLogger(slog.NewTextHandler(w, opts))
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
