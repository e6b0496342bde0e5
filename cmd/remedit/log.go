package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/five82/remedit/internal/app"
	"github.com/five82/remedit/internal/config"
	"github.com/five82/remedit/internal/logtail"
)

func newLogCmd(opts *app.Options) *cobra.Command {
	var (
		lines int
		level string
		color string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent entries from the interactive session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var minLevel zapcore.Level
			if err := minLevel.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
				return fmt.Errorf("invalid --level %q: %w", level, err)
			}

			useColor, err := colorEnabled(color)
			if err != nil {
				return err
			}

			raw, err := logtail.Read(cfg.LogFile, lines)
			if err != nil {
				return err
			}
			f := logtail.Formatter{MinLevel: minLevel, Color: useColor}
			out := cmd.OutOrStdout()
			for _, line := range f.FormatLines(raw) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of lines to read (0 reads the whole file)")
	cmd.Flags().StringVar(&level, "level", "debug", "minimum level to show")
	cmd.Flags().StringVar(&color, "color", "auto", "colorize output: auto, always or never")
	return cmd
}

func colorEnabled(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "auto", "":
		return isatty.IsTerminal(os.Stdout.Fd()), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color %q: want auto, always or never", mode)
	}
}
