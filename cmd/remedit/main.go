package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/remedit/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "remedit: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "remedit",
		Short:         "Browse and edit programs hosted on remote REST endpoints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/remedit/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "preferences file (default ~/.config/remedit/prefs.toml)")
	flags.StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load (default .env)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newEndpointCmd(&opts),
		newListCmd(&opts),
		newCatCmd(&opts),
		newPutCmd(&opts),
		newLogCmd(&opts),
	)
	return root
}

// bootstrap wires a non-interactive environment for a subcommand.
func bootstrap(opts *app.Options) (*app.Env, error) {
	o := *opts
	o.Interactive = false
	return app.Bootstrap(o)
}
