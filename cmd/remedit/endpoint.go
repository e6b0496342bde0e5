package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/five82/remedit/internal/app"
	"github.com/five82/remedit/internal/endpoint"
)

func newEndpointCmd(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "endpoint",
		Aliases: []string{"ep"},
		Short:   "Manage the endpoint registry",
	}
	cmd.AddCommand(
		newEndpointListCmd(opts),
		newEndpointAddCmd(opts),
		newEndpointUpdateCmd(opts),
		newEndpointRemoveCmd(opts),
		newEndpointMoveCmd(opts),
		newEndpointPasswdCmd(opts),
	)
	return cmd
}

func newEndpointListCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered endpoints",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tURL\tUSERNAME\tPASSWORD")
			for _, ep := range env.Registry.List() {
				_, hasPassword, err := env.Creds.Password(ep.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ep.ID, ep.Name, ep.URL, dash(ep.Username), yesNo(hasPassword))
			}
			return tw.Flush()
		},
	}
}

func newEndpointAddCmd(opts *app.Options) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a new endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ep := endpoint.New(args[0], args[1], username)
			if err := env.Registry.Add(ep); err != nil {
				return err
			}
			if passwordStdin {
				password, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if err := env.Creds.SetPassword(ep.ID, password); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", ep.Name, ep.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "basic auth username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newEndpointUpdateCmd(opts *app.Options) *cobra.Command {
	var name, rawURL, username string
	cmd := &cobra.Command{
		Use:   "update <endpoint>",
		Short: "Change an endpoint's name, URL or username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ep, err := env.Registry.Resolve(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				ep.Name = strings.TrimSpace(name)
			}
			if flags.Changed("url") {
				ep.URL = strings.TrimSpace(rawURL)
			}
			if flags.Changed("username") {
				ep.Username = strings.TrimSpace(username)
			}
			if err := env.Registry.Update(ep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", ep.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&rawURL, "url", "", "new base URL")
	cmd.Flags().StringVarP(&username, "username", "u", "", "new username (empty disables auth)")
	return cmd
}

func newEndpointRemoveCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <endpoint>",
		Aliases: []string{"rm"},
		Short:   "Remove an endpoint and its stored password",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ep, err := env.Registry.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := env.Registry.Remove(ep.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", ep.Name)
			return nil
		},
	}
}

func newEndpointMoveCmd(opts *app.Options) *cobra.Command {
	var up, down int
	cmd := &cobra.Command{
		Use:   "move <endpoint>",
		Short: "Move an endpoint up or down the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if up < 0 || down < 0 || (up == 0) == (down == 0) {
				return errors.New("exactly one positive --up or --down is required")
			}
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ep, err := env.Registry.Resolve(args[0])
			if err != nil {
				return err
			}
			if err := env.Registry.Move(ep.ID, down-up); err != nil {
				return err
			}
			for i, e := range env.Registry.List() {
				if e.ID == ep.ID {
					fmt.Fprintf(cmd.OutOrStdout(), "moved %s to position %d\n", ep.Name, i+1)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&up, "up", 0, "positions to move towards the top")
	cmd.Flags().IntVar(&down, "down", 0, "positions to move towards the bottom")
	return cmd
}

func newEndpointPasswdCmd(opts *app.Options) *cobra.Command {
	var clearPassword bool
	cmd := &cobra.Command{
		Use:   "passwd <endpoint>",
		Short: "Set an endpoint password from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ep, err := env.Registry.Resolve(args[0])
			if err != nil {
				return err
			}
			if clearPassword {
				return env.Creds.ClearPassword(ep.ID)
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return env.Creds.SetPassword(ep.ID, password)
		},
	}
	cmd.Flags().BoolVar(&clearPassword, "clear", false, "remove the stored password")
	return cmd
}

// readPassword reads the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("read password: empty input")
	}
	return password, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
