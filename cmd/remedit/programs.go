package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/remedit/internal/app"
	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/remote"
	"github.com/five82/remedit/internal/workspace"
)

func newListCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [endpoint]",
		Short: "List programs on one endpoint, or on all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()
			ws := env.Workspace

			var endpoints []endpoint.Endpoint
			var listErr error
			if len(args) == 1 {
				ep, err := ws.Endpoint(args[0])
				if err != nil {
					return err
				}
				if _, err := ws.Connect(cmd.Context(), ep.ID); err != nil {
					return describe(err)
				}
				endpoints = []endpoint.Endpoint{ep}
			} else {
				_, listErr = ws.RefreshAll(cmd.Context())
				endpoints = ws.Endpoints()
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENDPOINT\tID\tNAME\tMODIFIED")
			for _, ep := range endpoints {
				for _, p := range ws.Programs(ep.ID) {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ep.Name, p.ID, p.FullName(), modified(p))
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return describe(listErr)
		},
	}
}

func newCatCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <endpoint> <program>",
		Short: "Print a program's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			ep, p, err := resolveProgram(cmd, env.Workspace, args[0], args[1])
			if err != nil {
				return err
			}
			doc, err := env.Workspace.Open(cmd.Context(), ep.ID, p.ID)
			if err != nil {
				return describe(err)
			}
			_, err = io.Copy(cmd.OutOrStdout(), doc.Reader())
			return err
		},
	}
}

func newPutCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "put <endpoint> <program> [file|-]",
		Short: "Replace a program's content from a file or stdin",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			src := "-"
			if len(args) == 3 {
				src = args[2]
			}
			content, err := readSource(cmd.InOrStdin(), src)
			if err != nil {
				return err
			}

			ws := env.Workspace
			ep, p, err := resolveProgram(cmd, ws, args[0], args[1])
			if err != nil {
				return err
			}
			doc, err := ws.Open(cmd.Context(), ep.ID, p.ID)
			if err != nil {
				return describe(err)
			}
			doc.Write(content)
			if err := ws.Save(cmd.Context(), doc); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d bytes, modified %s)\n",
				doc.Name(), doc.Len(), modified(doc.Program()))
			return nil
		},
	}
}

// resolveProgram lists the endpoint and matches ref against program ids,
// then full names, then bare names. Names must be unambiguous.
func resolveProgram(cmd *cobra.Command, ws *workspace.Workspace, epRef, ref string) (endpoint.Endpoint, remote.Program, error) {
	ep, err := ws.Endpoint(epRef)
	if err != nil {
		return endpoint.Endpoint{}, remote.Program{}, err
	}
	programs, err := ws.Connect(cmd.Context(), ep.ID)
	if err != nil {
		return endpoint.Endpoint{}, remote.Program{}, describe(err)
	}
	p, err := matchProgram(programs, ref)
	if err != nil {
		return endpoint.Endpoint{}, remote.Program{}, fmt.Errorf("%s: %w", ep.Name, err)
	}
	return ep, p, nil
}

func matchProgram(programs []remote.Program, ref string) (remote.Program, error) {
	for _, p := range programs {
		if p.ID == ref {
			return p, nil
		}
	}
	matchers := []func(remote.Program) bool{
		func(p remote.Program) bool { return strings.EqualFold(p.FullName(), ref) },
		func(p remote.Program) bool { return strings.EqualFold(p.Name, ref) },
	}
	for _, match := range matchers {
		var found []remote.Program
		for _, p := range programs {
			if match(p) {
				found = append(found, p)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return remote.Program{}, fmt.Errorf("program %q is ambiguous, use its id", ref)
		}
	}
	return remote.Program{}, fmt.Errorf("program %q not found", ref)
}

func readSource(stdin io.Reader, src string) ([]byte, error) {
	if src == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return b, nil
}

// describe appends the user-facing hint to remote errors.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var (
		transport *remote.TransportError
		protocol  *remote.ProtocolError
		apiErr    *remote.APIError
	)
	if !errors.As(err, &transport) && !errors.As(err, &protocol) && !errors.As(err, &apiErr) {
		return err
	}
	hint := remote.Hint(err)
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w\n%s", err, hint)
}

func modified(p remote.Program) string {
	t := p.ModifiedAt()
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
