package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ufwcfg/pkg/header"
	"ufwcfg/pkg/resolve"
	"ufwcfg/pkg/store"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved selections",
		Long: `Profiles are named selections kept in a local SQLite database, along
with a digest of the constants they resolved to when saved. A profile whose
digest no longer matches is reported as stale.`,
	}
	cmd.AddCommand(
		newProfileSaveCmd(a),
		newProfileListCmd(a),
		newProfileShowCmd(a),
		newProfileRemoveCmd(a),
	)
	return cmd
}

// openStore opens the profile database named by --db or the default one.
func (a *app) openStore() (*store.Store, error) {
	path := a.dbPath
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

func (a *app) withStore(fn func(*store.Store) error) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func newProfileSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> <selection>",
		Short: "Save or replace a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, warnings, err := a.load(args[1])
			if err != nil {
				return err
			}
			a.printWarnings(importWarnings(warnings))
			return a.withStore(func(s *store.Store) error {
				p, err := s.Save(cmd.Context(), args[0], sel)
				if err != nil {
					return err
				}
				st := newStyles(a.out)
				fmt.Fprintf(a.out, "%s saved %s (%s, %s)\n", st.OK.Render("ok:"), p.Name, p.Printer, p.Digest[:12])
				return nil
			})
		},
	}
}

func newProfileListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				profiles, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				st := newStyles(a.out)
				if len(profiles) == 0 {
					fmt.Fprintln(a.out, st.Muted.Render("no profiles in "+s.Path()))
					return nil
				}
				t := st.newTable("NAME", "PRINTER", "DIGEST", "UPDATED", "STATUS")
				for _, p := range profiles {
					t.Row(p.Name, p.Printer, p.Digest[:12], p.UpdatedAt.Local().Format("2006-01-02 15:04"), profileStatus(st, p))
				}
				fmt.Fprintln(a.out, t.Render())
				return nil
			})
		},
	}
}

func profileStatus(st styles, p *store.Profile) string {
	stale, err := p.Stale()
	switch {
	case err != nil:
		return st.Error.Render("invalid")
	case stale:
		return st.Warning.Render("stale")
	default:
		return st.OK.Render("current")
	}
}

func newProfileShowCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a profile's selection, constants or header",
		Long: `Print a saved profile.

Formats:
  selection  the saved selection as YAML (default)
  yaml       selection and constants as YAML
  json       selection and constants as JSON
  header     the rendered Configuration.h (written to --output when set)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				return a.showProfile(cmd.Context(), s, args[0], format, output)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "selection", "Output format: selection, yaml, json or header")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Header path for --format header")
	return cmd
}

func (a *app) showProfile(ctx context.Context, s *store.Store, name, format, output string) error {
	p, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if format == "selection" {
		data, err := p.Selection.YAML()
		if err != nil {
			return err
		}
		_, err = a.out.Write(data)
		return err
	}

	r, err := resolve.New(p.Selection)
	if err != nil {
		return err
	}
	if d, _ := r.Constants.Digest(); d != p.Digest {
		a.printWarnings([]string{fmt.Sprintf("profile %s is stale: its constants changed since it was saved", name)})
	}
	switch format {
	case "header":
		opts := header.Options{Source: "profile " + name}
		if output == "" || output == "-" {
			return header.Render(a.out, r, opts)
		}
		return header.WriteFile(output, r, opts)
	case string(resolve.FormatYAML), string(resolve.FormatJSON):
		data, err := r.Marshal(resolve.Format(format))
		if err != nil {
			return err
		}
		_, err = a.out.Write(ensureNewline(data))
		return err
	default:
		return fmt.Errorf("unknown format %q (want selection, yaml, json or header)", format)
	}
}

func newProfileRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				if err := s.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				st := newStyles(a.out)
				fmt.Fprintf(a.out, "%s removed %s\n", st.OK.Render("ok:"), args[0])
				return nil
			})
		},
	}
}
