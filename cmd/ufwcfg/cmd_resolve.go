package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/header"
	"ufwcfg/pkg/machine"
	"ufwcfg/pkg/resolve"
	"ufwcfg/pkg/source"
	"ufwcfg/pkg/thermistor"
)

func newModelsCmd(a *app) *cobra.Command {
	var sensors bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List supported printer models and Xtender kits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := newStyles(a.out)
			t := st.newTable("MODEL", "FAMILY", "BED (X×Y×Z mm)", "VOLTAGE", "KITS")
			for _, p := range machine.Printers() {
				v, _ := machine.BedVolume(p, "")
				volts := "24V"
				if p.TwelveVolt() {
					volts = "12V"
				}
				var kits []string
				for _, k := range machine.XtenderKits() {
					if k.Family() == p.Family() {
						kits = append(kits, string(k))
					}
				}
				t.Row(string(p), string(p.Family()), fmt.Sprintf("%d×%d×%d", v.X, v.Y, v.Z), volts, joinOrDash(kits))
			}
			fmt.Fprintln(a.out, t.Render())
			if !sensors {
				return nil
			}
			t = st.newTable("CODE", "THERMISTOR", "MAX °C")
			for _, code := range thermistor.Codes() {
				s, _ := thermistor.Lookup(code)
				limit := "-"
				if s.MaxTemp > 0 {
					limit = fmt.Sprint(s.MaxTemp)
				}
				t.Row(fmt.Sprint(code), s.Name, limit)
			}
			fmt.Fprintln(a.out, t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&sensors, "thermistors", false, "Also list the thermistor table codes")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <selection>",
		Short: "Check a selection without producing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, warnings, err := a.load(args[0])
			if err != nil {
				return err
			}
			if err := sel.Validate(); err != nil {
				return err
			}
			a.printWarnings(append(importWarnings(warnings), sel.Warnings()...))
			st := newStyles(a.out)
			fmt.Fprintf(a.out, "%s %s is a valid %s selection\n", st.OK.Render("ok:"), args[0], sel.Printer())
			return nil
		},
	}
}

func newResolveCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "resolve <selection>",
		Short: "Print the constants a selection resolves to",
		Long: `Resolve a selection and print the result.

Formats:
  yaml     selection and constants as YAML (default)
  json     selection and constants as JSON
  defines  the #define lines of the header body`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, warnings, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			a.printWarnings(warnings)
			switch format {
			case "defines":
				for _, d := range r.Selection.Defines() {
					fmt.Fprintln(a.out, d.String())
				}
				for _, d := range r.Constants.Defines() {
					fmt.Fprintln(a.out, d.String())
				}
				return nil
			case string(resolve.FormatYAML), string(resolve.FormatJSON):
				data, err := r.Marshal(resolve.Format(format))
				if err != nil {
					return err
				}
				_, err = a.out.Write(ensureNewline(data))
				return err
			default:
				return errors.New(errors.ErrConfigValidation, fmt.Sprintf("unknown format %q (want yaml, json or defines)", format))
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, json or defines")
	return cmd
}

func newHeaderCmd(a *app) *cobra.Command {
	var (
		output string
		opts   header.Options
	)
	cmd := &cobra.Command{
		Use:   "header <selection>",
		Short: "Render Configuration.h for a selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, warnings, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			a.printWarnings(warnings)
			opts.Source = filepath.Base(args[0])
			if output == "" || output == "-" {
				return header.Render(a.out, r, opts)
			}
			if err := header.WriteFile(output, r, opts); err != nil {
				return err
			}
			st := newStyles(a.errOut)
			fmt.Fprintf(a.errOut, "%s wrote %s (%s)\n", st.OK.Render("ok:"), output, r.Constants.Printer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Header path, written atomically (default: stdout)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "Value for STRING_DISTRIBUTION_DATE")
	cmd.Flags().StringVar(&opts.Version, "ufw-version", header.DefaultVersion, "Value for UNIFIED_VERSION")
	cmd.Flags().BoolVar(&opts.OmitDerived, "omit-derived", false, "Leave derived constants to the firmware backend")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "import <Configuration.h>",
		Short: "Convert a firmware header into a selection file",
		Long: `Read the user section of a TH3D-style Configuration.h (everything above
"DO NOT TOUCH ANYTHING BELOW") and write it as a selection.

The output format follows the extension of --output: .yaml or .yml for
YAML, anything else for INI. Without --output the YAML goes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, warnings, err := header.ImportFile(args[0])
			if err != nil {
				return err
			}
			a.printWarnings(importWarnings(warnings))
			if err := sel.Validate(); err != nil {
				return err
			}
			if output == "" || output == "-" {
				data, err := sel.YAML()
				if err != nil {
					return err
				}
				_, err = a.out.Write(data)
				return err
			}
			if source.Detect(output) == source.FormatINI {
				if err := sel.SaveINI(output); err != nil {
					return err
				}
			} else {
				data, err := sel.YAML()
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return err
				}
			}
			st := newStyles(a.errOut)
			fmt.Fprintf(a.errOut, "%s imported %s into %s\n", st.OK.Render("ok:"), sel.Printer(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Selection file to write (.cfg, .ini, .yaml)")
	return cmd
}

func newRoundtripCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roundtrip <selection>",
		Short: "Check that a selection survives serialization and header import",
		Long: `Resolve a selection, then:
  1. encode the result as YAML and JSON and re-resolve each document
  2. render the header, import it again and resolve the imported selection
Any difference in the constants is reported as an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			for _, f := range []resolve.Format{resolve.FormatYAML, resolve.FormatJSON} {
				data, err := r.Marshal(f)
				if err != nil {
					return err
				}
				if _, err := resolve.Reresolve(data); err != nil {
					return fmt.Errorf("%s round trip: %w", f, err)
				}
			}

			data, err := header.Bytes(r, header.Options{})
			if err != nil {
				return err
			}
			imported, _, err := header.Import(bytes.NewReader(data), "rendered header")
			if err != nil {
				return fmt.Errorf("header round trip: %w", err)
			}
			again, err := resolve.Resolve(imported)
			if err != nil {
				return fmt.Errorf("header round trip: %w", err)
			}
			if diff := resolve.Diff(r.Constants, again); diff != "" {
				return errors.New(errors.ErrResolveMismatch,
					"header round trip changed the constants (-original +imported):\n"+diff)
			}

			st := newStyles(a.out)
			fmt.Fprintf(a.out, "%s %s survives yaml, json and header round trips\n", st.OK.Render("ok:"), args[0])
			return nil
		},
	}
}

// resolve loads and resolves a selection file, returning every warning.
func (a *app) resolve(path string) (*resolve.Resolved, []string, error) {
	sel, warnings, err := a.load(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := resolve.New(sel)
	if err != nil {
		return nil, nil, err
	}
	return r, append(importWarnings(warnings), r.Constants.Warnings...), nil
}

func ensureNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] != '\n' {
		return append(b, '\n')
	}
	return b
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	out := s[0]
	for _, v := range s[1:] {
		out += ", " + v
	}
	return out
}
