package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ufwcfg/pkg/eeprom"
)

// errDrift signals that the command ran but the printer does not match.
var errDrift = fmt.Errorf("printer settings drifted from the selection")

func newEEPROMCmd(a *app) *cobra.Command {
	var tolerance float64
	cmd := &cobra.Command{
		Use:   "eeprom <selection> <m503-output>",
		Short: "Compare a printer's stored settings with a selection",
		Long: `Parse the output of M503 (as captured by a serial terminal or the
OctoPrint terminal log) and compare it with what the selection resolves to.

Steps per unit and hotend PID are always checked. Bed PID, linear advance
and the probe offset are checked when the selection enables them. The
command exits non-zero when any value differs by more than --tolerance.

Values that look wrong regardless of the selection (stock or implausible
e-steps, a zero Z offset, missing PID or linear advance) are listed as
notes; they do not change the exit code.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, warnings, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			a.printWarnings(warnings)
			dump, err := eeprom.ParseFile(args[1])
			if err != nil {
				return err
			}
			rep := eeprom.Compare(dump, r, tolerance)

			st := newStyles(a.out)
			title := rep.Printer
			if rep.Firmware != "" {
				title += " · " + rep.Firmware
			}
			fmt.Fprintln(a.out, st.Title.Render(title))
			if len(rep.Unknown) > 0 {
				fmt.Fprintln(a.out, st.Muted.Render("not checked: "+joinOrDash(rep.Unknown)))
			}
			for _, w := range dump.Validate() {
				label := st.Muted
				switch w.Severity {
				case eeprom.SeverityError:
					label = st.Error
				case eeprom.SeverityWarning:
					label = st.Warning
				}
				fmt.Fprintf(a.out, "%s %s\n", label.Render(string(w.Severity)+":"), w)
			}
			if rep.OK() {
				fmt.Fprintf(a.out, "%s %d settings match\n", st.OK.Render("ok:"), rep.Checked)
				return nil
			}

			t := st.newTable("SETTING", "COMMAND", "SELECTION", "PRINTER")
			for _, d := range rep.Drifts {
				got := fmt.Sprintf("%g", d.Got)
				if d.Missing {
					got = "not reported"
				}
				t.Row(d.Field, d.Command, fmt.Sprintf("%g", d.Want), st.Warning.Render(got))
			}
			fmt.Fprintln(a.out, t.Render())
			fmt.Fprintf(a.out, "%d of %d settings differ\n", len(rep.Drifts), rep.Checked)
			return errDrift
		},
	}
	cmd.Flags().Float64Var(&tolerance, "tolerance", eeprom.DefaultTolerance, "Largest difference treated as a match")
	return cmd
}
