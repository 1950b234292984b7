// ufwcfg resolves a typed firmware selection into the constants and
// Configuration.h header a TH3D Unified Firmware build consumes.
//
// Usage:
//
//	ufwcfg <command> [flags]
//
// Examples:
//
//	# Check a selection and print what it resolves to
//	ufwcfg resolve ender5plus.cfg
//
//	# Write the header the firmware build includes
//	ufwcfg header ender5plus.cfg -o Marlin/Configuration.h
//
//	# Convert an existing header into a selection file
//	ufwcfg import Marlin/Configuration.h -o ender5plus.yaml
//
//	# Compare a printer's M503 output with the selection
//	ufwcfg eeprom ender5plus.cfg m503.txt
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/log"
	"ufwcfg/pkg/selection"
	"ufwcfg/pkg/source"
)

// app carries the state shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer
	getenv func(string) string

	logLevel  string
	logFormat string
	dbPath    string
}

func newApp() *app {
	return &app{out: os.Stdout, errOut: os.Stderr, getenv: os.Getenv}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ufwcfg",
		Short: "Resolve TH3D Unified Firmware configuration selections",
		Long: `ufwcfg turns a typed selection (printer model, probe, sensors, motion
options) into the complete set of firmware constants and renders the
Configuration.h header a firmware build includes.

Selections are read from INI (.cfg, .ini), YAML (.yaml, .yml) or an existing
header (.h). UFW_PRINTER and UFW_BAUDRATE_FAST override the loaded file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configureLogging()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from UFW_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json (default from UFW_LOG_FORMAT)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Profile database path (default: user config dir)")

	root.AddCommand(
		newModelsCmd(a),
		newValidateCmd(a),
		newResolveCmd(a),
		newHeaderCmd(a),
		newImportCmd(a),
		newRoundtripCmd(a),
		newEEPROMCmd(a),
		newProfileCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) configureLogging() error {
	log.SetWriterAll(a.errOut)
	if a.logLevel != "" {
		level, ok := log.LookupLevel(a.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q (want debug, info, warn or error)", a.logLevel)
		}
		log.SetLevelAll(level)
	}
	switch strings.ToLower(a.logFormat) {
	case "":
	case "json":
		log.SetFormatAll(log.FormatJSON)
	case "text":
		log.SetFormatAll(log.FormatText)
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", a.logFormat)
	}
	return nil
}

// load reads a selection file in any supported format.
func (a *app) load(path string) (selection.Selection, []selection.Warning, error) {
	return source.Load(path, a.getenv)
}

// printWarnings writes non-fatal findings to stderr.
func (a *app) printWarnings(warnings []string) {
	st := newStyles(a.errOut)
	for _, w := range warnings {
		fmt.Fprintln(a.errOut, st.Warning.Render("warning: ")+w)
	}
}

func importWarnings(ws []selection.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

// exitCode maps errors to process exit codes: 2 for an invalid selection or
// input file, 1 for everything else.
func exitCode(err error) int {
	if errors.IsSelection(err) || errors.IsConfig(err) ||
		errors.Is(err, errors.ErrHeaderParse) || errors.Is(err, errors.ErrEEPROMParse) {
		return 2
	}
	return 1
}

// printError lists each error of a joined validation failure on its own
// line. Joins nested inside a join are flattened into the same list.
func printError(w io.Writer, err error) {
	st := newStyles(w)
	if _, ok := err.(interface{ Unwrap() []error }); ok {
		fmt.Fprintln(w, st.Error.Render("error:")+" selection is invalid")
		for _, e := range leafErrors(err) {
			fmt.Fprintln(w, "  - "+e.Error())
		}
		return
	}
	fmt.Fprintln(w, st.Error.Render("error:")+" "+err.Error())
}

// leafErrors walks errors.Join trees depth first. Errors wrapping a join
// through %w are kept whole so their prefix stays with the message.
func leafErrors(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		if e != nil {
			out = append(out, leafErrors(e)...)
		}
	}
	return out
}

func main() {
	a := newApp()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(a.errOut, err)
		os.Exit(exitCode(err))
	}
}
