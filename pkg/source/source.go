// Package source loads a selection from any of the supported file formats.
package source

import (
	"os"
	"path/filepath"
	"strings"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/header"
	"ufwcfg/pkg/selection"
)

// Format is a selection file format.
type Format string

const (
	FormatINI    Format = "ini"
	FormatYAML   Format = "yaml"
	FormatHeader Format = "header"
)

// Detect picks the format from the file extension. Unknown extensions are
// read as INI, the format printer.cfg style files use.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".h":
		return FormatHeader
	default:
		return FormatINI
	}
}

// Load reads the selection at path and applies environment overrides
// through getenv (os.Getenv when nil). Warnings come from header import.
func Load(path string, getenv func(string) string) (selection.Selection, []selection.Warning, error) {
	var (
		sel      selection.Selection
		warnings []selection.Warning
		err      error
	)
	switch Detect(path) {
	case FormatYAML:
		sel, err = loadYAML(path)
	case FormatHeader:
		sel, warnings, err = header.ImportFile(path)
	default:
		// The overrides are one more INI layer, decoded with the file.
		sel, err = selection.LoadINI(path, selection.EnvConfig(getenv))
		if err != nil {
			return selection.Selection{}, nil, err
		}
		return sel, nil, nil
	}
	if err != nil {
		return selection.Selection{}, nil, err
	}
	if err := selection.ApplyEnv(&sel, getenv); err != nil {
		return selection.Selection{}, nil, err
	}
	return sel, warnings, nil
}

func loadYAML(path string) (selection.Selection, error) {
	f, err := os.Open(path)
	if err != nil {
		return selection.Selection{}, errors.Wrap(err, errors.ErrConfigSection, "unable to open selection: "+err.Error()).SetFile(path)
	}
	defer f.Close()
	sel, err := selection.LoadYAML(f)
	if be, ok := err.(*errors.BuildError); ok {
		be.SetFile(path)
	}
	return sel, err
}
