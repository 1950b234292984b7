package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufwcfg/pkg/errors"
)

const ender3INI = "[printer]\nmodel: ender3\n"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{out: &out, errOut: &errOut, getenv: func(string) string { return "" }}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestModels(t *testing.T) {
	out, _, err := run(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "ENDER5_PLUS")
	assert.Contains(t, out, "360×360×410")
	assert.NotContains(t, out, "THERMISTOR")

	out, _, err = run(t, "models", "--thermistors")
	require.NoError(t, err)
	assert.Contains(t, out, "THERMISTOR")
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, "validate", writeFile(t, "ok.cfg", ender3INI))
	require.NoError(t, err)
	assert.Contains(t, out, "valid ENDER3 selection")

	_, _, err = run(t, "validate", writeFile(t, "bad.cfg", "[printer]\nmodel: ender3, cr10\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSelectionPrinter))
	assert.Equal(t, 2, exitCode(err))
}

func TestResolveFormats(t *testing.T) {
	in := writeFile(t, "ufw.cfg", ender3INI)

	out, _, err := run(t, "resolve", in)
	require.NoError(t, err)
	assert.Contains(t, out, "printer: ENDER3")

	out, _, err = run(t, "resolve", in, "--format", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))

	out, _, err = run(t, "resolve", in, "-f", "defines")
	require.NoError(t, err)
	assert.Contains(t, out, "#define ENDER3\n")
	assert.Contains(t, out, "#define DEFAULT_Kp 27.9849\n")

	_, _, err = run(t, "resolve", in, "-f", "toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "toml"`)
}

func TestHeaderImportRoundTrip(t *testing.T) {
	in := writeFile(t, "ufw.cfg", ender3INI)
	dir := t.TempDir()
	h := filepath.Join(dir, "Configuration.h")

	_, stderr, err := run(t, "header", in, "-o", h, "--date", "2026-10-15")
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+h)
	data, err := os.ReadFile(h)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#define ENDER3\n")
	assert.Contains(t, string(data), "2026-10-15")

	out, _, err := run(t, "header", in)
	require.NoError(t, err)
	assert.Contains(t, out, "#define ENDER3\n")

	yml := filepath.Join(dir, "imported.yaml")
	_, _, err = run(t, "import", h, "-o", yml)
	require.NoError(t, err)

	out, _, err = run(t, "roundtrip", yml)
	require.NoError(t, err)
	assert.Contains(t, out, "survives yaml, json and header round trips")

	ini := filepath.Join(dir, "imported.cfg")
	_, _, err = run(t, "import", h, "-o", ini)
	require.NoError(t, err)
	out, _, err = run(t, "validate", ini)
	require.NoError(t, err)
	assert.Contains(t, out, "ENDER3")
}

func TestEEPROM(t *testing.T) {
	in := writeFile(t, "ufw.cfg", ender3INI)

	match := writeFile(t, "m503.txt", "echo: M92 X80.00 Y80.00 Z400.00 E424.09\necho: M301 P27.98 I5.30 D36.94\n")
	out, _, err := run(t, "eeprom", in, match)
	require.NoError(t, err)
	assert.Contains(t, out, "settings match")

	drift := writeFile(t, "m503.txt", "M92 X80.00 Y80.00 Z400.00 E93.00\nM301 P27.98 I5.30 D36.94\n")
	out, _, err = run(t, "eeprom", in, drift)
	require.ErrorIs(t, err, errDrift)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "steps_per_unit.e")
	assert.Regexp(t, `1 of \d+ settings differ`, out)
	assert.Contains(t, out, "info: steps_per_unit.e: 93 steps/mm is a factory default")
	assert.Contains(t, out, "info: linear_advance_k: not set")

	_, _, err = run(t, "eeprom", in, drift, "--tolerance", "400")
	require.NoError(t, err)

	_, _, err = run(t, "eeprom", in, writeFile(t, "empty.txt", "ok\n"))
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestProfileLifecycle(t *testing.T) {
	db := filepath.Join(t.TempDir(), "profiles.db")
	in := writeFile(t, "ufw.cfg", ender3INI)

	out, _, err := run(t, "--db", db, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no profiles")

	out, _, err = run(t, "--db", db, "profile", "save", "shop-e3", in)
	require.NoError(t, err)
	assert.Contains(t, out, "saved shop-e3 (ENDER3")

	out, _, err = run(t, "--db", db, "profile", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "shop-e3")
	assert.Contains(t, out, "current")

	out, _, err = run(t, "--db", db, "profile", "show", "shop-e3")
	require.NoError(t, err)
	assert.Contains(t, out, "ENDER3")

	out, _, err = run(t, "--db", db, "profile", "show", "shop-e3", "-f", "header")
	require.NoError(t, err)
	assert.Contains(t, out, "#define ENDER3\n")

	_, _, err = run(t, "--db", db, "profile", "rm", "shop-e3")
	require.NoError(t, err)

	_, _, err = run(t, "--db", db, "profile", "show", "shop-e3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreNotFound))
}

func TestWatchRequiresOutput(t *testing.T) {
	_, _, err := run(t, "watch", writeFile(t, "ufw.cfg", ender3INI))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestUnknownLogFormat(t *testing.T) {
	_, _, err := run(t, "--log-format", "xml", "models")
	require.Error(t, err)
}

func TestUnknownLogLevel(t *testing.T) {
	_, _, err := run(t, "--log-level", "verbose", "models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log level "verbose"`)

	_, _, err = run(t, "--log-level", "WARNING", "models")
	require.NoError(t, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrSelectionConflict, "x"), 2},
		{errors.New(errors.ErrConfigOption, "x"), 2},
		{errors.HeaderParseError("a.h", 3, "x"), 2},
		{errors.EEPROMParseError("x"), 2},
		{errors.New(errors.ErrHeaderWrite, "x"), 1},
		{fmt.Errorf("plain"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}

func TestPrintErrorListsJoinedErrors(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, stderrors.Join(fmt.Errorf("first"), fmt.Errorf("second")))
	assert.Contains(t, buf.String(), "  - first\n")
	assert.Contains(t, buf.String(), "  - second\n")
}

func TestPrintErrorFlattensNestedJoins(t *testing.T) {
	var buf bytes.Buffer
	inner := stderrors.Join(fmt.Errorf("[probe]: bad points"), fmt.Errorf("[probe]: bad edge"))
	printError(&buf, stderrors.Join(fmt.Errorf("unknown model"), inner))
	assert.Equal(t, 1, strings.Count(buf.String(), "selection is invalid"))
	for _, want := range []string{"unknown model", "[probe]: bad points", "[probe]: bad edge"} {
		assert.Contains(t, buf.String(), "  - "+want+"\n")
	}
}
