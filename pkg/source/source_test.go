package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/machine"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnv(string) string { return "" }

func TestDetect(t *testing.T) {
	assert.Equal(t, FormatYAML, Detect("a/b.yml"))
	assert.Equal(t, FormatYAML, Detect("B.YAML"))
	assert.Equal(t, FormatHeader, Detect("Configuration.h"))
	assert.Equal(t, FormatINI, Detect("printer.cfg"))
	assert.Equal(t, FormatINI, Detect("ufw.ini"))
	assert.Equal(t, FormatINI, Detect("noext"))
}

func TestLoadEachFormat(t *testing.T) {
	ini := write(t, "ufw.cfg", "[printer]\nmodel: ender3\n")
	yml := write(t, "ufw.yaml", "printers: [ENDER3_PRO]\nfaster_baudrate: true\n")
	hdr := write(t, "Configuration.h", "#define CR10\n#define BLTOUCH\n#define NOZZLE_TO_PROBE_OFFSET { -40, -10, 0 }\n")

	sel, warnings, err := Load(ini, noEnv)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []machine.Printer{machine.Ender3}, sel.Printers)

	sel, _, err = Load(yml, noEnv)
	require.NoError(t, err)
	assert.Equal(t, []machine.Printer{machine.Ender3Pro}, sel.Printers)
	assert.True(t, sel.FasterBaudrate)

	sel, _, err = Load(hdr, noEnv)
	require.NoError(t, err)
	assert.Equal(t, []machine.Printer{machine.CR10}, sel.Printers)
	assert.True(t, sel.Probe.BLTouch)
}

func TestLoadAppliesEnvironment(t *testing.T) {
	ini := write(t, "ufw.cfg", "[printer]\nmodel: ender3\n")
	env := map[string]string{"UFW_PRINTER": "cr10", "UFW_BAUDRATE_FAST": "1"}

	sel, _, err := Load(ini, func(k string) string { return env[k] })
	require.NoError(t, err)
	assert.Equal(t, []machine.Printer{machine.CR10}, sel.Printers)
	assert.True(t, sel.FasterBaudrate)

	env["UFW_BAUDRATE_FAST"] = "maybe"
	_, _, err = Load(ini, func(k string) string { return env[k] })
	assert.True(t, errors.Is(err, errors.ErrConfigType))
}

func TestLoadErrorsCarryFile(t *testing.T) {
	yml := write(t, "bad.yaml", "printers: [ENDER3]\nbogus: 1\n")
	_, _, err := Load(yml, noEnv)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigType))
	assert.Contains(t, err.Error(), yml)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), noEnv)
	assert.Error(t, err)
}
