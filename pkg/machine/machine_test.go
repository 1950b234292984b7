package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufwcfg/pkg/errors"
)

func TestParsePrinter(t *testing.T) {
	p, err := ParsePrinter(" ender5_plus ")
	require.NoError(t, err)
	assert.Equal(t, Ender5Plus, p)

	_, err = ParsePrinter("ENDER7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSelectionUnknown))
	assert.Contains(t, err.Error(), "CR10_S5")
}

func TestParseOptional(t *testing.T) {
	k, err := ParseXtenderKit("none")
	require.NoError(t, err)
	assert.Equal(t, XtenderKit(""), k)

	m, err := ParseProbeMount("custom_probe")
	require.NoError(t, err)
	assert.Equal(t, MountCustom, m)

	h, err := ParseHotendThermistor("stock")
	require.NoError(t, err)
	assert.Equal(t, HotendStock, h)

	_, err = ParseBedThermistor("LAVA_BED")
	assert.Error(t, err)

	l, err := ParseBedLeveling("")
	require.NoError(t, err)
	assert.Equal(t, LevelingBilinear, l)
}

func TestFamily(t *testing.T) {
	assert.Equal(t, Ender3, Ender3Pro.Family())
	assert.Equal(t, Ender5, Ender5Pro.Family())
	assert.Equal(t, Ender5Plus, Ender5Plus.Family())
	assert.True(t, Ender5Pro.Ender5Layout())
	assert.True(t, Ender5Plus.Ender5Layout())
	assert.False(t, Ender3.Ender5Layout())
}

func TestBedVolume(t *testing.T) {
	tests := []struct {
		printer Printer
		kit     XtenderKit
		want    Volume
	}{
		{Ender2Pro, "", Volume{165, 168, 180}},
		{Ender3, "", Volume{235, 235, 250}},
		{Ender3Pro, XtenderE3400XL, Volume{400, 400, 500}},
		{Ender3Max, "", Volume{300, 300, 340}},
		{Ender5Pro, XtenderE55XL, Volume{235, 235, 500}},
		{Ender5Plus, "", Volume{360, 360, 410}},
		{Ender5Plus, XtenderE5P400, Volume{510, 510, 400}},
		{Ender5Plus, XtenderE5P500, Volume{510, 510, 500}},
		{CR10Mini, "", Volume{300, 220, 300}},
		{CR10S5, "", Volume{500, 500, 500}},
		// a kit for another family is ignored
		{Ender5Plus, XtenderE3300, Volume{360, 360, 410}},
	}
	for _, tt := range tests {
		got, ok := BedVolume(tt.printer, tt.kit)
		require.True(t, ok, tt.printer)
		assert.Equal(t, tt.want, got, "%s + %q", tt.printer, tt.kit)
	}

	_, ok := BedVolume("PRUSA_MK3", "")
	assert.False(t, ok)
}

func TestEveryPrinterHasGeometry(t *testing.T) {
	for _, p := range Printers() {
		_, ok := BedVolume(p, "")
		assert.True(t, ok, p)
	}
}

func TestKitFits(t *testing.T) {
	assert.True(t, XtenderE3500Z.Fits(Ender3Pro))
	assert.False(t, XtenderE3500Z.Fits(Ender5))
	assert.True(t, XtenderKit("").Fits(CR10))
	assert.Equal(t, Ender5Plus, XtenderE5P500.Family())
}
