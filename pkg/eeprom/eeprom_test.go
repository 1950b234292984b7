// EEPROM dump tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package eeprom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/machine"
	"ufwcfg/pkg/resolve"
	"ufwcfg/pkg/selection"
)

const ender5PlusDump = `Send: M503
Recv: FIRMWARE_NAME:Marlin 2.0.8.2 (TH3D UFW 2.97a) SOURCE_CODE_URL:github.com/MarlinFirmware/Marlin
Recv: echo:; Linear Units:
Recv: echo:  G21 ; (mm)
Recv: echo:; Steps per unit:
Recv: echo: M92 X80.00 Y80.00 Z800.00 E424.09
Recv: echo:; Maximum feedrates (units/s):
Recv: echo:  M203 X500.00 Y500.00 Z5.00 E25.00
Recv: echo:; Maximum Acceleration (units/s2):
Recv: echo:  M201 X500.00 Y500.00 Z100.00 E5000.00
Recv: echo:; Acceleration (units/s2): P<print_accel> R<retract_accel> T<travel_accel>
Recv: echo:  M204 P500.00 R500.00 T1000.00
Recv: echo:; Advanced: B<min_segment_time_us> S<min_feedrate> T<min_travel_feedrate> J<junc_dev>
Recv: echo:  M205 B20000.00 S0.00 T0.00 J0.08
Recv: echo:; Home offset:
Recv: echo:  M206 X0.00 Y0.00 Z0.00
Recv: echo:; Auto Bed Leveling:
Recv: echo:  M420 S1 Z10.00
Recv: echo:; Material heatup parameters:
Recv: echo:  M145 S0 H185 B45 F255
Recv: echo:  M145 S1 H240 B110 F255
Recv: echo:; PID settings:
Recv: echo:  M301 P27.98 I5.30 D36.94
Recv: echo:  M304 P462.10 I85.47 D624.59
Recv: echo:; Z-Probe Offset (mm):
Recv: echo:  M851 X-44.00 Y-9.00 Z-1.85
Recv: ok
`

func resolved(t *testing.T, sel selection.Selection) *resolve.Resolved {
	t.Helper()
	r, err := resolve.New(sel)
	require.NoError(t, err)
	return r
}

func TestParse(t *testing.T) {
	d, err := Parse(strings.NewReader(ender5PlusDump))
	require.NoError(t, err)

	assert.Equal(t, "Marlin 2.0.8.2 (TH3D UFW 2.97a)", d.Firmware)
	assert.Equal(t, Axes{"X": 80, "Y": 80, "Z": 800, "E": 424.09}, d.StepsPerUnit)
	assert.Equal(t, Axes{"X": 500, "Y": 500, "Z": 5, "E": 25}, d.MaxFeedrate)
	assert.Equal(t, Axes{"P": 500, "R": 500, "T": 1000}, d.Acceleration)
	assert.Equal(t, 0.08, d.Advanced["J"])
	assert.Equal(t, &PID{P: 27.98, I: 5.30, D: 36.94}, d.HotendPID)
	assert.Equal(t, &PID{P: 462.10, I: 85.47, D: 624.59}, d.BedPID)
	assert.Equal(t, Axes{"X": -44, "Y": -9, "Z": -1.85}, d.ProbeOffset)
	assert.Equal(t, &Leveling{Enabled: true, FadeHeight: 10}, d.Leveling)
	assert.Nil(t, d.LinearAdvanceK)
	assert.Equal(t, []string{"G21", "M145"}, d.Unknown)
}

func TestParseIgnoresOtherExtruders(t *testing.T) {
	d, err := Parse(strings.NewReader("M92 X80 Y80 Z400 E93\nM92 T1 E415\nM900 K0.12\nM900 T1 K0.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 93.0, d.StepsPerUnit["E"])
	require.NotNil(t, d.LinearAdvanceK)
	assert.Equal(t, 0.12, *d.LinearAdvanceK)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		msg   string
	}{
		{"bad number", "echo:; Steps\necho: M92 X80 Yabc\n", 2, "M92: bad Y value"},
		{"missing gain", "M301 P22.2 I1.08\n", 1, "M301: missing D"},
		{"no settings", "ok\necho:busy: processing\n", 0, "no EEPROM settings found"},
		{"empty", "", 0, "no EEPROM settings found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrEEPROMParse))
			assert.Contains(t, err.Error(), tt.msg)
			var be *errors.BuildError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.line, be.Line)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m503.txt")
	require.NoError(t, os.WriteFile(path, []byte("M92 X80 Yx\n"), 0o644))
	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path+":1:")

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCompareMatchingPrinter(t *testing.T) {
	d, err := Parse(strings.NewReader(ender5PlusDump))
	require.NoError(t, err)

	sel := selection.For(machine.Ender5Plus)
	sel.PIDBed = true
	rep := Compare(d, resolved(t, sel), 0)

	assert.True(t, rep.OK(), "drifts: %v", rep.Drifts)
	// steps (4) + hotend PID (3) + bed PID (3) + probe offset (2)
	assert.Equal(t, 12, rep.Checked)
	assert.Equal(t, "ENDER5_PLUS", rep.Printer)
	assert.Equal(t, []string{"G21", "M145"}, rep.Unknown)
}

func TestCompareReportsDrift(t *testing.T) {
	dump := "M92 X80.00 Y80.00 Z400.00 E93.00\nM301 P27.98 I5.30 D36.94\nM851 X-40.00 Y-9.00 Z0\n"
	d, err := Parse(strings.NewReader(dump))
	require.NoError(t, err)

	sel := selection.For(machine.Ender5Plus)
	sel.LinearAdvance = selection.LinearAdvance{Enabled: true, K: 0.08}
	rep := Compare(d, resolved(t, sel), DefaultTolerance)

	require.False(t, rep.OK())
	fields := map[string]Drift{}
	for _, dr := range rep.Drifts {
		fields[dr.Field] = dr
	}
	assert.Len(t, fields, 4)
	assert.Equal(t, Drift{Field: "steps_per_unit.z", Command: "M92", Want: 800, Got: 400}, fields["steps_per_unit.z"])
	assert.Equal(t, Drift{Field: "steps_per_unit.e", Command: "M92", Want: 424.09, Got: 93}, fields["steps_per_unit.e"])
	assert.Equal(t, Drift{Field: "probe_offset.x", Command: "M851", Want: -44, Got: -40}, fields["probe_offset.x"])
	assert.True(t, fields["linear_advance.k"].Missing)
	assert.Equal(t, "linear_advance.k: want 0.08, not reported (M900)", fields["linear_advance.k"].String())
	assert.Equal(t, "steps_per_unit.e: want 424.09, got 93 (M92)", fields["steps_per_unit.e"].String())
}

func TestCompareTolerance(t *testing.T) {
	d, err := Parse(strings.NewReader("M92 X80.04 Y80 Z400 E424.09\nM301 P28 I5.3 D36.94\n"))
	require.NoError(t, err)
	r := resolved(t, selection.For(machine.Ender3))

	strict := Compare(d, r, 0)
	assert.Len(t, strict.Drifts, 2)

	loose := Compare(d, r, 0.05)
	assert.True(t, loose.OK())
}

func TestValidate(t *testing.T) {
	const healthy = "M92 X80 Y80 Z400 E424.09\nM203 X500 Y500 Z5 E25\nM201 X500 Y500 Z100 E5000\n" +
		"M301 P27.98 I5.30 D36.94\nM900 K0.08\nM851 X-44 Y-9 Z-1.85\n"

	tests := []struct {
		name     string
		dump     string
		field    string
		severity Severity
	}{
		{"e-steps below range", "M92 E42\n", "steps_per_unit.e", SeverityError},
		{"e-steps above range", "M92 E2400\n", "steps_per_unit.e", SeverityError},
		{"stock bowden e-steps", "M92 E93\n", "steps_per_unit.e", SeverityInfo},
		{"stock geared e-steps", "M92 E415\n", "steps_per_unit.e", SeverityInfo},
		{"slow e feedrate", "M203 E8\n", "max_feedrate.e", SeverityWarning},
		{"high x acceleration", "M201 X4000\n", "max_accel.x", SeverityWarning},
		{"no hotend pid", "", "hotend_pid", SeverityWarning},
		{"zero z offset", "M851 X-44 Y-9 Z0\n", "probe_offset.z", SeverityInfo},
		{"linear advance zero", "M900 K0\n", "linear_advance_k", SeverityInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(strings.NewReader(healthy + tt.dump))
			require.NoError(t, err)
			if tt.field == "hotend_pid" {
				d.HotendPID = nil
			}
			warnings := d.Validate()
			require.Len(t, warnings, 1, "%v", warnings)
			assert.Equal(t, tt.field, warnings[0].Field)
			assert.Equal(t, tt.severity, warnings[0].Severity)
		})
	}
}

func TestValidateHealthyAndSparseDumps(t *testing.T) {
	d, err := Parse(strings.NewReader("M92 E424.09\nM301 P27.98 I5.30 D36.94\nM900 K0.08\n"))
	require.NoError(t, err)
	assert.Empty(t, d.Validate(), "unreported feedrate, acceleration and offset are not flagged")

	d, err = Parse(strings.NewReader("M92 X80\n"))
	require.NoError(t, err)
	var fields []string
	for _, w := range d.Validate() {
		fields = append(fields, w.Field)
	}
	assert.Equal(t, []string{"steps_per_unit.e", "hotend_pid", "linear_advance_k"}, fields)
}
