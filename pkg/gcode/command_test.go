// G-code parsing tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		name string
		args map[string]string
	}{
		{"M92 X80.00 Y80.00 Z400.00 E424.09", "M92", map[string]string{"X": "80.00", "Y": "80.00", "Z": "400.00", "E": "424.09"}},
		{"echo:  M301 P27.98 I5.30 D36.94", "M301", map[string]string{"P": "27.98", "I": "5.30", "D": "36.94"}},
		{"echo:; Steps per unit:\necho:  M92 X80", "M92", map[string]string{"X": "80"}},
		{"m420 s1 z10.00 ; mesh", "M420", map[string]string{"S": "1", "Z": "10.00"}},
		{"G28 X (home x only)", "G28", map[string]string{"X": ""}},
		{"SET_PIN PIN=fan VALUE=1", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd := Parse(tt.line)
			if tt.name == "" {
				assert.Nil(t, cmd)
				return
			}
			require.NotNil(t, cmd)
			assert.Equal(t, tt.name, cmd.Name)
			assert.Equal(t, tt.args, cmd.Args)
		})
	}
}

func TestParseSkipsNonCommands(t *testing.T) {
	for _, line := range []string{"", "   ", "echo:; Linear Advance:", "ok", "echo:EEPROM version mismatch", "Marlin 2.1.2"} {
		assert.Nil(t, Parse(line), line)
	}
}

func TestCommandFloat(t *testing.T) {
	cmd := Parse("M851 X-44.00 Y-9.00 Zabc")
	require.NotNil(t, cmd)

	v, ok, err := cmd.Float("x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -44.0, v)

	_, ok, err = cmd.Float("E")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cmd.Float("Z")
	assert.True(t, ok)
	assert.Error(t, err)
	assert.True(t, cmd.Has("z"))
}
