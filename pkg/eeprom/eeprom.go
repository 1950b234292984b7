// Parsing of the firmware's M503 settings report
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package eeprom reads the settings a running printer reports through M503
// and compares them with what a resolved configuration would flash.
package eeprom

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/gcode"
)

// Axes holds per-axis values keyed by axis letter (X, Y, Z, E). Letters the
// printer did not report are absent.
type Axes map[string]float64

// Get returns the value for an axis letter.
func (a Axes) Get(letter string) (float64, bool) {
	v, ok := a[letter]
	return v, ok
}

// PID holds one heater's gains as reported by M301/M304.
type PID struct {
	P float64 `yaml:"p" json:"p"`
	I float64 `yaml:"i" json:"i"`
	D float64 `yaml:"d" json:"d"`
}

// Leveling is the M420 state.
type Leveling struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	FadeHeight float64 `yaml:"fade_height" json:"fade_height"`
}

// Dump is a parsed M503 report.
type Dump struct {
	Firmware       string    `yaml:"firmware,omitempty" json:"firmware,omitempty"`
	StepsPerUnit   Axes      `yaml:"steps_per_unit,omitempty" json:"steps_per_unit,omitempty"`     // M92
	MaxFeedrate    Axes      `yaml:"max_feedrate,omitempty" json:"max_feedrate,omitempty"`         // M203
	MaxAccel       Axes      `yaml:"max_accel,omitempty" json:"max_accel,omitempty"`               // M201
	Acceleration   Axes      `yaml:"acceleration,omitempty" json:"acceleration,omitempty"`         // M204 P R T
	Advanced       Axes      `yaml:"advanced,omitempty" json:"advanced,omitempty"`                 // M205 B S T J X Y Z E
	HomeOffset     Axes      `yaml:"home_offset,omitempty" json:"home_offset,omitempty"`           // M206
	HotendPID      *PID      `yaml:"hotend_pid,omitempty" json:"hotend_pid,omitempty"`             // M301
	BedPID         *PID      `yaml:"bed_pid,omitempty" json:"bed_pid,omitempty"`                   // M304
	LinearAdvanceK *float64  `yaml:"linear_advance_k,omitempty" json:"linear_advance_k,omitempty"` // M900
	ProbeOffset    Axes      `yaml:"probe_offset,omitempty" json:"probe_offset,omitempty"`         // M851
	Leveling       *Leveling `yaml:"leveling,omitempty" json:"leveling,omitempty"`                 // M420

	// Unknown lists commands in the report that are not interpreted,
	// in order of first appearance.
	Unknown []string `yaml:"unknown,omitempty" json:"unknown,omitempty"`
}

const firmwareTag = "FIRMWARE_NAME:"

// ParseFile reads an M503 capture from disk.
func ParseFile(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eeprom: unable to open %s: %w", path, err)
	}
	defer f.Close()
	d, err := Parse(f)
	if be, ok := err.(*errors.BuildError); ok {
		be.SetFile(path)
	}
	return d, err
}

// Parse reads M503 console output. Lines that carry no command (comments,
// "ok", banners) are skipped. A malformed number fails with the line it
// appeared on; a report with no recognised setting fails as a whole.
func Parse(r io.Reader) (*Dump, error) {
	d := &Dump{}
	seen := map[string]bool{}
	found := 0

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if idx := strings.Index(line, firmwareTag); idx >= 0 && d.Firmware == "" {
			d.Firmware = firmwareName(line[idx+len(firmwareTag):])
			continue
		}
		cmd := gcode.Parse(line)
		if cmd == nil {
			continue
		}
		known, err := d.apply(cmd)
		if err != nil {
			return nil, errors.EEPROMParseError(err.Error()).SetLine(lineNum)
		}
		if known {
			found++
			continue
		}
		if !seen[cmd.Name] {
			seen[cmd.Name] = true
			d.Unknown = append(d.Unknown, cmd.Name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eeprom: read error: %w", err)
	}
	if found == 0 {
		return nil, errors.EEPROMParseError("no EEPROM settings found (expected M503 output)")
	}
	return d, nil
}

// firmwareName trims an M115 FIRMWARE_NAME value at the next capability key.
func firmwareName(s string) string {
	if idx := strings.Index(s, " SOURCE_CODE_URL:"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func (d *Dump) apply(cmd *gcode.Command) (bool, error) {
	// Only the first extruder is configured; per-tool lines are ignored.
	switch cmd.Name {
	case "M92", "M201", "M203", "M301", "M900":
		if t, ok, _ := cmd.Float("T"); ok && t != 0 {
			return true, nil
		}
	}
	switch cmd.Name {
	case "M92":
		return true, readAxes(cmd, &d.StepsPerUnit, "XYZE")
	case "M203":
		return true, readAxes(cmd, &d.MaxFeedrate, "XYZE")
	case "M201":
		return true, readAxes(cmd, &d.MaxAccel, "XYZE")
	case "M204":
		return true, readAxes(cmd, &d.Acceleration, "PRT")
	case "M205":
		return true, readAxes(cmd, &d.Advanced, "BSTJXYZE")
	case "M206":
		return true, readAxes(cmd, &d.HomeOffset, "XYZ")
	case "M851":
		return true, readAxes(cmd, &d.ProbeOffset, "XYZ")
	case "M301":
		pid, err := readPID(cmd)
		if err != nil {
			return true, err
		}
		d.HotendPID = pid
		return true, nil
	case "M304":
		pid, err := readPID(cmd)
		if err != nil {
			return true, err
		}
		d.BedPID = pid
		return true, nil
	case "M900":
		k, ok, err := cmd.Float("K")
		if err != nil {
			return true, fmt.Errorf("M900: bad K value %q", cmd.Args["K"])
		}
		if ok {
			d.LinearAdvanceK = &k
		}
		return true, nil
	case "M420":
		lv := &Leveling{}
		s, _, err := cmd.Float("S")
		if err != nil {
			return true, fmt.Errorf("M420: bad S value %q", cmd.Args["S"])
		}
		lv.Enabled = s != 0
		if lv.FadeHeight, _, err = cmd.Float("Z"); err != nil {
			return true, fmt.Errorf("M420: bad Z value %q", cmd.Args["Z"])
		}
		d.Leveling = lv
		return true, nil
	}
	return false, nil
}

// readAxes merges the listed letters of cmd into *dst. A repeated command
// updates the values reported earlier.
func readAxes(cmd *gcode.Command, dst *Axes, letters string) error {
	for _, l := range letters {
		key := string(l)
		v, ok, err := cmd.Float(key)
		if err != nil {
			return fmt.Errorf("%s: bad %s value %q", cmd.Name, key, cmd.Args[key])
		}
		if !ok {
			continue
		}
		if *dst == nil {
			*dst = Axes{}
		}
		(*dst)[key] = v
	}
	return nil
}

func readPID(cmd *gcode.Command) (*PID, error) {
	var pid PID
	for _, g := range []struct {
		key string
		dst *float64
	}{{"P", &pid.P}, {"I", &pid.I}, {"D", &pid.D}} {
		key, dst := g.key, g.dst
		v, ok, err := cmd.Float(key)
		if err != nil {
			return nil, fmt.Errorf("%s: bad %s value %q", cmd.Name, key, cmd.Args[key])
		}
		if !ok {
			return nil, fmt.Errorf("%s: missing %s", cmd.Name, key)
		}
		*dst = v
	}
	return &pid, nil
}
