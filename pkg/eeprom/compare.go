// Drift between a printer's stored settings and a resolved configuration
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package eeprom

import (
	"fmt"
	"math"

	"ufwcfg/pkg/log"
	"ufwcfg/pkg/resolve"
)

// DefaultTolerance matches the two decimals M503 prints values with.
const DefaultTolerance = 0.01

var logger = log.GetLogger("eeprom")

// Drift is one setting whose stored value differs from the configured one.
type Drift struct {
	Field   string  `yaml:"field" json:"field"`
	Command string  `yaml:"command" json:"command"`
	Want    float64 `yaml:"want" json:"want"`
	Got     float64 `yaml:"got" json:"got"`
	Missing bool    `yaml:"missing,omitempty" json:"missing,omitempty"`
}

func (d Drift) String() string {
	if d.Missing {
		return fmt.Sprintf("%s: want %g, not reported (%s)", d.Field, d.Want, d.Command)
	}
	return fmt.Sprintf("%s: want %g, got %g (%s)", d.Field, d.Want, d.Got, d.Command)
}

// Report is the outcome of Compare.
type Report struct {
	Firmware string   `yaml:"firmware,omitempty" json:"firmware,omitempty"`
	Printer  string   `yaml:"printer" json:"printer"`
	Checked  int      `yaml:"checked" json:"checked"`
	Drifts   []Drift  `yaml:"drifts,omitempty" json:"drifts,omitempty"`
	Unknown  []string `yaml:"unknown,omitempty" json:"unknown,omitempty"`
}

// OK reports whether the printer matches the configuration.
func (r Report) OK() bool {
	return len(r.Drifts) == 0
}

// Compare checks the settings the firmware would flash against a dump.
// Values differing by more than tol are reported; tol <= 0 selects
// DefaultTolerance. Settings that only exist with an option enabled (bed
// PID, linear advance, probe offset) are checked only when it is.
func Compare(d *Dump, r *resolve.Resolved, tol float64) Report {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	c := r.Constants
	rep := Report{Firmware: d.Firmware, Printer: string(c.Printer), Unknown: d.Unknown}

	check := func(field, command string, want float64, got float64, present bool) {
		rep.Checked++
		switch {
		case !present:
			rep.Drifts = append(rep.Drifts, Drift{Field: field, Command: command, Want: want, Missing: true})
		case math.Abs(want-got) > tol+1e-9:
			rep.Drifts = append(rep.Drifts, Drift{Field: field, Command: command, Want: want, Got: got})
		}
	}
	checkAxes := func(prefix, command string, axes Axes, letters string, want []float64) {
		for i, l := range letters {
			key := string(l)
			got, ok := axes.Get(key)
			check(fmt.Sprintf("%s.%c", prefix, l+'a'-'A'), command, want[i], got, ok)
		}
	}
	checkPID := func(prefix, command string, got *PID, want resolve.PIDParams) {
		var p PID
		if got != nil {
			p = *got
		}
		check(prefix+".kp", command, want.Kp, p.P, got != nil)
		check(prefix+".ki", command, want.Ki, p.I, got != nil)
		check(prefix+".kd", command, want.Kd, p.D, got != nil)
	}

	checkAxes("steps_per_unit", "M92", d.StepsPerUnit, "XYZE", c.StepsPerUnit[:])
	checkPID("hotend_pid", "M301", d.HotendPID, c.HotendPID)
	if r.Selection.PIDBed {
		checkPID("bed_pid", "M304", d.BedPID, c.BedPID)
	}
	if la := r.Selection.LinearAdvance; la.Enabled {
		var k float64
		if d.LinearAdvanceK != nil {
			k = *d.LinearAdvanceK
		}
		check("linear_advance.k", "M900", la.K, k, d.LinearAdvanceK != nil)
	}
	if off := c.ProbeOffset; off != nil {
		checkAxes("probe_offset", "M851", d.ProbeOffset, "XY", off[:2])
	}

	logger.WithFields(log.Fields{
		"printer": rep.Printer,
		"checked": rep.Checked,
		"drifts":  len(rep.Drifts),
	}).Debug("compared EEPROM dump")
	return rep
}
