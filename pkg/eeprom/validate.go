// Sanity checks on a printer's stored settings
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package eeprom

import "fmt"

// Severity ranks a Warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Warning is a stored value that looks wrong on its own, with no
// configuration to compare it against.
type Warning struct {
	Severity Severity `yaml:"severity" json:"severity"`
	Field    string   `yaml:"field" json:"field"`
	Command  string   `yaml:"command" json:"command"`
	Message  string   `yaml:"message" json:"message"`
	Hint     string   `yaml:"hint,omitempty" json:"hint,omitempty"`
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s: %s (%s)", w.Field, w.Message, w.Command)
	if w.Hint != "" {
		s += "; " + w.Hint
	}
	return s
}

// Plausible e-steps range. Geared and bowden extruders all land inside it.
const (
	MinESteps = 50
	MaxESteps = 2000
)

// stockESteps are the factory values of the Creality bowden extruder and the
// common dual-gear upgrades. A printer still on them was never calibrated.
var stockESteps = []float64{93, 415}

// Limits beyond which a value is usable but probably unintended.
const (
	MinEFeedrate = 10   // mm/s
	MaxXAccel    = 3000 // mm/s²
)

// Validate checks the dump for values that are out of range, stock or
// missing. Checks whose command the printer did not report are skipped,
// except where the absence is itself the problem.
func (d *Dump) Validate() []Warning {
	var out []Warning
	add := func(sev Severity, field, command, hint, format string, args ...any) {
		out = append(out, Warning{Severity: sev, Field: field, Command: command,
			Message: fmt.Sprintf(format, args...), Hint: hint})
	}

	if e, ok := d.StepsPerUnit.Get("E"); !ok {
		add(SeverityWarning, "steps_per_unit.e", "M92", "run the e-steps calibration", "not reported")
	} else if e < MinESteps || e > MaxESteps {
		add(SeverityError, "steps_per_unit.e", "M92", "check the value or run the e-steps calibration",
			"%g steps/mm is outside the usual %d to %d", e, MinESteps, MaxESteps)
	} else if isStockESteps(e) {
		add(SeverityInfo, "steps_per_unit.e", "M92", "calibrate for your extruder",
			"%g steps/mm is a factory default", e)
	}

	if f, ok := d.MaxFeedrate.Get("E"); ok && f < MinEFeedrate {
		add(SeverityWarning, "max_feedrate.e", "M203", "raise it if the extruder can keep up",
			"%g mm/s limits retraction and print speed", f)
	}
	if a, ok := d.MaxAccel.Get("X"); ok && a > MaxXAccel {
		add(SeverityWarning, "max_accel.x", "M201", "lower it for cleaner prints",
			"%g mm/s² is likely to cause ringing", a)
	}
	if d.HotendPID == nil {
		add(SeverityWarning, "hotend_pid", "M301", "run M303 autotune", "not reported")
	}
	if z, ok := d.ProbeOffset.Get("Z"); ok && z == 0 {
		add(SeverityInfo, "probe_offset.z", "M851", "run a first layer calibration",
			"exactly 0, probably never set")
	}
	if d.LinearAdvanceK == nil || *d.LinearAdvanceK == 0 {
		add(SeverityInfo, "linear_advance_k", "M900", "calibrate K for sharper corners", "not set")
	}
	return out
}

func isStockESteps(v float64) bool {
	for _, s := range stockESteps {
		if v == s {
			return true
		}
	}
	return false
}
