// Skew correction factors
//
// Factors follow the firmware planner's definition: the tangent of the
// deviation from a right angle, derived from the two diagonals and one side
// of a printed calibration square.
//
// Copyright (C) 2019 Eric Callahan <arksine.code@gmail.com>
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package skew

import (
	"fmt"
	"math"
	"strings"
)

// Bounds the firmware accepts for any skew factor.
const (
	FactorMin = -1.0
	FactorMax = 1.0
)

// CalcSkewFactor calculates skew factor from measured diagonal lengths.
func CalcSkewFactor(ac, bd, ad float64) float64 {
	side := math.Sqrt(2*ac*ac+2*bd*bd-4*ad*ad) / 2.0
	return math.Tan(math.Pi/2 - math.Acos((ac*ac-side*side-ad*ad)/(2*side*ad)))
}

// Measurement is one plane's calibration square.
type Measurement struct {
	AC float64 `yaml:"diag_ac" json:"diag_ac"`
	BD float64 `yaml:"diag_bd" json:"diag_bd"`
	AD float64 `yaml:"side_ad" json:"side_ad"`
}

// Validate checks that the lengths describe a real parallelogram.
func (m Measurement) Validate() error {
	if m.AC <= 0 || m.BD <= 0 || m.AD <= 0 {
		return fmt.Errorf("lengths must be positive (ac=%v bd=%v ad=%v)", m.AC, m.BD, m.AD)
	}
	f := CalcSkewFactor(m.AC, m.BD, m.AD)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("lengths ac=%v bd=%v ad=%v do not form a parallelogram", m.AC, m.BD, m.AD)
	}
	return nil
}

// Factor returns the skew factor for the measurement.
func (m Measurement) Factor() float64 {
	return CalcSkewFactor(m.AC, m.BD, m.AD)
}

// Factors holds a set of skew correction factors.
type Factors struct {
	XY float64 `yaml:"xy" json:"xy"`
	XZ float64 `yaml:"xz" json:"xz"`
	YZ float64 `yaml:"yz" json:"yz"`
}

// Validate rejects factors the firmware would clamp.
func (f Factors) Validate() error {
	for _, p := range []struct {
		plane string
		v     float64
	}{{"XY", f.XY}, {"XZ", f.XZ}, {"YZ", f.YZ}} {
		if math.IsNaN(p.v) || p.v < FactorMin || p.v > FactorMax {
			return fmt.Errorf("%s skew factor %v out of range [%v, %v]", p.plane, p.v, FactorMin, FactorMax)
		}
	}
	return nil
}

// Set stores a factor for the named plane.
func (f *Factors) Set(plane string, factor float64) error {
	switch strings.ToUpper(plane) {
	case "XY":
		f.XY = factor
	case "XZ":
		f.XZ = factor
	case "YZ":
		f.YZ = factor
	default:
		return fmt.Errorf("unknown skew plane '%s'", plane)
	}
	return nil
}

// Skew maps a commanded position to the skewed machine position.
func (f Factors) Skew(pos []float64) []float64 {
	if len(pos) < 3 {
		return pos
	}
	result := make([]float64, len(pos))
	result[0] = pos[0] - pos[1]*f.XY - pos[2]*(f.XZ-(f.XY*f.YZ))
	result[1] = pos[1] - pos[2]*f.YZ
	copy(result[2:], pos[2:])
	return result
}

// Unskew reverses Skew.
func (f Factors) Unskew(pos []float64) []float64 {
	if len(pos) < 3 {
		return pos
	}
	result := make([]float64, len(pos))
	result[0] = pos[0] + pos[1]*f.XY + pos[2]*f.XZ
	result[1] = pos[1] + pos[2]*f.YZ
	copy(result[2:], pos[2:])
	return result
}

// Degrees converts a factor to the angle it corrects.
func Degrees(factor float64) float64 {
	return math.Atan(factor) * 180 / math.Pi
}
