// Input shaper pulse trains for the firmware's fixed-time motion shaping
//
// Copyright (C) 2020-2021  Dmitry Butyugin <dmbutyugin@google.com>
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package inputshaper

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MaxFrequency is the highest resonance frequency the firmware accepts, in Hz.
	MaxFrequency = 200.0

	DefaultFrequency    = 40.0
	DefaultDampingRatio = 0.15
)

// ShaperType represents an input shaper algorithm type.
type ShaperType string

const (
	ShaperZV  ShaperType = "zv"
	ShaperMZV ShaperType = "mzv"
	ShaperZVD ShaperType = "zvd"
)

// ShaperConfig defines the configuration for a shaper type.
type ShaperConfig struct {
	Name     ShaperType
	InitFunc func(shaperFreq, dampingRatio float64) (A, T []float64)
}

// InputShapers is the list of available input shapers. The firmware itself
// only runs ZV; the others are offered for comparison reports.
var InputShapers = []ShaperConfig{
	{Name: ShaperZV, InitFunc: GetZVShaper},
	{Name: ShaperMZV, InitFunc: GetMZVShaper},
	{Name: ShaperZVD, InitFunc: GetZVDShaper},
}

// GetShaperByName returns the shaper config for the given name.
func GetShaperByName(name ShaperType) *ShaperConfig {
	name = ShaperType(strings.ToLower(strings.TrimSpace(string(name))))
	for i := range InputShapers {
		if InputShapers[i].Name == name {
			return &InputShapers[i]
		}
	}
	return nil
}

// Validate checks a frequency/damping pair against the firmware's accepted range.
func Validate(freq, damping float64) error {
	if math.IsNaN(freq) || freq <= 0 || freq > MaxFrequency {
		return fmt.Errorf("shaping frequency %v Hz out of range (0, %v]", freq, MaxFrequency)
	}
	if math.IsNaN(damping) || damping < 0 || damping > 1 {
		return fmt.Errorf("damping ratio %v out of range [0, 1]", damping)
	}
	return nil
}

// Shaper is a normalized pulse train for one axis.
type Shaper struct {
	Type    ShaperType `yaml:"type" json:"type"`
	Freq    float64    `yaml:"freq" json:"freq"`
	Damping float64    `yaml:"damping" json:"damping"`
	A       []float64  `yaml:"amplitudes" json:"amplitudes"`
	T       []float64  `yaml:"times" json:"times"`
}

// New validates the parameters and computes the shaper pulse train with
// amplitudes normalized to sum to one.
func New(shaperType ShaperType, freq, damping float64) (Shaper, error) {
	if shaperType == "" {
		shaperType = ShaperZV
	}
	cfg := GetShaperByName(shaperType)
	if cfg == nil {
		return Shaper{}, fmt.Errorf("unsupported shaper type: %s", shaperType)
	}
	if err := Validate(freq, damping); err != nil {
		return Shaper{}, err
	}

	var A, T []float64
	if damping >= 1 {
		// A critically damped axis does not ring.
		A, T = []float64{1}, []float64{0}
	} else {
		A, T = cfg.InitFunc(freq, damping)
	}

	sum := 0.0
	for _, a := range A {
		sum += a
	}
	for i := range A {
		A[i] /= sum
	}
	return Shaper{Type: cfg.Name, Freq: freq, Damping: damping, A: A, T: T}, nil
}

// Duration returns the time span of the pulse train in seconds.
func (s Shaper) Duration() float64 {
	if len(s.T) == 0 {
		return 0
	}
	return s.T[len(s.T)-1] - s.T[0]
}

// GetZVShaper computes the ZV (Zero Vibration) shaper coefficients.
func GetZVShaper(shaperFreq, dampingRatio float64) (A, T []float64) {
	df := math.Sqrt(1.0 - dampingRatio*dampingRatio)
	K := math.Exp(-dampingRatio * math.Pi / df)
	t_d := 1.0 / (shaperFreq * df)
	A = []float64{1.0, K}
	T = []float64{0.0, 0.5 * t_d}
	return A, T
}

// GetZVDShaper computes the ZVD (Zero Vibration Derivative) shaper coefficients.
func GetZVDShaper(shaperFreq, dampingRatio float64) (A, T []float64) {
	df := math.Sqrt(1.0 - dampingRatio*dampingRatio)
	K := math.Exp(-dampingRatio * math.Pi / df)
	t_d := 1.0 / (shaperFreq * df)
	A = []float64{1.0, 2.0 * K, K * K}
	T = []float64{0.0, 0.5 * t_d, t_d}
	return A, T
}

// GetMZVShaper computes the MZV (Modified Zero Vibration) shaper coefficients.
func GetMZVShaper(shaperFreq, dampingRatio float64) (A, T []float64) {
	df := math.Sqrt(1.0 - dampingRatio*dampingRatio)
	K := math.Exp(-0.75 * dampingRatio * math.Pi / df)
	t_d := 1.0 / (shaperFreq * df)

	a1 := 1.0 - 1.0/math.Sqrt(2.0)
	a2 := (math.Sqrt(2.0) - 1.0) * K
	a3 := a1 * K * K

	A = []float64{a1, a2, a3}
	T = []float64{0.0, 0.375 * t_d, 0.75 * t_d}
	return A, T
}
