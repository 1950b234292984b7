// Input shaper tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package inputshaper

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZVShaperNormalized(t *testing.T) {
	s, err := New(ShaperZV, 40, 0.15)
	require.NoError(t, err)
	require.Len(t, s.A, 2)

	K := math.Exp(-0.15 * math.Pi / math.Sqrt(1-0.15*0.15))
	assert.InDelta(t, 1/(1+K), s.A[0], 1e-12)
	assert.InDelta(t, K/(1+K), s.A[1], 1e-12)
	assert.InDelta(t, 0.5/(40*math.Sqrt(1-0.15*0.15)), s.T[1], 1e-12)
	assert.InDelta(t, s.T[1], s.Duration(), 1e-12)
}

func TestShaperAmplitudesSumToOne(t *testing.T) {
	for _, cfg := range InputShapers {
		s, err := New(cfg.Name, 55, 0.1)
		require.NoError(t, err, cfg.Name)
		sum := 0.0
		for _, a := range s.A {
			sum += a
		}
		assert.InDelta(t, 1.0, sum, 1e-12, cfg.Name)
		assert.Len(t, s.T, len(s.A), cfg.Name)
	}
}

func TestCriticalDampingIsSinglePulse(t *testing.T) {
	s, err := New(ShaperZV, 40, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, s.A)
	assert.Equal(t, 0.0, s.Duration())
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		freq, damping float64
		ok            bool
	}{
		{40, 0.15, true},
		{200, 0, true},
		{0, 0.1, false},
		{-5, 0.1, false},
		{200.5, 0.1, false},
		{40, -0.01, false},
		{40, 1.01, false},
		{math.NaN(), 0.1, false},
	}
	for _, tt := range tests {
		err := Validate(tt.freq, tt.damping)
		if tt.ok {
			assert.NoError(t, err, "freq=%v damping=%v", tt.freq, tt.damping)
		} else {
			assert.Error(t, err, "freq=%v damping=%v", tt.freq, tt.damping)
		}
	}
}

func TestUnknownShaper(t *testing.T) {
	_, err := New("ei", 40, 0.1)
	assert.ErrorContains(t, err, "unsupported shaper type")
	assert.NotNil(t, GetShaperByName(" MZV "))
}
