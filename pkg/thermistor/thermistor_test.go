package thermistor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	s, ok := Lookup(11)
	require.True(t, ok)
	assert.Equal(t, "100k Keenovo 3950", s.Name)

	_, ok = Lookup(42)
	assert.False(t, ok)
}

func TestCodesSorted(t *testing.T) {
	codes := Codes()
	assert.IsIncreasing(t, codes)
	assert.Contains(t, codes, 1047)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(1, false))
	assert.NoError(t, Validate(0, true))
	assert.Error(t, Validate(0, false))
	assert.ErrorContains(t, Validate(9999, true), "unknown sensor code 9999")
}

func TestHighTempWarning(t *testing.T) {
	assert.Empty(t, HighTempWarning(1, 280))
	assert.Contains(t, HighTempWarning(1, 305), "rating")
	assert.Contains(t, HighTempWarning(66, 320), "all-metal")
	assert.Empty(t, HighTempWarning(66, 290))
}
