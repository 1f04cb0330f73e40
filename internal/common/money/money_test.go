package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndToMajor(t *testing.T) {
	m := New(2345, EUR)
	assert.Equal(t, int64(2345), m.AmountMinor)
	assert.InDelta(t, 23.45, m.ToMajor(), 0.0001)

	// Unknown currencies default to two minor units.
	assert.InDelta(t, 1.50, New(150, Currency("XYZ")).ToMajor(), 0.0001)
}

func TestNegate(t *testing.T) {
	m := New(150, GBP).Negate()
	assert.Equal(t, int64(-150), m.AmountMinor)
	assert.True(t, m.IsNegative())
	assert.InDelta(t, -1.50, m.ToMajor(), 0.0001)
}

func TestAddSub(t *testing.T) {
	a := New(1000, EUR)
	b := New(250, EUR)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.AmountMinor)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(750), diff.AmountMinor)

	_, err = a.Add(New(100, GBP))
	assert.Error(t, err)
	_, err = a.Sub(New(100, GBP))
	assert.Error(t, err)
}

func TestZeroAndEqual(t *testing.T) {
	assert.True(t, Zero(EUR).IsZero())
	assert.True(t, New(100, EUR).Equal(New(100, EUR)))
	assert.False(t, New(100, EUR).Equal(New(100, GBP)))
}
