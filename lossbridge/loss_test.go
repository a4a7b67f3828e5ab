package lossbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalar(t *testing.T) {
	l := Scalar(3.5)
	assert.Equal(t, 3.5, l.Value())
	assert.True(t, l.IsScalar())
	assert.False(t, l.IsZero())
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Residuals())
}

func TestFromResiduals(t *testing.T) {
	in := []float64{1, -3}
	l := FromResiduals(in)
	in[0] = 100

	assert.False(t, l.IsScalar())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1.0, l.At(0))
	assert.Equal(t, -3.0, l.At(1))
	// (1 + 9) / (2 * 2)
	assert.InDelta(t, 2.5, l.Value(), 1e-12)
	assert.Equal(t, []float64{1, -3}, l.Residuals())
}

func TestFromResidualsZero(t *testing.T) {
	assert.True(t, FromResiduals(nil).IsZero())
	assert.True(t, FromResiduals([]float64{0, 0}).IsZero())
	assert.True(t, Zero().IsZero())
	assert.Same(t, Zero(), Zero())
}
