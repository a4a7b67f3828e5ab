package lossbridge

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Loss is a training objective handed from the code that computes it to the
// code that applies it. It is either a plain scalar or a vector of
// per-sample residuals, in which case the scalar is half their mean square.
type Loss struct {
	value     float64
	residuals *mat.VecDense
}

var zero = &Loss{}

// Zero returns the zero scalar loss. The returned value is shared and must
// not be modified.
func Zero() *Loss {
	return zero
}

func Scalar(v float64) *Loss {
	return &Loss{value: v}
}

// FromResiduals builds a tensor loss from per-sample residuals. The slice is
// copied.
func FromResiduals(residuals []float64) *Loss {
	if len(residuals) == 0 {
		return &Loss{}
	}
	r := make([]float64, len(residuals))
	copy(r, residuals)
	sq := floats.Dot(r, r)
	return &Loss{
		value:     sq / (2 * float64(len(r))),
		residuals: mat.NewVecDense(len(r), r),
	}
}

// Value is the scalar objective.
func (l *Loss) Value() float64 {
	return l.value
}

// Len is the number of residual terms, zero for scalar losses.
func (l *Loss) Len() int {
	if l.residuals == nil {
		return 0
	}
	return l.residuals.Len()
}

func (l *Loss) At(i int) float64 {
	return l.residuals.AtVec(i)
}

// Residuals returns a copy of the residual terms.
func (l *Loss) Residuals() []float64 {
	if l.residuals == nil {
		return nil
	}
	out := make([]float64, l.residuals.Len())
	for i := range out {
		out[i] = l.residuals.AtVec(i)
	}
	return out
}

func (l *Loss) IsScalar() bool {
	return l.residuals == nil
}

// IsZero reports whether applying the loss would change nothing.
func (l *Loss) IsZero() bool {
	return l.value == 0
}
