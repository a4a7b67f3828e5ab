package core

import "github.com/zeu5/lossbridge/util"

// A painter abstracts a state into the key used for coverage
type Painter func(State) string

// HashPainter paints every state with its own hash
func HashPainter() Painter {
	return func(s State) string {
		return s.Hash()
	}
}

// A painter that returns key value for the state
// Should be used with ComposedPainter
type KVPainter func(State) (string, interface{})

// ComposedPainter is a painter that is composed of multiple KVPainters
type ComposedPainter struct {
	SegPainters []KVPainter
}

func NewComposedPainter(sp ...KVPainter) *ComposedPainter {
	return &ComposedPainter{
		SegPainters: sp,
	}
}

// Painter returns a painter hashing the combined key values
func (c *ComposedPainter) Painter() Painter {
	return func(s State) string {
		m := make(map[string]interface{})
		for _, sp := range c.SegPainters {
			k, v := sp(s)
			m[k] = v
		}
		return util.JsonHash(m)
	}
}
