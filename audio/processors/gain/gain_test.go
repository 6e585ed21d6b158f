package gain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDBToFactor(t *testing.T) {
	tests := []struct {
		db   float32
		want float32
	}{
		{0, 1},
		{20, 10},
		{-20, 0.1},
		{-6.0206, 0.5},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, DBToFactor(tc.db), 1e-4, "%v dB", tc.db)
	}
}

func TestProcess(t *testing.T) {
	g := New(-6.0206)
	src := []float32{1, -1, 0.5}
	dst := make([]float32, 3)
	g.Process(dst, src)
	assert.InDeltaSlice(t, []float32{0.5, -0.5, 0.25}, dst, 1e-4)

	g.SetDB(0)
	assert.Equal(t, float32(0), g.DB())
	g.Process(src, src)
	assert.Equal(t, []float32{1, -1, 0.5}, src)
}
