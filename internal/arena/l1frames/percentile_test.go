package l1frames

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"single value", []float64{7}, 42, 7},
		{"min", []float64{3, 1, 2}, 0, 1},
		{"max", []float64{3, 1, 2}, 100, 3},
		{"interpolated", []float64{1, 2, 3, 4}, 50, 2.5},
		{"quarter", []float64{0, 10, 20, 30, 40}, 25, 10},
		{"between ranks", []float64{0, 10}, 75, 7.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.values, tt.p), 1e-12)
		})
	}
}

func TestPercentileDoesNotMutate(t *testing.T) {
	t.Parallel()
	v := []float64{5, 1, 3}
	_ = Percentile(v, 50)
	assert.Equal(t, []float64{5, 1, 3}, v)
}

func TestMedian(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(Median(nil)))
}
