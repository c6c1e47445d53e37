package distance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(s *Smoother, id ObjectID, values ...float64) float64 {
	var out float64
	for _, v := range values {
		out = s.Smooth(v, id)
	}
	return out
}

func TestSmooth_PassThroughBelowThreeSamples(t *testing.T) {
	s := NewSmoother(5)

	assert.Equal(t, 100.0, s.Smooth(100, "cup_1"))
	assert.Equal(t, 180.0, s.Smooth(180, "cup_1"))
}

func TestSmooth_RejectsSingleOutlier(t *testing.T) {
	s := NewSmoother(5)

	got := feed(s, "person_1", 100, 102, 101, 500)

	// median 101.5, MAD 1.0: 500 is dropped, the rest are recency weighted
	assert.InDelta(t, 101.11, got, 0.01)
}

func TestSmooth_RecencyWeightedMean(t *testing.T) {
	s := NewSmoother(5)

	// median 20, MAD 10: nothing dropped; weights 0.5, 0.75, 1.0
	got := feed(s, "a", 10, 20, 30)
	assert.InDelta(t, 50.0/2.25, got, 1e-9)
}

func TestSmooth_ConstantInputConverges(t *testing.T) {
	s := NewSmoother(4)

	var got float64
	for i := 0; i < 10; i++ {
		got = s.Smooth(237.5, "bottle_1")
	}
	assert.Equal(t, 237.5, got)
}

func TestSmooth_ZeroMADReturnsMedian(t *testing.T) {
	s := NewSmoother(5)

	got := feed(s, "a", 5, 5, 5, 9)
	assert.Equal(t, 5.0, got)
}

func TestSmooth_WindowBounded(t *testing.T) {
	s := NewSmoother(3)

	feed(s, "a", 1, 2, 3, 4, 5, 6)
	assert.Equal(t, []float64{4, 5, 6}, s.History("a"))
	assert.Equal(t, 3, s.Window())
}

func TestSmooth_WindowOfOneNeverSmooths(t *testing.T) {
	s := NewSmoother(1)

	assert.Equal(t, 10.0, feed(s, "a", 100, 400, 10))
	assert.Len(t, s.History("a"), 1)
}

func TestSmooth_IndependentObjects(t *testing.T) {
	s := NewSmoother(5)

	feed(s, "cup_1", 10, 10, 10)
	assert.Equal(t, 300.0, s.Smooth(300, "cup_2"), "new id starts fresh")
	assert.Equal(t, 2, s.Len())
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(5)
	feed(s, "a", 100, 100, 100, 100)

	s.Reset()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 400.0, s.Smooth(400, "a"))
	assert.Equal(t, 410.0, s.Smooth(410, "a"))
}

func TestSmoother_Release(t *testing.T) {
	s := NewSmoother(5)
	feed(s, "a", 1, 2)
	feed(s, "b", 1, 2)

	s.Release("a")
	assert.Nil(t, s.History("a"))
	assert.Len(t, s.History("b"), 2)
}

func TestSmoother_Prune(t *testing.T) {
	s := NewSmoother(5)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Smooth(1, "stale")
	now = now.Add(20 * time.Second)
	s.Smooth(1, "fresh")
	now = now.Add(15 * time.Second)

	assert.Equal(t, 0, s.Prune(0), "non-positive idle disables pruning")
	require.Equal(t, 1, s.Prune(30*time.Second))
	assert.Nil(t, s.History("stale"))
	assert.NotNil(t, s.History("fresh"))
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]float64(nil), tt.in...)
			assert.Equal(t, tt.want, median(in))
			assert.Equal(t, tt.in, in, "input must not be reordered")
		})
	}
}
