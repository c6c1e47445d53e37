package distance

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ObjectID identifies one physical object across frames. It is opaque to
// the engine and assigned by the detector.
type ObjectID string

// minSamples is the history length below which raw values pass through.
const minSamples = 3

// outlierMADs is how many median absolute deviations a sample may sit
// from the median before it is discarded.
const outlierMADs = 2.0

// Recency weights ramp linearly from oldest to newest retained sample.
const (
	oldestWeight = 0.5
	newestWeight = 1.0
)

type history struct {
	samples  []float64
	lastSeen time.Time
}

// Smoother keeps a bounded per-object history of raw distances and
// reduces it to a robust estimate. It is safe for concurrent use.
type Smoother struct {
	window int
	now    func() time.Time

	mu      sync.Mutex
	objects map[ObjectID]*history
}

// NewSmoother creates a smoother that keeps at most window samples per
// object. Windows below 1 are treated as 1.
func NewSmoother(window int) *Smoother {
	if window < 1 {
		window = 1
	}
	return &Smoother{
		window:  window,
		now:     time.Now,
		objects: make(map[ObjectID]*history),
	}
}

// Window returns the per-object history bound.
func (s *Smoother) Window() int {
	return s.window
}

// Smooth records raw for id and returns the smoothed distance.
//
// With fewer than three samples raw is returned unchanged. Otherwise
// samples further than 2×MAD from the median are discarded and the rest
// are averaged with weights rising from 0.5 (oldest) to 1.0 (newest).
// If MAD is zero the median is returned.
func (s *Smoother) Smooth(raw float64, id ObjectID) float64 {
	s.mu.Lock()
	h, ok := s.objects[id]
	if !ok {
		h = &history{samples: make([]float64, 0, s.window)}
		s.objects[id] = h
	}
	h.samples = append(h.samples, raw)
	if len(h.samples) > s.window {
		// evict oldest, keep the backing array bounded
		n := copy(h.samples, h.samples[len(h.samples)-s.window:])
		h.samples = h.samples[:n]
	}
	h.lastSeen = s.now()

	if len(h.samples) < minSamples {
		s.mu.Unlock()
		return raw
	}
	samples := append([]float64(nil), h.samples...)
	s.mu.Unlock()

	return robustMean(samples)
}

// robustMean applies the MAD outlier filter and recency-weighted mean to
// samples in temporal order.
func robustMean(samples []float64) float64 {
	med := median(samples)

	deviations := make([]float64, len(samples))
	for i, v := range samples {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad <= 0 {
		return med
	}

	kept := make([]float64, 0, len(samples))
	for i, v := range samples {
		if deviations[i] <= outlierMADs*mad {
			kept = append(kept, v)
		}
	}

	switch len(kept) {
	case 0:
		return med
	case 1:
		return kept[0]
	}

	weights := floats.Span(make([]float64, len(kept)), oldestWeight, newestWeight)
	return stat.Mean(kept, weights)
}

// median returns the middle value, averaging the two middle values for
// even lengths. xs is not modified.
func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Reset clears the history of every object.
func (s *Smoother) Reset() {
	s.mu.Lock()
	s.objects = make(map[ObjectID]*history)
	s.mu.Unlock()
}

// Release forgets a single object.
func (s *Smoother) Release(id ObjectID) {
	s.mu.Lock()
	delete(s.objects, id)
	s.mu.Unlock()
}

// Prune forgets objects not updated within maxIdle and returns how many
// were removed. A non-positive maxIdle does nothing.
func (s *Smoother) Prune(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, h := range s.objects {
		if h.lastSeen.Before(cutoff) {
			delete(s.objects, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked objects.
func (s *Smoother) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// History returns a copy of the samples held for id, oldest first.
func (s *Smoother) History(id ObjectID) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.objects[id]
	if !ok {
		return nil
	}
	return append([]float64(nil), h.samples...)
}
