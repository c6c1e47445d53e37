// Package rangefinder runs the capture, detect, estimate and display loop.
package rangefinder

import (
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/overlay"
)

// Reading is one detection with its estimated distance.
type Reading struct {
	ObjectID   string   `json:"object_id"`
	Class      string   `json:"class"`
	Confidence float64  `json:"confidence"`
	Box        [4]int   `json:"box"` // x, y, width, height
	Distance   *float64 `json:"distance"`
	Category   string   `json:"category"`
}

// Frame is the batch of readings for one processed frame, as streamed to
// dashboard subscribers.
type Frame struct {
	ID       uuid.UUID      `json:"id"`
	Time     time.Time      `json:"time"`
	Readings []Reading      `json:"readings"`
	Counts   map[string]int `json:"counts"`
}

// Measure estimates a distance for every detection. Each detection feeds
// the engine exactly once, so smoothing history advances one sample per
// object per frame.
func Measure(e *distance.Engine, res detection.Result, frameHeight int) []Reading {
	readings := make([]Reading, 0, len(res.Detections))
	for _, d := range res.Detections {
		r := Reading{
			ObjectID:   d.ObjectID,
			Class:      d.ClassName,
			Confidence: d.Confidence,
			Box:        [4]int{d.Box.Min.X, d.Box.Min.Y, d.Box.Dx(), d.Box.Dy()},
			Category:   distance.Category(0),
		}
		cm, ok := e.Estimate(distance.Observation{
			Class:       d.ClassName,
			Width:       d.Width(),
			Height:      d.Height(),
			X:           float64(d.Box.Min.X),
			Y:           float64(d.Box.Min.Y),
			FrameHeight: float64(frameHeight),
			ID:          distance.ObjectID(d.ObjectID),
		})
		if ok {
			r.Distance = &cm
			r.Category = distance.Category(cm)
		}
		readings = append(readings, r)
	}
	return readings
}

// NewFrame stamps readings with a fresh frame id.
func NewFrame(readings []Reading, counts map[string]int, now time.Time) Frame {
	return Frame{
		ID:       uuid.New(),
		Time:     now,
		Readings: readings,
		Counts:   counts,
	}
}

// Boxes converts readings into overlay boxes.
func Boxes(readings []Reading) []overlay.Box {
	boxes := make([]overlay.Box, len(readings))
	for i, r := range readings {
		b := overlay.Box{
			Class: r.Class,
		}
		b.Rect.Min.X, b.Rect.Min.Y = r.Box[0], r.Box[1]
		b.Rect.Max.X, b.Rect.Max.Y = r.Box[0]+r.Box[2], r.Box[1]+r.Box[3]
		if r.Distance != nil {
			b.Distance = *r.Distance
			b.HasDistance = true
		}
		boxes[i] = b
	}
	return boxes
}

// Calibratable lists the configured classes in view, in order of first
// appearance.
func Calibratable(e *distance.Engine, res detection.Result) []string {
	known := detection.FilterClasses(res.Detections, func(class string) bool {
		_, ok := e.Spec(class)
		return ok
	})

	seen := make(map[string]bool)
	var out []string
	for _, d := range known {
		if !seen[d.ClassName] {
			seen[d.ClassName] = true
			out = append(out, d.ClassName)
		}
	}
	return out
}
