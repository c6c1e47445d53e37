// Package overlay draws detections and their distances onto frames.
package overlay

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/teslashibe/go-rangefinder/pkg/distance"
)

var (
	summaryColor = color.RGBA{255, 0, 0, 0}
	fpsColor     = color.RGBA{255, 255, 0, 0}
	bannerColor  = color.RGBA{255, 165, 0, 0}
	background   = color.RGBA{0, 0, 0, 0}
)

// DistanceColor shades near objects green and far ones red, saturating
// at maxDistance.
func DistanceColor(cm, maxDistance float64) color.RGBA {
	if maxDistance <= 0 {
		maxDistance = distance.DefaultMaxDistance
	}
	n := math.Max(0, math.Min(cm/maxDistance, 1))
	return color.RGBA{
		R: uint8(255 * n),
		G: uint8(255 * (1 - n)),
		B: 0,
	}
}

// ClassColor returns a stable color for a class name, used for boxes
// without a distance.
func ClassColor(class string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(class))
	sum := h.Sum32()
	// keep channels in 100..254 so boxes stay visible on dark frames
	return color.RGBA{
		R: uint8(100 + sum%155),
		G: uint8(100 + (sum>>8)%155),
		B: uint8(100 + (sum>>16)%155),
	}
}

// Label returns the text drawn above a box. Boxes without a distance get
// no label.
func Label(b Box, unit string) (string, bool) {
	if !b.HasDistance {
		return "", false
	}
	return distance.FormatLabel(b.Class, b.Distance, unit), true
}

// Summary renders per-class counts, most frequent first.
func Summary(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%d %s", counts[name], name)
	}
	return "Objects: " + strings.Join(parts, ", ")
}

// Banner is the calibration-mode status line, empty outside calibration.
func Banner(s Status) string {
	if !s.Calibrating {
		return ""
	}
	if s.SelectedClass == "" {
		choices := make([]string, len(s.Available))
		for i, name := range s.Available {
			choices[i] = fmt.Sprintf("%d:%s", i+1, name)
		}
		if len(choices) == 0 {
			return fmt.Sprintf("CALIBRATION  distance: %.0fcm  no known objects in view", s.CalibrationDistance)
		}
		return fmt.Sprintf("CALIBRATION  distance: %.0fcm  select %s", s.CalibrationDistance, strings.Join(choices, " "))
	}
	return fmt.Sprintf("CALIBRATION  class: %s  distance: %.0fcm  [+/-] distance  [s] save", s.SelectedClass, s.CalibrationDistance)
}

// FPSCounter counts frames over one-second windows.
type FPSCounter struct {
	start time.Time
	count int
	fps   int
}

// Tick records a frame at now and returns the last completed rate.
func (f *FPSCounter) Tick(now time.Time) int {
	if f.start.IsZero() {
		f.start = now
	}
	f.count++
	if now.Sub(f.start) >= time.Second {
		f.fps = f.count
		f.count = 0
		f.start = now
	}
	return f.fps
}
