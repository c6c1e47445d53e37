// Package detection finds objects in camera frames and labels them with
// the per-frame object ids the distance engine keys its history by.
package detection

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Detection is one detected object in pixel coordinates.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float64
	Box        image.Rectangle
	ObjectID   string
}

// Width returns the box width in pixels.
func (d Detection) Width() float64 { return float64(d.Box.Dx()) }

// Height returns the box height in pixels.
func (d Detection) Height() float64 { return float64(d.Box.Dy()) }

// Result is the output of one detection pass.
type Result struct {
	Detections []Detection
	Counts     map[string]int // detections per class
}

// Classes returns the detected class names, most frequent first, ties
// broken alphabetically.
func (r Result) Classes() []string {
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.Counts[names[i]] != r.Counts[names[j]] {
			return r.Counts[names[i]] > r.Counts[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Detector is the interface for object detection backends.
type Detector interface {
	// Detect finds objects in a BGR frame.
	Detect(frame gocv.Mat) (Result, error)

	// Close releases resources
	Close() error
}

// AssignIDs numbers detections per class in order ("person_1",
// "person_2", "cup_1") and counts them. Ids are only stable across frames
// as long as the detector returns objects in a stable order.
func AssignIDs(dets []Detection) Result {
	counts := make(map[string]int)
	for i := range dets {
		counts[dets[i].ClassName]++
		dets[i].ObjectID = fmt.Sprintf("%s_%d", dets[i].ClassName, counts[dets[i].ClassName])
	}
	return Result{Detections: dets, Counts: counts}
}

// FilterClasses keeps only detections whose class is in keep.
func FilterClasses(dets []Detection, keep func(string) bool) []Detection {
	out := dets[:0:0]
	for _, d := range dets {
		if keep(d.ClassName) {
			out = append(out, d)
		}
	}
	return out
}

// First returns the first detection of class, if any.
func (r Result) First(class string) (Detection, bool) {
	for _, d := range r.Detections {
		if d.ClassName == class {
			return d, true
		}
	}
	return Detection{}, false
}
