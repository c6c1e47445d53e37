// Package calibration persists per-class focal length and correction
// overrides produced by the distance engine's calibration procedure.
package calibration

import "sort"

// Entry is a calibration override for one object class.
// A zero field means the override is absent.
type Entry struct {
	FocalLength      float64 `json:"focal_length,omitempty"`
	CorrectionFactor float64 `json:"correction_factor,omitempty"`
}

// HasFocalLength reports whether the entry overrides the focal length.
func (e Entry) HasFocalLength() bool { return e.FocalLength > 0 }

// HasCorrection reports whether the entry carries a correction factor.
func (e Entry) HasCorrection() bool { return e.CorrectionFactor > 0 }

// Valid reports whether the entry has at least one usable override and
// no negative values.
func (e Entry) Valid() bool {
	if e.FocalLength < 0 || e.CorrectionFactor < 0 {
		return false
	}
	return e.HasFocalLength() || e.HasCorrection()
}

// Table maps class name to its calibration entry.
type Table map[string]Entry

// Clone returns a copy that shares nothing with t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Classes returns the calibrated class names in sorted order.
func (t Table) Classes() []string {
	names := make([]string, 0, len(t))
	for k := range t {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Sanitize drops invalid entries and returns the names it dropped.
func (t Table) Sanitize() []string {
	var dropped []string
	for k, v := range t {
		if !v.Valid() {
			dropped = append(dropped, k)
			delete(t, k)
		}
	}
	sort.Strings(dropped)
	return dropped
}
