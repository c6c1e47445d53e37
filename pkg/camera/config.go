// Package camera captures frames from a local video device.
package camera

import "fmt"

// Settings holds capture configuration.
type Settings struct {
	Index      int `json:"index"`       // Device index
	Width      int `json:"width"`       // Frame width in pixels
	Height     int `json:"height"`      // Frame height in pixels
	FPS        int `json:"fps"`         // Target FPS
	BufferSize int `json:"buffer_size"` // Driver-side frame queue; 1 keeps latency low
}

// Capture limits accepted by Validate.
const (
	MaxWidth  = 7680
	MaxHeight = 4320
	MaxFPS    = 240
)

// DefaultSettings returns 720p at 30 FPS on the first device.
func DefaultSettings() Settings {
	return Settings{
		Index:      0,
		Width:      1280,
		Height:     720,
		FPS:        30,
		BufferSize: 1,
	}
}

// Validate checks if the settings are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (s Settings) Validate() []string {
	var errors []string

	if s.Index < 0 {
		errors = append(errors, "index must be >= 0")
	}
	if s.Width < 160 || s.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if s.Height < 120 || s.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if s.FPS < 1 || s.FPS > MaxFPS {
		errors = append(errors, fmt.Sprintf("fps must be between 1 and %d", MaxFPS))
	}
	if s.BufferSize < 0 {
		errors = append(errors, "buffer_size must be >= 0")
	}

	return errors
}
