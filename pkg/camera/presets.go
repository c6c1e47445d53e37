package camera

import (
	"fmt"
	"sort"
)

// Preset names for common resolutions
const (
	Preset480p  = "480p"
	Preset720p  = "720p"
	Preset1080p = "1080p"
)

// Presets returns all available resolution presets.
func Presets() map[string]Settings {
	return map[string]Settings{
		Preset480p:  {Width: 640, Height: 480, FPS: 30, BufferSize: 1},
		Preset720p:  {Width: 1280, Height: 720, FPS: 30, BufferSize: 1},
		Preset1080p: {Width: 1920, Height: 1080, FPS: 30, BufferSize: 1},
	}
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, 3)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overrides resolution, FPS and buffering of s with a named
// preset, keeping the device index.
func ApplyPreset(s Settings, name string) (Settings, error) {
	p, ok := Presets()[name]
	if !ok {
		return s, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	p.Index = s.Index
	return p, nil
}
