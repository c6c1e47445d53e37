package camera

import (
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rangefinder/internal/log"
)

// Source reads frames from an OpenCV video device.
type Source struct {
	settings Settings
	logger   *slog.Logger

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

// Open opens the configured device, falling back to device 0 if it
// cannot be opened, and applies the capture settings.
func Open(s Settings, logger *slog.Logger) (*Source, error) {
	l := log.Or(logger, "camera")

	vc, err := gocv.OpenVideoCapture(s.Index)
	if err != nil || !vc.IsOpened() {
		if vc != nil {
			vc.Close()
		}
		if s.Index == 0 {
			return nil, fmt.Errorf("open camera %d: %v", s.Index, err)
		}
		l.Warn("camera unavailable, falling back to device 0", "index", s.Index, "error", err)

		vc, err = gocv.OpenVideoCapture(0)
		if err != nil || !vc.IsOpened() {
			if vc != nil {
				vc.Close()
			}
			return nil, fmt.Errorf("open camera %d or 0: %v", s.Index, err)
		}
		s.Index = 0
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(s.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(s.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(s.FPS))
	if s.BufferSize > 0 {
		vc.Set(gocv.VideoCaptureBufferSize, float64(s.BufferSize))
	}

	// the driver may pick the nearest supported mode
	actual := Settings{
		Index:      s.Index,
		Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        int(vc.Get(gocv.VideoCaptureFPS)),
		BufferSize: s.BufferSize,
	}
	l.Info("camera opened",
		"index", actual.Index,
		"resolution", fmt.Sprintf("%dx%d", actual.Width, actual.Height),
		"fps", actual.FPS)

	return &Source{settings: actual, logger: l, cap: vc}, nil
}

// Settings returns the settings the device actually accepted.
func (s *Source) Settings() Settings {
	return s.settings
}

// Read grabs the next frame into dst.
func (s *Source) Read(dst *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return fmt.Errorf("camera closed")
	}
	if ok := s.cap.Read(dst); !ok || dst.Empty() {
		return fmt.Errorf("camera %d: no frame", s.settings.Index)
	}
	return nil
}

// Close releases the device.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.cap = nil
	return err
}
