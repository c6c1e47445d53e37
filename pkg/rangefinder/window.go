package rangefinder

import "gocv.io/x/gocv"

// Display shows frames and reports key presses.
type Display interface {
	Show(frame gocv.Mat)
	// Key waits briefly and returns the pressed key, or -1.
	Key() int
	Close() error
}

// Window is a Display backed by an OpenCV HighGUI window.
type Window struct {
	w *gocv.Window
}

// NewWindow opens a named window.
func NewWindow(name string) *Window {
	return &Window{w: gocv.NewWindow(name)}
}

func (w *Window) Show(frame gocv.Mat) {
	w.w.IMShow(frame)
}

func (w *Window) Key() int {
	k := w.w.WaitKey(1)
	if k < 0 {
		return -1
	}
	return k & 0xFF
}

func (w *Window) Close() error {
	return w.w.Close()
}
