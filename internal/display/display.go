// Package display renders annotated frames in an OpenCV window and optionally
// writes them to disk.
package display

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
)

// Keys that end playback.
const (
	keyEsc = 27
	keyQ   = 'q'
)

// Window wraps a gocv highgui window.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window. Must be called from the main goroutine.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

func (w *Window) Show(frame gocv.Mat) error {
	if frame.Empty() {
		return errors.New("cannot render empty frame")
	}
	w.win.IMShow(frame)
	return nil
}

// Poll pumps the window event loop for delay and reports whether the user
// asked to stop (q, Esc or closing the window).
func (w *Window) Poll(delay time.Duration) bool {
	ms := int(delay / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	key := w.win.WaitKey(ms)
	if key == keyEsc || key == keyQ {
		return true
	}
	return w.win.GetWindowProperty(gocv.WindowPropertyVisible) < 1
}

// Wait blocks until a key is pressed or the window is closed. Used for still images.
func (w *Window) Wait() {
	for !w.Poll(100 * time.Millisecond) {
	}
}

func (w *Window) Close() error {
	return w.win.Close()
}

// VideoSink writes frames to a video file. The writer is created lazily from
// the first frame's size so resized output needs no upfront geometry.
type VideoSink struct {
	Path  string
	Codec string
	FPS   float64

	writer *gocv.VideoWriter
	size   image.Point
}

// NewVideoSink prepares a sink; nothing touches disk until the first Write.
func NewVideoSink(path, codec string, fps float64) *VideoSink {
	if fps <= 0 {
		fps = 30
	}
	return &VideoSink{Path: path, Codec: codec, FPS: fps}
}

func (v *VideoSink) Write(frame gocv.Mat) error {
	if v.writer == nil {
		if err := os.MkdirAll(filepath.Dir(v.Path), 0755); err != nil {
			return err
		}
		w, err := gocv.VideoWriterFile(v.Path, v.Codec, v.FPS, frame.Cols(), frame.Rows(), true)
		if err != nil {
			return fmt.Errorf("open video writer: %w", err)
		}
		v.writer = w
		v.size = image.Pt(frame.Cols(), frame.Rows())
	}
	if frame.Cols() != v.size.X || frame.Rows() != v.size.Y {
		fitted := gocv.NewMat()
		defer fitted.Close()
		gocv.Resize(frame, &fitted, v.size, 0, 0, gocv.InterpolationLinear)
		return v.writer.Write(fitted)
	}
	return v.writer.Write(frame)
}

func (v *VideoSink) Close() error {
	if v.writer == nil {
		return nil
	}
	err := v.writer.Close()
	v.writer = nil
	return err
}

// SaveImage writes frame to path; the format follows the extension.
func SaveImage(path string, frame gocv.Mat) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if ok := gocv.IMWrite(path, frame); !ok {
		return fmt.Errorf("failed to write image %s", path)
	}
	return nil
}
