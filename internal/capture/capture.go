// Package capture opens the frame sources emolens can read from: a camera,
// a video file or a still image.
package capture

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/emolens/internal/config"
	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

var (
	// ErrUnsupportedFormat is returned for files whose extension is not allowed.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNotOpened is returned when OpenCV cannot open a device or file.
	ErrNotOpened = errors.New("capture could not be opened")
)

// OpenCV property ids for container rotation metadata (CAP_PROP_ORIENTATION_*).
const (
	propOrientationMeta gocv.VideoCaptureProperties = 48
	propOrientationAuto gocv.VideoCaptureProperties = 49
)

// Kind names a source type. It is also what gets recorded in session history.
type Kind string

const (
	KindCamera Kind = "camera"
	KindVideo  Kind = "video"
	KindImage  Kind = "image"
)

// Source yields frames until Read returns false.
type Source interface {
	Read(frame *gocv.Mat) bool
	Kind() Kind
	Path() string
	// Rotation is the clockwise rotation in degrees needed to display frames upright.
	Rotation() int
	// Delay is the pause between consecutive frames.
	Delay() time.Duration
	Close() error
}

// Info describes a video stream.
type Info struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// Capture is a Source backed by an OpenCV VideoCapture.
type Capture struct {
	vc       *gocv.VideoCapture
	kind     Kind
	path     string
	rotation int
	delay    time.Duration
}

// OpenCamera opens the camera with the given device index.
func OpenCamera(device int) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("camera %d: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d: %w", device, ErrNotOpened)
	}
	return &Capture{
		vc:    vc,
		kind:  KindCamera,
		path:  fmt.Sprintf("device:%d", device),
		delay: config.CameraDelay,
	}, nil
}

// OpenVideo opens a video file and reads its rotation metadata.
func OpenVideo(path string) (*Capture, error) {
	if err := checkFile(path, config.IsVideo); err != nil {
		return nil, err
	}
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotOpened)
	}

	// Rotation is applied by us, so OpenCV must not rotate on its own.
	vc.Set(propOrientationAuto, 0)
	rotation := int(vc.Get(propOrientationMeta))

	return &Capture{
		vc:       vc,
		kind:     KindVideo,
		path:     path,
		rotation: normalizeRotation(rotation),
		delay:    config.VideoDelay,
	}, nil
}

func (c *Capture) Read(frame *gocv.Mat) bool {
	if c.vc == nil {
		return false
	}
	if ok := c.vc.Read(frame); !ok {
		return false
	}
	return !frame.Empty()
}

func (c *Capture) Kind() Kind { return c.kind }
func (c *Capture) Path() string { return c.path }
func (c *Capture) Rotation() int { return c.rotation }
func (c *Capture) Delay() time.Duration { return c.delay }

// Info reports the stream geometry and frame rate.
func (c *Capture) Info() Info {
	return Info{
		Width:      int(c.vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(c.vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        c.vc.Get(gocv.VideoCaptureFPS),
		FrameCount: int(c.vc.Get(gocv.VideoCaptureFrameCount)),
	}
}

// Close releases the device or file. It is safe to call more than once.
func (c *Capture) Close() error {
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}

// LoadImage decodes a still image, honoring EXIF orientation, into a BGR Mat.
func LoadImage(path string) (gocv.Mat, error) {
	if err := checkFile(path, config.IsImage); err != nil {
		return gocv.NewMat(), err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("decode %s: %w", path, err)
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert %s: %w", path, err)
	}
	return mat, nil
}

func checkFile(path string, allowed func(string) bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file", path)
	}
	if !allowed(path) {
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	return nil
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
