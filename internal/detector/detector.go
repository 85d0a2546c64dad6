// Package detector runs the emotion model over frames. The model itself is
// external: either a Python FER process or an ONNX classifier.
package detector

import (
	"context"
	"fmt"
	"image"

	"github.com/andresmejia3/emolens/internal/types"
	"github.com/andresmejia3/emolens/internal/worker"
	"gocv.io/x/gocv"
)

// Backend names
const (
	BackendPython = "python"
	BackendONNX   = "onnx"
)

// Detector finds faces and scores their emotions.
type Detector interface {
	// Detect returns zero or more faces with boxes in frame pixels.
	Detect(frame gocv.Mat) ([]types.Face, error)

	// Close releases resources
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Worker  worker.Config
	ONNX    ONNXConfig
}

// New builds the detector named by opts.Backend. id distinguishes engines in logs.
func New(ctx context.Context, id int, opts Options) (Detector, error) {
	switch opts.Backend {
	case BackendPython, "":
		return NewPython(ctx, id, opts.Worker)
	case BackendONNX:
		return NewONNX(opts.ONNX)
	default:
		return nil, fmt.Errorf("unknown detector backend %q (use %s or %s)", opts.Backend, BackendPython, BackendONNX)
	}
}

// clipFaces drops boxes that fall outside the frame and trims the rest.
func clipFaces(faces []types.Face, bounds image.Rectangle) []types.Face {
	out := faces[:0]
	for _, f := range faces {
		f.Box = f.Box.Clip(bounds)
		if f.Box.W <= 0 || f.Box.H <= 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func frameBounds(frame gocv.Mat) image.Rectangle {
	return image.Rect(0, 0, frame.Cols(), frame.Rows())
}
