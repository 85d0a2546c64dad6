package detector

import (
	"context"
	"fmt"

	"github.com/andresmejia3/emolens/internal/types"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/andresmejia3/emolens/internal/worker"
	"gocv.io/x/gocv"
)

type frameProcessor interface {
	ProcessFrame(jpeg []byte) ([]types.Face, error)
	Close() error
}

// Python ships JPEG-encoded frames to a FER worker process.
type Python struct {
	proc frameProcessor
	cmd  *utils.SafeCommand
}

// NewPython starts a worker process and wraps it as a Detector.
func NewPython(ctx context.Context, id int, cfg worker.Config) (*Python, error) {
	w, err := worker.NewPythonWorker(ctx, id, cfg)
	if err != nil {
		return nil, err
	}
	return &Python{proc: w, cmd: w.Cmd}, nil
}

// Detect encodes frame as JPEG and asks the worker for emotions.
func (p *Python) Detect(frame gocv.Mat) ([]types.Face, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	faces, err := p.proc.ProcessFrame(buf.GetBytes())
	if err != nil {
		return nil, err
	}
	return clipFaces(faces, frameBounds(frame)), nil
}

// Command exposes the worker process so crash logs can be reported.
func (p *Python) Command() *utils.SafeCommand {
	return p.cmd
}

func (p *Python) Close() error {
	return p.proc.Close()
}
