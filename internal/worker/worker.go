package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/types"
	"github.com/andresmejia3/emolens/internal/utils" // Using the SafeCommand wrapper
)

// maxResponse guards against a corrupt length header allocating gigabytes.
const maxResponse = 16 * 1024 * 1024

// faceSize is the encoded size of one face: 4 int32 box fields plus one float32 per label.
var faceSize = 16 + 4*len(emotion.Labels)

// Config controls how the Python emotion worker is launched.
type Config struct {
	Python      string
	Script      string
	ReadTimeout time.Duration
}

// PythonWorker talks to a single FER process over a length-prefixed pipe protocol.
type PythonWorker struct {
	ID          int
	Cmd         *utils.SafeCommand
	Stdin       io.WriteCloser
	DataPipe    io.ReadCloser
	ReadTimeout time.Duration
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// NewPythonWorker starts the worker process. Results come back on FD 3 so that
// library chatter on stdout never corrupts the protocol.
func NewPythonWorker(ctx context.Context, id int, cfg Config) (*PythonWorker, error) {
	py := utils.NewSafeCommand(ctx, cfg.Python, "-u", cfg.Script)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		ReadTimeout: cfg.ReadTimeout,
	}, nil
}

// Communicate sends one length-prefixed request and returns the raw response body.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	if d, ok := w.DataPipe.(deadliner); ok && w.ReadTimeout > 0 {
		d.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		defer d.SetReadDeadline(time.Time{})
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			w.kill()
			return nil, fmt.Errorf("worker %d timed out after %s", w.ID, w.ReadTimeout)
		}
		return nil, err // This is where we catch the "ModuleNotFoundError" crash
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("worker %d sent oversized response (%d bytes)", w.ID, respLen)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// ProcessFrame sends a JPEG frame and decodes the detected faces.
func (w *PythonWorker) ProcessFrame(jpeg []byte) ([]types.Face, error) {
	resp, err := w.Communicate(jpeg)
	if err != nil {
		return nil, err
	}
	return DecodeFaces(resp)
}

// DecodeFaces parses a response body.
// Status 0: [Count u32] then per face [x y w h int32] [7 x float32 scores in emotion.Labels order].
// Status 1: [MsgLen u32] [Msg].
func DecodeFaces(resp []byte) ([]types.Face, error) {
	if len(resp) == 0 {
		return nil, errors.New("empty response from python worker")
	}
	r := bytes.NewReader(resp[1:])

	if resp[0] != 0 {
		var msgLen uint32
		if err := binary.Read(r, binary.BigEndian, &msgLen); err != nil {
			return nil, fmt.Errorf("malformed error response: %w", err)
		}
		msg := make([]byte, msgLen)
		if _, err := io.ReadFull(r, msg); err != nil {
			return nil, fmt.Errorf("malformed error response: %w", err)
		}
		return nil, fmt.Errorf("python worker error: %s", msg)
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("malformed face count: %w", err)
	}
	// Each face needs its box and scores on the wire, so count is bounded by what is left.
	if count > uint32(r.Len()/faceSize) {
		return nil, fmt.Errorf("malformed face count: %d faces in %d bytes", count, r.Len())
	}

	faces := make([]types.Face, 0, count)
	for i := uint32(0); i < count; i++ {
		var box [4]int32
		if err := binary.Read(r, binary.BigEndian, &box); err != nil {
			return nil, fmt.Errorf("malformed box for face %d: %w", i, err)
		}
		scores := make([]float32, len(emotion.Labels))
		if err := binary.Read(r, binary.BigEndian, scores); err != nil {
			return nil, fmt.Errorf("malformed scores for face %d: %w", i, err)
		}
		faces = append(faces, types.Face{
			Box:      types.Box{X: int(box[0]), Y: int(box[1]), W: int(box[2]), H: int(box[3])},
			Emotions: emotion.FromVector(scores),
		})
	}
	return faces, nil
}

func (w *PythonWorker) kill() {
	if w.Cmd != nil && w.Cmd.Process != nil {
		w.Cmd.Process.Kill()
	}
}

// Close shuts the worker down and waits for the process to exit.
func (w *PythonWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd == nil {
		return nil
	}
	return w.Cmd.Wait()
}
