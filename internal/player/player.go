// Package player drives the capture → detect → annotate → display loop for a
// camera or video source.
package player

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresmejia3/emolens/internal/annotate"
	"github.com/andresmejia3/emolens/internal/capture"
	"github.com/andresmejia3/emolens/internal/detector"
	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/types"
	"gocv.io/x/gocv"
)

// Renderer shows frames and reports when the user wants to stop.
type Renderer interface {
	Show(frame gocv.Mat) error
	Poll(delay time.Duration) (stop bool)
}

// FrameWriter persists annotated frames (e.g. a video file).
type FrameWriter interface {
	Write(frame gocv.Mat) error
}

// Recorder receives the detection result of every displayed frame.
type Recorder interface {
	Record(ctx context.Context, frameIndex int, faces []types.Face) error
}

// StopReason says why a run ended.
type StopReason string

const (
	StoppedByUser  StopReason = "stopped"
	EndOfStream    StopReason = "end of stream"
	StoppedByError StopReason = "error"
)

// Stats summarizes a run.
type Stats struct {
	Frames          int
	FramesWithFaces int
	Tally           emotion.Tally
	Elapsed         time.Duration
	Reason          StopReason
}

// Player owns at most one running source at a time.
type Player struct {
	Detector detector.Detector
	Renderer Renderer
	Writer   FrameWriter // optional
	Recorder Recorder    // optional
	Height   int         // display height, 0 keeps the source size

	mu      sync.Mutex
	stopped atomic.Bool
	done    chan struct{}
}

// Running reports whether a source is being played.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Stop asks the current run to end before its next frame.
func (p *Player) Stop() {
	p.stopped.Store(true)
}

// Run plays src until it ends, the user stops it, ctx is cancelled or a step
// fails. If another run is active it is stopped first. src is always closed.
func (p *Player) Run(ctx context.Context, src capture.Source) (Stats, error) {
	defer src.Close()

	p.mu.Lock()
	for p.done != nil {
		prev := p.done
		p.mu.Unlock()
		p.Stop()
		<-prev
		p.mu.Lock()
	}
	done := make(chan struct{})
	p.done = done
	p.stopped.Store(false) // Reset the flag
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.done = nil
		p.mu.Unlock()
		close(done)
	}()

	return p.loop(ctx, src)
}

func (p *Player) loop(ctx context.Context, src capture.Source) (stats Stats, err error) {
	stats = Stats{Tally: emotion.Tally{}}
	start := time.Now()
	defer func() { stats.Elapsed = time.Since(start) }()

	frame := gocv.NewMat()
	defer frame.Close()
	upright := gocv.NewMat()
	defer upright.Close()
	shown := gocv.NewMat()
	defer shown.Close()

	fail := func(step string, err error) (Stats, error) {
		stats.Reason = StoppedByError
		return stats, fmt.Errorf("frame %d: %s: %w", stats.Frames, step, err)
	}

	for {
		if p.stopped.Load() || ctx.Err() != nil {
			stats.Reason = StoppedByUser
			return stats, nil
		}
		if !src.Read(&frame) {
			stats.Reason = EndOfStream
			return stats, nil
		}

		annotate.Rotate(frame, &upright, src.Rotation())
		annotate.ResizeToHeight(upright, &shown, p.Height)

		faces, err := p.Detector.Detect(shown)
		if err != nil {
			return fail("detect", err)
		}
		annotate.Draw(&shown, faces, 1.0)

		if p.Writer != nil {
			if err := p.Writer.Write(shown); err != nil {
				return fail("write", err)
			}
		}
		if err := p.Renderer.Show(shown); err != nil {
			return fail("render", err)
		}
		if p.Recorder != nil {
			if err := p.Recorder.Record(ctx, stats.Frames, faces); err != nil {
				return fail("record", err)
			}
		}

		stats.Frames++
		if len(faces) > 0 {
			stats.FramesWithFaces++
		}
		stats.Tally.Add(faces)

		if p.Renderer.Poll(src.Delay()) {
			p.Stop()
		}
	}
}

// Still runs detection once on img. It returns the original and the annotated
// frame side by side, both scaled to height, along with the faces found.
func Still(det detector.Detector, img gocv.Mat, height int) (gocv.Mat, []types.Face, error) {
	out := gocv.NewMat()
	faces, err := det.Detect(img)
	if err != nil {
		return out, nil, err
	}

	processed := img.Clone()
	defer processed.Close()
	annotate.Draw(&processed, faces, 1.0)

	left := gocv.NewMat()
	defer left.Close()
	right := gocv.NewMat()
	defer right.Close()
	annotate.ResizeToHeight(img, &left, height)
	annotate.ResizeToHeight(processed, &right, height)

	annotate.SideBySide(left, right, &out)
	return out, faces, nil
}
