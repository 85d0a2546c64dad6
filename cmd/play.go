package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/andresmejia3/emolens/internal/capture"
	"github.com/andresmejia3/emolens/internal/config"
	"github.com/andresmejia3/emolens/internal/display"
	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/player"
	"github.com/andresmejia3/emolens/internal/store"
	"github.com/andresmejia3/emolens/internal/types"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// headless stands in for the window when --no-window is set.
type headless struct{}

func (headless) Show(gocv.Mat) error { return nil }

func (headless) Poll(delay time.Duration) bool {
	time.Sleep(delay)
	return false
}

// play runs src through the player until it ends or the user stops it.
// output, when set, receives the annotated stream as a video file.
func play(ctx context.Context, src capture.Source, output string, fps float64) error {
	det, err := newDetector(ctx, 0, opts)
	if err != nil {
		src.Close()
		return err
	}
	defer det.Close()

	p := &player.Player{Detector: det, Height: opts.Height}

	var renderer player.Renderer = headless{}
	if !opts.NoWindow {
		win := display.NewWindow(config.WindowTitle)
		defer win.Close()
		renderer = win
	}
	p.Renderer = renderer

	if output != "" {
		sink := display.NewVideoSink(output, "mp4v", fps)
		defer sink.Close()
		p.Writer = sink
	}

	sessionID, err := startRecording(ctx, string(src.Kind()), src.Path())
	if err != nil {
		src.Close()
		return err
	}
	if sessionID != uuid.Nil {
		p.Recorder = &store.SessionRecorder{Store: DB, SessionID: sessionID}
	}

	fmt.Fprintf(os.Stderr, "🎥 Playing %s (%s). Press q or Esc to stop.\n", src.Path(), src.Kind())
	stats, runErr := p.Run(ctx, src)

	if err := endSession(DB, sessionID, stats.Frames); err != nil {
		utils.ShowError("Failed to close session record", err, nil)
	}

	if runErr != nil {
		utils.ShowError("Processing stopped", runErr, commandOf(det))
		return runErr
	}

	printSummary(stats)
	return nil
}

// startRecording opens a session when --record is set. It returns uuid.Nil otherwise.
func startRecording(ctx context.Context, kind, path string) (uuid.UUID, error) {
	if !opts.Record {
		return uuid.Nil, nil
	}
	if err := connectDB(ctx); err != nil {
		utils.ShowError("Cannot record session", err, nil,
			"PostgreSQL is running and reachable",
			"--db or POSTGRES_* variables are correct")
		return uuid.Nil, err
	}
	id, err := DB.StartSession(ctx, kind, path)
	if err != nil {
		utils.ShowError("Cannot record session", err, nil)
		return uuid.Nil, err
	}
	utils.Debugf("📝 Recording session %s\n", id)
	return id, nil
}

// sessionStore is the slice of store.Store that session bookkeeping needs.
type sessionStore interface {
	InsertEvents(ctx context.Context, sessionID uuid.UUID, frameIdx int, faces []types.Face) error
	EndSession(ctx context.Context, sessionID uuid.UUID, frames int) error
}

// endSession stamps ended_at on a recorded session. A nil id means nothing was recorded.
func endSession(s sessionStore, id uuid.UUID, frames int) error {
	if id == uuid.Nil {
		return nil
	}
	// Background: the run context may already be cancelled by Ctrl+C.
	return s.EndSession(context.Background(), id, frames)
}

// recordStill stores the faces of a single image and closes the session,
// even when storing the faces fails.
func recordStill(ctx context.Context, s sessionStore, id uuid.UUID, faces []types.Face) error {
	if err := s.InsertEvents(ctx, id, 0, faces); err != nil {
		if endErr := endSession(s, id, 0); endErr != nil {
			utils.Debugf("⚠️  Failed to close session %s: %v\n", id, endErr)
		}
		return fmt.Errorf("record detections: %w", err)
	}
	return endSession(s, id, 1)
}

func printSummary(stats player.Stats) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "📊 SESSION SUMMARY (%s)\n", stats.Reason)
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "⏱️  Duration:           %s\n", utils.FmtDuration(stats.Elapsed))
	fmt.Fprintf(os.Stderr, "🖼️  Frames:             %d\n", stats.Frames)
	fmt.Fprintf(os.Stderr, "👁️  Frames with faces:  %d\n", stats.FramesWithFaces)
	writeTally(os.Stderr, stats.Tally)
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// writeTally lists emotions by count, most frequent first.
func writeTally(w io.Writer, t emotion.Tally) {
	if len(t) == 0 {
		return
	}
	labels := make([]string, 0, len(t))
	for l := range t {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if t[labels[i]] != t[labels[j]] {
			return t[labels[i]] > t[labels[j]]
		}
		return labels[i] < labels[j]
	})
	for _, l := range labels {
		fmt.Fprintf(w, "   %-10s %d\n", l, t[l])
	}
	fmt.Fprintf(w, "   Dominant: %s\n", t.Dominant())
}
