package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andresmejia3/emolens/internal/annotate"
	"github.com/andresmejia3/emolens/internal/capture"
	"github.com/andresmejia3/emolens/internal/config"
	"github.com/andresmejia3/emolens/internal/display"
	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/pipeline"
	"github.com/andresmejia3/emolens/internal/store"
	"github.com/andresmejia3/emolens/internal/types"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
	"golang.org/x/term"
)

var (
	exportInput   string
	exportOutput  string
	exportEngines int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Annotate every frame of a video and write the result to a file",
	Long:  "Runs emotion detection headless across one or more detector engines and writes the annotated video. No window is opened.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runExport(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "Path to input video")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", filepath.Join(config.OutputDir, "annotated.mp4"), "Path to output video")
	exportCmd.Flags().IntVarP(&exportEngines, "engines", "e", 1, "Number of parallel detector engines")

	exportCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(exportCmd)
}

type exportTask struct {
	Index int
	Frame gocv.Mat
}

type exportResult struct {
	Index int
	Frame gocv.Mat
	Faces []types.Face
}

func runExport(ctx context.Context) error {
	// Cancelling stops the reader and kills every engine if we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := validateExportFlags(exportInput, exportOutput, exportEngines); err != nil {
		return err
	}

	vid, err := capture.OpenVideo(exportInput)
	if err != nil {
		utils.ShowError("Cannot open video", err, nil, "the file exists and is readable")
		return err
	}
	defer vid.Close()
	info := vid.Info()

	sessionID, err := startRecording(ctx, string(capture.KindVideo), exportInput)
	if err != nil {
		return err
	}
	frames, withFaces := 0, 0
	// Close the session on every exit path with whatever was written so far.
	defer func() {
		if err := endSession(DB, sessionID, frames); err != nil {
			utils.ShowError("Failed to close session record", err, nil)
		}
	}()

	taskChan := make(chan exportTask, exportEngines)
	resultsChan := make(chan exportResult, exportEngines*2)
	errChan := make(chan error, exportEngines+1)
	readyChan := make(chan bool, exportEngines)

	var wg sync.WaitGroup
	for i := 0; i < exportEngines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			det, err := newDetector(ctx, id, opts)
			if err != nil {
				select {
				case errChan <- err:
				default:
				}
				return
			}
			defer det.Close()
			readyChan <- true

			for task := range taskChan {
				faces, err := det.Detect(task.Frame)
				if err != nil {
					task.Frame.Close()
					utils.ShowError(fmt.Sprintf("Engine %d failed on frame %d", id, task.Index), err, commandOf(det))
					select {
					case errChan <- err:
					default:
					}
					return
				}
				annotate.Draw(&task.Frame, faces, 1.0)

				select {
				case resultsChan <- exportResult{Index: task.Index, Frame: task.Frame, Faces: faces}:
				case <-ctx.Done():
					task.Frame.Close()
					return
				}
			}
		}(i)
	}

	fmt.Fprintln(os.Stderr, "🚀 Warming up engines...")
	if err := warmUp(ctx, readyChan, errChan, exportEngines, taskChan); err != nil {
		wg.Wait()
		return err
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer close(taskChan)
		frame := gocv.NewMat()
		defer frame.Close()
		for idx := 0; vid.Read(&frame); idx++ {
			upright := gocv.NewMat()
			annotate.Rotate(frame, &upright, vid.Rotation())
			select {
			case taskChan <- exportTask{Index: idx, Frame: upright}:
			case <-ctx.Done():
				upright.Close()
				return
			}
		}
	}()

	// The reader must be gone before vid is closed.
	defer func() {
		cancel()
		<-readerDone
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	sink := display.NewVideoSink(exportOutput, "mp4v", info.FPS)
	defer sink.Close()

	var recorder *store.SessionRecorder
	if sessionID != uuid.Nil {
		recorder = &store.SessionRecorder{Store: DB, SessionID: sessionID}
	}

	bar := newExportBar(info.FrameCount)
	reorder := pipeline.NewReorder[exportResult](0, 1)
	tally := emotion.Tally{}
	start := time.Now()

	emit := func(res exportResult) error {
		defer res.Frame.Close()
		if err := sink.Write(res.Frame); err != nil {
			return fmt.Errorf("frame %d: write: %w", res.Index, err)
		}
		if recorder != nil {
			if err := recorder.Record(ctx, res.Index, res.Faces); err != nil {
				return fmt.Errorf("frame %d: record: %w", res.Index, err)
			}
		}
		frames++
		if len(res.Faces) > 0 {
			withFaces++
		}
		tally.Add(res.Faces)
		bar.Add(1)
		return nil
	}

	fail := func(err error) error {
		for _, res := range reorder.Drain() {
			res.Frame.Close()
		}
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case err := <-errChan:
			return fail(err)
		case res, ok := <-resultsChan:
			if !ok {
				goto Flush
			}
			for _, ready := range reorder.Push(res.Index, res) {
				if err := emit(ready); err != nil {
					utils.ShowError("Export failed", err, nil)
					return fail(err)
				}
			}
		}
	}

Flush:
	// An engine that died after the last result leaves its error behind.
	select {
	case err := <-errChan:
		return fail(err)
	default:
	}
	for _, res := range reorder.Drain() {
		if err := emit(res); err != nil {
			utils.ShowError("Export failed", err, nil)
			return fail(err)
		}
	}
	bar.Finish()

	if err := sink.Close(); err != nil {
		utils.ShowError("Failed to finalize output video", err, nil)
		return err
	}
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "📊 EXPORT SUMMARY\n")
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "💾 Output:             %s\n", exportOutput)
	fmt.Fprintf(os.Stderr, "⏱️  Duration:           %s\n", utils.FmtDuration(time.Since(start)))
	fmt.Fprintf(os.Stderr, "🖼️  Frames:             %d\n", frames)
	fmt.Fprintf(os.Stderr, "👁️  Frames with faces:  %d\n", withFaces)
	writeTally(os.Stderr, tally)
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	return nil
}

// warmUp waits until n engines report ready. On failure it closes tasks so the
// engines that did start leave their loop and release their detectors.
func warmUp(ctx context.Context, ready <-chan bool, errs <-chan error, n int, tasks chan exportTask) error {
	for i := 0; i < n; i++ {
		select {
		case <-ready:
		case err := <-errs:
			close(tasks)
			return err
		case <-ctx.Done():
			close(tasks)
			return ctx.Err()
		}
	}
	return nil
}

// newExportBar shows a progress bar when stderr is a terminal and a silent one otherwise.
func newExportBar(total int) *progressbar.ProgressBar {
	barTotal := int64(total)
	if barTotal <= 0 {
		barTotal = -1 // Trigger spinner mode
	}
	return progressbar.NewOptions64(barTotal,
		progressbar.OptionSetDescription("Annotating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(term.IsTerminal(int(os.Stderr.Fd()))),
	)
}
