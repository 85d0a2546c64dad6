package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/emolens/internal/capture"
	"github.com/andresmejia3/emolens/internal/config"
	"github.com/andresmejia3/emolens/internal/display"
	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/player"
	"github.com/andresmejia3/emolens/internal/types"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/spf13/cobra"
)

var imageOutput string

var imageCmd = &cobra.Command{
	Use:   "image <path>",
	Short: "Detect faces and emotions in a still image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := checkOutput(args[0], imageOutput); err != nil {
			return err
		}
		return runImage(cmd.Context(), args[0])
	},
}

func init() {
	imageCmd.Flags().StringVarP(&imageOutput, "output", "o", "", "Save the side-by-side result to this image file")
	rootCmd.AddCommand(imageCmd)
}

func runImage(ctx context.Context, path string) error {
	img, err := capture.LoadImage(path)
	if err != nil {
		utils.ShowError("Cannot load image", err, nil,
			"the file exists and is readable",
			"the format is one of .png .jpg .jpeg .bmp .gif")
		return err
	}
	defer img.Close()

	det, err := newDetector(ctx, 0, opts)
	if err != nil {
		return err
	}
	defer det.Close()

	combined, faces, err := player.Still(det, img, opts.Height)
	defer combined.Close()
	if err != nil {
		utils.ShowError("Emotion detection failed", err, commandOf(det))
		return err
	}

	if opts.Record {
		id, err := startRecording(ctx, string(capture.KindImage), path)
		if err != nil {
			return err
		}
		if err := recordStill(ctx, DB, id, faces); err != nil {
			utils.ShowError("Failed to record session", err, nil)
			return err
		}
		fmt.Fprintf(os.Stderr, "📝 Recorded session %s\n", id)
	}

	if imageOutput != "" {
		if err := display.SaveImage(imageOutput, combined); err != nil {
			utils.ShowError("Failed to save image", err, nil)
			return err
		}
		fmt.Fprintf(os.Stderr, "💾 Saved %s\n", imageOutput)
	}

	printFaces(faces)

	if !opts.NoWindow {
		win := display.NewWindow(config.WindowTitle)
		defer win.Close()
		if err := win.Show(combined); err != nil {
			utils.ShowError("Failed to display image", err, nil)
			return err
		}
		win.Wait()
	}
	return nil
}

func printFaces(faces []types.Face) {
	if len(faces) == 0 {
		fmt.Fprintln(os.Stderr, "🙈 No face detected")
		return
	}
	fmt.Fprintf(os.Stderr, "👁️  %d face(s):\n", len(faces))
	for i, f := range faces {
		fmt.Fprintf(os.Stderr, "   #%d at (%d,%d %dx%d): %s\n", i+1, f.Box.X, f.Box.Y, f.Box.W, f.Box.H, emotion.Caption(f))
	}
}
