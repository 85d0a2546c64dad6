package cmd

import (
	"github.com/andresmejia3/emolens/internal/capture"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/spf13/cobra"
)

var videoOutput string

var videoCmd = &cobra.Command{
	Use:   "video <path>",
	Short: "Detect faces and emotions in a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := checkOutput(args[0], videoOutput); err != nil {
			return err
		}
		vid, err := capture.OpenVideo(args[0])
		if err != nil {
			utils.ShowError("Cannot open video", err, nil,
				"the file exists and is readable",
				"the format is one of .mp4 .avi .mov .mkv .flv .wmv")
			return err
		}
		info := vid.Info()
		utils.Debugf("🎞️  %dx%d @ %.2f fps, %d frames\n", info.Width, info.Height, info.FPS, info.FrameCount)
		return play(cmd.Context(), vid, videoOutput, info.FPS)
	},
}

func init() {
	videoCmd.Flags().StringVarP(&videoOutput, "output", "o", "", "Also write the annotated stream to this video file")
	rootCmd.AddCommand(videoCmd)
}
