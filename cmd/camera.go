package cmd

import (
	"fmt"

	"github.com/andresmejia3/emolens/internal/capture"
	"github.com/andresmejia3/emolens/internal/config"
	"github.com/andresmejia3/emolens/internal/utils"
	"github.com/spf13/cobra"
)

var (
	cameraDevice int
	cameraOutput string
)

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Detect faces and emotions from a live camera",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cam, err := capture.OpenCamera(cameraDevice)
		if err != nil {
			utils.ShowError(fmt.Sprintf("Cannot open camera %d", cameraDevice), err, nil,
				"a camera is connected",
				"no other application is using it",
				"this process has permission to access it")
			return err
		}
		// Camera FPS is unreliable, so recordings use the playback pace.
		return play(cmd.Context(), cam, cameraOutput, float64(1e9/config.CameraDelay.Nanoseconds()))
	},
}

func init() {
	cameraCmd.Flags().IntVarP(&cameraDevice, "device", "d", config.DefaultDevice, "Camera device index")
	cameraCmd.Flags().StringVarP(&cameraOutput, "output", "o", "", "Also write the annotated stream to this video file")
	rootCmd.AddCommand(cameraCmd)
}
