package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/andresmejia3/emolens/internal/config"
)

// checkOutput refuses to write over the input file.
func checkOutput(input, output string) error {
	if output == "" {
		return nil
	}
	inAbs, _ := filepath.Abs(input)
	outAbs, _ := filepath.Abs(output)
	if inAbs == outAbs {
		return fmt.Errorf("input and output paths must be different to prevent file corruption")
	}
	return nil
}

func validateExportFlags(input, output string, engines int) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if !config.IsVideo(input) {
		return fmt.Errorf("input must be a video file (%v)", config.VideoExtensions)
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}
	if engines < 1 {
		return fmt.Errorf("engines must be at least 1")
	}
	return checkOutput(input, output)
}
