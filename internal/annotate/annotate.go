// Package annotate draws detection results onto frames and prepares frames for display.
package annotate

import (
	"image"
	"image/color"

	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/types"
	"gocv.io/x/gocv"
)

// NoFaceText is drawn when a frame has no detections.
const NoFaceText = "No face detected"

var (
	// gocv converts color.RGBA to BGR scalars itself.
	boxColor    = color.RGBA{0, 255, 0, 0}
	noFaceColor = color.RGBA{255, 0, 0, 0}
	noFaceAt    = image.Pt(50, 50)
)

const (
	thickness = 2
	fontScale = 1.0
	labelLift = 10
)

// Draw paints every face box with its top emotion caption. Boxes are scaled by
// scale first, so results from a full-size frame can be drawn on a resized one.
func Draw(frame *gocv.Mat, faces []types.Face, scale float64) {
	if len(faces) == 0 {
		gocv.PutText(frame, NoFaceText, noFaceAt, gocv.FontHersheySimplex, fontScale, noFaceColor, thickness)
		return
	}

	for _, f := range faces {
		box := f.Box.Scale(scale)
		gocv.Rectangle(frame, box.Rect(), boxColor, thickness)
		if caption := emotion.Caption(f); caption != "" {
			gocv.PutText(frame, caption, image.Pt(box.X, box.Y-labelLift), gocv.FontHersheySimplex, fontScale, boxColor, thickness)
		}
	}
}

// ResizeToHeight scales src so its height becomes height, keeping the aspect ratio.
// A non-positive height copies src unchanged.
func ResizeToHeight(src gocv.Mat, dst *gocv.Mat, height int) {
	if height <= 0 || src.Rows() == 0 {
		src.CopyTo(dst)
		return
	}
	width := int(float64(src.Cols()) * float64(height) / float64(src.Rows()))
	gocv.Resize(src, dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
}

// Rotate applies a clockwise rotation given in degrees (container orientation
// metadata). Anything other than 90, 180 or 270 copies src.
func Rotate(src gocv.Mat, dst *gocv.Mat, degrees int) {
	switch degrees {
	case 90:
		gocv.Rotate(src, dst, gocv.Rotate90Clockwise)
	case 180:
		gocv.Rotate(src, dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(src, dst, gocv.Rotate90CounterClockwise)
	default:
		src.CopyTo(dst)
	}
}

// SideBySide places the original and the processed frame next to each other.
// right is resized to left's height when they differ.
func SideBySide(left, right gocv.Mat, dst *gocv.Mat) {
	if left.Rows() == right.Rows() {
		gocv.Hconcat(left, right, dst)
		return
	}
	fitted := gocv.NewMat()
	defer fitted.Close()
	ResizeToHeight(right, &fitted, left.Rows())
	gocv.Hconcat(left, fitted, dst)
}
