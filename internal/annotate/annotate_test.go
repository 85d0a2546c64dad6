package annotate

import (
	"testing"

	"github.com/andresmejia3/emolens/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func blank(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
}

// bgrAt returns the pixel at (row, col) as B, G, R.
func bgrAt(m gocv.Mat, row, col int) (uint8, uint8, uint8) {
	v := m.GetVecbAt(row, col)
	return v[0], v[1], v[2]
}

func TestDrawFaces(t *testing.T) {
	frame := blank(200, 200)
	defer frame.Close()

	faces := []types.Face{{
		Box:      types.Box{X: 40, Y: 60, W: 80, H: 80},
		Emotions: map[string]float64{"happy": 0.9, "sad": 0.1},
	}}
	Draw(&frame, faces, 1.0)

	// Left edge of the box is green (BGR 0,255,0)
	b, g, r := bgrAt(frame, 100, 40)
	assert.Equal(t, uint8(0), b)
	assert.Equal(t, uint8(255), g)
	assert.Equal(t, uint8(0), r)

	// Box interior stays untouched
	b, g, r = bgrAt(frame, 100, 80)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{b, g, r})
}

func TestDrawScalesBoxes(t *testing.T) {
	frame := blank(100, 100)
	defer frame.Close()

	faces := []types.Face{{
		Box:      types.Box{X: 80, Y: 80, W: 60, H: 60},
		Emotions: map[string]float64{"neutral": 1},
	}}
	Draw(&frame, faces, 0.5)

	// Scaled box starts at (40,40)
	_, g, _ := bgrAt(frame, 55, 40)
	assert.Equal(t, uint8(255), g)
}

func TestDrawNoFace(t *testing.T) {
	frame := blank(120, 400)
	defer frame.Close()

	Draw(&frame, nil, 1.0)

	// Some red pixel must appear in the text band just above the baseline at y=50
	found := false
	for row := 30; row < 52 && !found; row++ {
		for col := 50; col < 350; col++ {
			b, g, r := bgrAt(frame, row, col)
			if r == 255 && g == 0 && b == 0 {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "expected red 'No face detected' text")
}

func TestResizeToHeight(t *testing.T) {
	src := blank(480, 640)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	ResizeToHeight(src, &dst, 300)
	assert.Equal(t, 300, dst.Rows())
	assert.Equal(t, 400, dst.Cols())

	ResizeToHeight(src, &dst, 0)
	assert.Equal(t, 480, dst.Rows())
}

func TestRotate(t *testing.T) {
	src := blank(10, 20)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	tests := []struct {
		degrees    int
		rows, cols int
	}{
		{0, 10, 20},
		{90, 20, 10},
		{180, 10, 20},
		{270, 20, 10},
		{45, 10, 20},
	}
	for _, tt := range tests {
		Rotate(src, &dst, tt.degrees)
		require.Equal(t, tt.rows, dst.Rows(), "rows for %d°", tt.degrees)
		require.Equal(t, tt.cols, dst.Cols(), "cols for %d°", tt.degrees)
	}
}

func TestSideBySide(t *testing.T) {
	left := blank(100, 50)
	defer left.Close()
	right := blank(200, 60)
	defer right.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	SideBySide(left, right, &dst)
	assert.Equal(t, 100, dst.Rows())
	assert.Equal(t, 80, dst.Cols())
}
