package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/andresmejia3/emolens/internal/types"
	pigo "github.com/esimov/pigo/core"
	"gocv.io/x/gocv"
)

// Locator finds face boxes without scoring emotions.
type Locator interface {
	Locate(frame gocv.Mat) ([]types.Box, error)
	Close() error
}

// Locator names
const (
	LocatorYuNet = "yunet"
	LocatorPigo  = "pigo"
)

// YuNet uses OpenCV's FaceDetectorYN
type YuNet struct {
	detector gocv.FaceDetectorYN
	mu       sync.Mutex // Protects inference
}

// NewYuNet loads the YuNet ONNX model from path.
func NewYuNet(path string, confidence float64) (*YuNet, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", path)
	}

	// Input size is updated per frame in Locate
	d := gocv.NewFaceDetectorYNWithParams(
		path,
		"",
		image.Pt(320, 320),
		float32(confidence),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)
	return &YuNet{detector: d}, nil
}

func (y *YuNet) Locate(frame gocv.Mat) ([]types.Box, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	y.detector.SetInputSize(image.Pt(frame.Cols(), frame.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	y.detector.Detect(frame, &faces)

	// Row layout: x, y, w, h, 5 landmark pairs, score
	boxes := make([]types.Box, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		boxes = append(boxes, types.Box{
			X: int(faces.GetFloatAt(r, 0)),
			Y: int(faces.GetFloatAt(r, 1)),
			W: int(faces.GetFloatAt(r, 2)),
			H: int(faces.GetFloatAt(r, 3)),
		})
	}
	return boxes, nil
}

func (y *YuNet) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.detector.Close()
	return nil
}

// Pigo runs the pigo pixel-intensity cascade. It needs no native model runtime.
type Pigo struct {
	classifier *pigo.Pigo
	minQuality float32
}

// NewPigo unpacks a pigo cascade file ("facefinder").
func NewPigo(cascadePath string, minQuality float32) (*Pigo, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade: %w", err)
	}
	p := pigo.NewPigo()
	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := p.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %v", err)
	}
	return &Pigo{classifier: classifier, minQuality: minQuality}, nil
}

func (p *Pigo) Locate(frame gocv.Mat) ([]types.Box, error) {
	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()

	params := pigo.CascadeParams{
		MinSize:     20,
		MaxSize:     max(cols, rows),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	dets := p.classifier.RunCascade(params, 0.0)
	// Calculate the intersection over union (IoU) of two clusters.
	dets = p.classifier.ClusterDetections(dets, 0.2)

	return pigoBoxes(dets, p.minQuality), nil
}

// pigoBoxes converts center/scale detections into boxes, dropping weak ones.
func pigoBoxes(dets []pigo.Detection, minQuality float32) []types.Box {
	var boxes []types.Box
	for _, d := range dets {
		if d.Q < minQuality {
			continue
		}
		boxes = append(boxes, types.Box{
			X: d.Col - d.Scale/2,
			Y: d.Row - d.Scale/2,
			W: d.Scale,
			H: d.Scale,
		})
	}
	return boxes
}

func (p *Pigo) Close() error { return nil }
