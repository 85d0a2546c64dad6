package detector

import (
	"fmt"
	"image"
	"sync"

	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/andresmejia3/emolens/internal/types"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// FER+ classifier geometry
const (
	ferSide    = 64
	ferClasses = 8
)

// ONNXConfig holds the in-process backend configuration
type ONNXConfig struct {
	SharedLibrary string  // Path to libonnxruntime
	ModelPath     string  // FER+ emotion classifier
	InputName     string  // Classifier input tensor name
	OutputName    string  // Classifier output tensor name
	Locator       string  // yunet or pigo
	LocatorModel  string  // YuNet ONNX model or pigo cascade file
	Confidence    float64 // Minimum face confidence (YuNet) or pigo quality / 10
}

// DefaultONNXConfig returns defaults rooted at modelDir.
func DefaultONNXConfig(modelDir, sharedLib string) ONNXConfig {
	return ONNXConfig{
		SharedLibrary: sharedLib,
		ModelPath:     modelDir + "/emotion-ferplus-8.onnx",
		InputName:     "Input3",
		OutputName:    "Plus692_Output_0",
		Locator:       LocatorYuNet,
		LocatorModel:  modelDir + "/face_detection_yunet_2023mar.onnx",
		Confidence:    0.6,
	}
}

var (
	ortOnce sync.Once
	ortErr  error
)

func initRuntime(lib string) error {
	ortOnce.Do(func() {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			ortErr = fmt.Errorf("error initializing ORT environment: %w", err)
		}
	})
	return ortErr
}

// ONNX locates faces with a Locator and classifies each crop with FER+.
type ONNX struct {
	locator Locator
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
}

// NewONNX builds the locator and the classifier session.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	var (
		loc Locator
		err error
	)
	switch cfg.Locator {
	case LocatorYuNet, "":
		loc, err = NewYuNet(cfg.LocatorModel, cfg.Confidence)
	case LocatorPigo:
		loc, err = NewPigo(cfg.LocatorModel, float32(cfg.Confidence*10))
	default:
		err = fmt.Errorf("unknown face locator %q", cfg.Locator)
	}
	if err != nil {
		return nil, err
	}

	if err := initRuntime(cfg.SharedLibrary); err != nil {
		loc.Close()
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, ferSide, ferSide))
	if err != nil {
		loc.Close()
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, ferClasses))
	if err != nil {
		loc.Close()
		input.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		loc.Close()
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options)
	if err != nil {
		loc.Close()
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &ONNX{locator: loc, session: session, input: input, output: output}, nil
}

func (o *ONNX) Detect(frame gocv.Mat) ([]types.Face, error) {
	boxes, err := o.locator.Locate(frame)
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	faces := make([]types.Face, 0, len(boxes))
	for _, box := range boxes {
		box = box.Clip(img.Bounds())
		if box.W <= 0 || box.H <= 0 {
			continue
		}
		crop := imaging.Crop(img, box.Rect())
		if err := fillGray(o.input.GetData(), crop); err != nil {
			return nil, err
		}
		if err := o.session.Run(); err != nil {
			return nil, fmt.Errorf("classifier run: %w", err)
		}
		faces = append(faces, types.Face{
			Box:      box,
			Emotions: ferPlusScores(o.output.GetData()),
		})
	}
	return faces, nil
}

// fillGray writes crop as a 64x64 grayscale plane into dst. FER+ expects raw
// 0-255 intensities, not normalized values.
func fillGray(dst []float32, crop image.Image) error {
	if len(dst) < ferSide*ferSide {
		return fmt.Errorf("destination tensor only holds %d floats, needs %d", len(dst), ferSide*ferSide)
	}
	small := resize.Resize(ferSide, ferSide, crop, resize.Bilinear)
	b := small.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := small.At(x, y).RGBA()
			dst[i] = 0.299*float32(r>>8) + 0.587*float32(g>>8) + 0.114*float32(bl>>8)
			i++
		}
	}
	return nil
}

// ferPlusScores maps classifier logits to normalized FER labels.
func ferPlusScores(logits []float32) map[string]float64 {
	probs := emotion.Softmax(logits)
	raw := make(map[string]float64, len(emotion.FERPlusLabels))
	for i, label := range emotion.FERPlusLabels {
		if i < len(probs) {
			raw[label] = probs[i]
		}
	}
	return emotion.Normalize(raw)
}

func (o *ONNX) Close() error {
	o.session.Destroy()
	o.input.Destroy()
	o.output.Destroy()
	return o.locator.Close()
}
