// Package emotion reduces per-face emotion scores to a single displayable label.
package emotion

import (
	"fmt"
	"math"

	"github.com/andresmejia3/emolens/internal/types"
)

// Labels is the canonical FER label order. The Python worker sends scores in
// exactly this order and Top breaks ties by it.
var Labels = []string{"angry", "disgust", "fear", "happy", "sad", "surprise", "neutral"}

// FERPlusLabels is the output order of the FER+ ONNX classifier.
var FERPlusLabels = []string{"neutral", "happy", "surprise", "sad", "angry", "disgust", "fear", "contempt"}

// Top returns the label with the highest confidence.
// An empty mapping yields ("", 0).
func Top(scores map[string]float64) (string, float64) {
	best := ""
	bestScore := math.Inf(-1)
	for _, label := range Labels {
		s, ok := scores[label]
		if !ok {
			continue
		}
		if s > bestScore {
			best, bestScore = label, s
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestScore
}

// Caption formats the top emotion of a face as "happy 87%".
func Caption(face types.Face) string {
	label, score := Top(face.Emotions)
	if label == "" {
		return ""
	}
	return fmt.Sprintf("%s %.0f%%", label, score*100)
}

// Normalize keeps only known labels, clamps scores into [0,1] and folds the
// FER+ "contempt" class into "disgust".
func Normalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(Labels))
	for _, label := range Labels {
		out[label] = clamp(scores[label])
	}
	if c, ok := scores["contempt"]; ok {
		out["disgust"] = clamp(out["disgust"] + c)
	}
	return out
}

// FromVector maps scores given in Labels order to a label mapping.
// Extra values are ignored, missing ones are zero.
func FromVector(vec []float32) map[string]float64 {
	out := make(map[string]float64, len(Labels))
	for i, label := range Labels {
		if i < len(vec) {
			out[label] = clamp(float64(vec[i]))
		} else {
			out[label] = 0
		}
	}
	return out
}

// Softmax turns raw classifier logits into probabilities.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Tally counts how often each label was the top emotion.
type Tally map[string]int

// Add records the top emotion of every face.
func (t Tally) Add(faces []types.Face) {
	for _, f := range faces {
		if label, _ := Top(f.Emotions); label != "" {
			t[label]++
		}
	}
}

// Dominant returns the most frequent label, ties broken by label order.
func (t Tally) Dominant() string {
	best, bestCount := "", 0
	for _, label := range Labels {
		if t[label] > bestCount {
			best, bestCount = label, t[label]
		}
	}
	return best
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
