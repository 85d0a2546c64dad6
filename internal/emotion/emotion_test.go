package emotion

import (
	"math"
	"testing"

	"github.com/andresmejia3/emolens/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestTop(t *testing.T) {
	tests := []struct {
		name      string
		scores    map[string]float64
		wantLabel string
		wantScore float64
	}{
		{
			name:      "Single clear winner",
			scores:    map[string]float64{"happy": 0.9, "sad": 0.05, "neutral": 0.05},
			wantLabel: "happy",
			wantScore: 0.9,
		},
		{
			name:      "Tie resolves by label order",
			scores:    map[string]float64{"surprise": 0.5, "fear": 0.5},
			wantLabel: "fear",
			wantScore: 0.5,
		},
		{
			name:      "Unknown labels are ignored",
			scores:    map[string]float64{"bored": 0.99, "neutral": 0.01},
			wantLabel: "neutral",
			wantScore: 0.01,
		},
		{
			name:      "Empty mapping",
			scores:    map[string]float64{},
			wantLabel: "",
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score := Top(tt.scores)
			assert.Equal(t, tt.wantLabel, label)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
		})
	}
}

func TestCaption(t *testing.T) {
	face := types.Face{Emotions: map[string]float64{"happy": 0.875, "sad": 0.125}}
	assert.Equal(t, "happy 88%", Caption(face))

	assert.Equal(t, "", Caption(types.Face{}))
}

func TestNormalize(t *testing.T) {
	out := Normalize(map[string]float64{
		"happy":    1.4,
		"sad":      -0.2,
		"disgust":  0.1,
		"contempt": 0.2,
		"bogus":    0.7,
	})

	assert.Len(t, out, len(Labels))
	assert.Equal(t, 1.0, out["happy"])
	assert.Equal(t, 0.0, out["sad"])
	assert.InDelta(t, 0.3, out["disgust"], 1e-9)
	_, ok := out["bogus"]
	assert.False(t, ok)
}

func TestFromVector(t *testing.T) {
	out := FromVector([]float32{0.1, 0, 0, 0.7})
	assert.InDelta(t, 0.1, out["angry"], 1e-6)
	assert.InDelta(t, 0.7, out["happy"], 1e-6)
	assert.Equal(t, 0.0, out["neutral"])
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.True(t, probs[2] > probs[1] && probs[1] > probs[0])

	// Large logits must not overflow
	probs = Softmax([]float32{1000, 1000})
	assert.False(t, math.IsNaN(probs[0]))
	assert.InDelta(t, 0.5, probs[0], 1e-9)

	assert.Nil(t, Softmax(nil))
}

func TestTally(t *testing.T) {
	tally := Tally{}
	tally.Add([]types.Face{
		{Emotions: map[string]float64{"happy": 0.8}},
		{Emotions: map[string]float64{"sad": 0.6}},
		{Emotions: map[string]float64{"happy": 0.7}},
		{},
	})
	assert.Equal(t, 2, tally["happy"])
	assert.Equal(t, 1, tally["sad"])
	assert.Equal(t, "happy", tally.Dominant())
	assert.Equal(t, "", Tally{}.Dominant())
}
