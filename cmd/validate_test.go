package cmd

import (
	"bufio"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/emolens/internal/emotion"
	"github.com/stretchr/testify/assert"
)

func TestCheckOutput(t *testing.T) {
	assert.NoError(t, checkOutput("in.mp4", ""))
	assert.NoError(t, checkOutput("in.mp4", "out.mp4"))
	assert.Error(t, checkOutput("in.mp4", "in.mp4"))
	assert.Error(t, checkOutput("in.mp4", filepath.Join(".", "x", "..", "in.mp4")))
}

func TestValidateExportFlags(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		output  string
		engines int
		wantErr bool
	}{
		{"valid", "clip.mp4", "out.mp4", 2, false},
		{"missing input", "", "out.mp4", 1, true},
		{"image input", "photo.jpg", "out.mp4", 1, true},
		{"missing output", "clip.mp4", "", 1, true},
		{"zero engines", "clip.mp4", "out.mp4", 0, true},
		{"same file", "clip.mov", "clip.mov", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateExportFlags(tt.input, tt.output, tt.engines)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDetectorOptions(t *testing.T) {
	o := Options{Backend: "onnx", Locator: "pigo", LocatorModel: "cascade/facefinder", ModelDir: "m", WorkerTimeout: 5}
	d := detectorOptions(o)

	assert.Equal(t, "onnx", d.Backend)
	assert.Equal(t, "pigo", d.ONNX.Locator)
	assert.Equal(t, "cascade/facefinder", d.ONNX.LocatorModel)
	assert.Equal(t, "m/emotion-ferplus-8.onnx", d.ONNX.ModelPath)
	assert.EqualValues(t, 5, d.Worker.ReadTimeout)
}

func TestCommandOfNonPython(t *testing.T) {
	assert.Nil(t, commandOf(nil))
}

func TestConfirm(t *testing.T) {
	assert.True(t, confirm(newReader("y\n"), "ok?"))
	assert.True(t, confirm(newReader(" YES \n"), "ok?"))
	assert.False(t, confirm(newReader("\n"), "ok?"))
	assert.False(t, confirm(newReader("nope\n"), "ok?"))
}

func TestPrintTallyOrder(t *testing.T) {
	var buf strings.Builder
	writeTally(&buf, emotion.Tally{"sad": 1, "happy": 3, "angry": 1})
	out := buf.String()

	assert.Less(t, strings.Index(out, "happy"), strings.Index(out, "angry"))
	assert.Less(t, strings.Index(out, "angry"), strings.Index(out, "sad"))
	assert.Contains(t, out, "Dominant: happy")
}

func newReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}
