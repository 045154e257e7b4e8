package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreprocessor_ShapeAndLayout(t *testing.T) {
	p := &Preprocessor{ImageSize: 4, Std: [3]float32{1, 1, 1}}
	data := encodePNG(t, 16, 16, color.RGBA{R: 255, A: 255})
	out, err := p.Preprocess(data)
	require.NoError(t, err)
	require.Len(t, out, 3*4*4)
	// CHW layout: first 16 values are the red channel.
	assert.InDelta(t, 1.0, float64(out[0]), 1e-3)
	assert.InDelta(t, 0.0, float64(out[16]), 1e-3)
	assert.InDelta(t, 0.0, float64(out[32]), 1e-3)
}

func TestPreprocessor_Normalization(t *testing.T) {
	p := &Preprocessor{
		ImageSize: 2,
		Mean:      [3]float32{0.5, 0.5, 0.5},
		Std:       [3]float32{0.5, 0.5, 0.5},
	}
	data := encodePNG(t, 2, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	out, err := p.Preprocess(data)
	require.NoError(t, err)
	// White pixel scales to 1.0, normalized to (1.0-0.5)/0.5 = 1.0.
	for _, v := range out {
		assert.InDelta(t, 1.0, v, 1e-3)
	}
}

func TestPreprocessor_InvalidInput(t *testing.T) {
	p := CLIPPreprocessor(224)
	_, err := p.Preprocess(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = p.Preprocess([]byte("not an image"))
	assert.Error(t, err)
}

func TestCLIPPreprocessor_Constants(t *testing.T) {
	p := CLIPPreprocessor(224)
	assert.Equal(t, 224, p.ImageSize)
	assert.InDelta(t, 0.48145466, p.Mean[0], 1e-8)
	assert.InDelta(t, 0.27577711, p.Std[2], 1e-8)
}
