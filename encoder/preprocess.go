package encoder

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// Preprocessor converts encoded image bytes into the CHW float32 tensor
// layout expected by a vision tower.
type Preprocessor struct {
	ImageSize int        // square side length after resize
	Mean      [3]float32 // per-channel mean, applied after scaling to [0,1]
	Std       [3]float32 // per-channel std
}

// CLIPPreprocessor returns a preprocessor with the normalization constants
// used by the original CLIP training pipeline.
func CLIPPreprocessor(size int) *Preprocessor {
	return &Preprocessor{
		ImageSize: size,
		Mean:      [3]float32{0.48145466, 0.4578275, 0.40821073},
		Std:       [3]float32{0.26862954, 0.26130258, 0.27577711},
	}
}

// Preprocess decodes, resizes, and normalizes an image into a CHW tensor of
// length 3*ImageSize*ImageSize.
func (p *Preprocessor) Preprocess(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("preprocess decode: %w", err)
	}
	size := uint(p.ImageSize)
	resized := resize.Resize(size, size, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := make([]float32, 3*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*width + x
			out[i] = (float32(r)/65535.0 - p.Mean[0]) / p.Std[0]
			out[width*height+i] = (float32(g)/65535.0 - p.Mean[1]) / p.Std[1]
			out[2*width*height+i] = (float32(b)/65535.0 - p.Mean[2]) / p.Std[2]
		}
	}
	return out, nil
}
