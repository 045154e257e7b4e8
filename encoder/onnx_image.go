package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXImageEncoder runs only the vision tower of an exported dual encoder.
// Used when the text side goes through a remote embeddings API. Not safe for
// concurrent use.
type ONNXImageEncoder struct {
	meta ONNXMetadata
	pre  *Preprocessor

	session *ort.AdvancedSession
	in      *ort.Tensor[float32]
	out     *ort.Tensor[float32]
}

// NewONNXImageEncoder loads the vision tower plus its metadata JSON file.
func NewONNXImageEncoder(imageModelPath, metadataPath string) (*ONNXImageEncoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta ONNXMetadata
	if err := json.Unmarshal(metaFile, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if meta.EmbeddingDim <= 0 || meta.ImageSize <= 0 {
		return nil, fmt.Errorf("metadata: embedding_dim and image_size must be positive")
	}

	e := &ONNXImageEncoder{
		meta: meta,
		pre: &Preprocessor{
			ImageSize: meta.ImageSize,
			Mean:      meta.Mean,
			Std:       meta.Std,
		},
	}
	e.in, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(meta.ImageSize), int64(meta.ImageSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	e.out, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(meta.EmbeddingDim)))
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	e.session, err = ort.NewAdvancedSession(imageModelPath,
		[]string{"pixel_values"}, []string{"image_embeds"},
		[]ort.ArbitraryTensor{e.in}, []ort.ArbitraryTensor{e.out},
		nil)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create image session: %w", err)
	}
	return e, nil
}

// EncodeImage implements ImageEncoder.
func (e *ONNXImageEncoder) EncodeImage(ctx context.Context, img []byte) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	pixels, err := e.pre.Preprocess(img)
	if err != nil {
		return nil, err
	}
	copy(e.in.GetData(), pixels)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("image inference failed: %w", err)
	}
	return append([]float32(nil), e.out.GetData()...), nil
}

// EncodeImageBatch implements ImageEncoder.
func (e *ONNXImageEncoder) EncodeImageBatch(ctx context.Context, images [][]byte) ([][]float32, error) {
	return encodeOneByOne(ctx, images, e.EncodeImage)
}

// Dimension implements ImageEncoder.
func (e *ONNXImageEncoder) Dimension() int {
	return e.meta.EmbeddingDim
}

// Close releases ONNX Runtime resources.
func (e *ONNXImageEncoder) Close() {
	e.destroy()
	ort.DestroyEnvironment()
}

func (e *ONNXImageEncoder) destroy() {
	if e.in != nil {
		e.in.Destroy()
	}
	if e.out != nil {
		e.out.Destroy()
	}
	if e.session != nil {
		e.session.Destroy()
	}
}
