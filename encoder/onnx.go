package encoder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// Tokenizer converts text into the fixed-length token id sequence expected by
// an ONNX text tower. Implementations must pad or truncate to contextLength.
type Tokenizer interface {
	Tokenize(text string, contextLength int) ([]int64, error)
}

// ONNXMetadata describes the exported dual-encoder model pair.
type ONNXMetadata struct {
	EmbeddingDim  int        `json:"embedding_dim"`
	ImageSize     int        `json:"image_size"`
	ContextLength int        `json:"context_length"`
	Mean          [3]float32 `json:"mean"`
	Std           [3]float32 `json:"std"`
}

// ONNXEncoder runs a CLIP-style dual encoder locally via ONNX Runtime. It
// implements both TextEncoder and ImageEncoder. Not safe for concurrent use:
// sessions share pre-allocated tensors.
type ONNXEncoder struct {
	meta ONNXMetadata
	pre  *Preprocessor
	tok  Tokenizer

	imageSession *ort.AdvancedSession
	imageIn      *ort.Tensor[float32]
	imageOut     *ort.Tensor[float32]

	textSession *ort.AdvancedSession
	textIn      *ort.Tensor[int64]
	textOut     *ort.Tensor[float32]
}

// NewONNXEncoder loads the image and text towers plus a metadata JSON file
// (embedding_dim, image_size, context_length, mean, std).
func NewONNXEncoder(imageModelPath, textModelPath, metadataPath string, tok Tokenizer) (*ONNXEncoder, error) {
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
	if meta.EmbeddingDim <= 0 || meta.ImageSize <= 0 || meta.ContextLength <= 0 {
		return nil, fmt.Errorf("metadata: embedding_dim, image_size and context_length must be positive")
	}

	e := &ONNXEncoder{
		meta: meta,
		tok:  tok,
		pre: &Preprocessor{
			ImageSize: meta.ImageSize,
			Mean:      meta.Mean,
			Std:       meta.Std,
		},
	}

	e.imageIn, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(meta.ImageSize), int64(meta.ImageSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to create image input tensor: %w", err)
	}
	e.imageOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(meta.EmbeddingDim)))
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create image output tensor: %w", err)
	}
	e.imageSession, err = ort.NewAdvancedSession(imageModelPath,
		[]string{"pixel_values"}, []string{"image_embeds"},
		[]ort.ArbitraryTensor{e.imageIn}, []ort.ArbitraryTensor{e.imageOut},
		nil)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create image session: %w", err)
	}

	e.textIn, err = ort.NewEmptyTensor[int64](ort.NewShape(1, int64(meta.ContextLength)))
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create text input tensor: %w", err)
	}
	e.textOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(meta.EmbeddingDim)))
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create text output tensor: %w", err)
	}
	e.textSession, err = ort.NewAdvancedSession(textModelPath,
		[]string{"input_ids"}, []string{"text_embeds"},
		[]ort.ArbitraryTensor{e.textIn}, []ort.ArbitraryTensor{e.textOut},
		nil)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("failed to create text session: %w", err)
	}

	return e, nil
}

// EncodeText implements TextEncoder.
func (e *ONNXEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if e.tok == nil {
		return nil, fmt.Errorf("onnx encoder: no tokenizer configured")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	ids, err := e.tok.Tokenize(text, e.meta.ContextLength)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if len(ids) != e.meta.ContextLength {
		return nil, fmt.Errorf("tokenize: got %d ids, want %d", len(ids), e.meta.ContextLength)
	}
	copy(e.textIn.GetData(), ids)
	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("text inference failed: %w", err)
	}
	return append([]float32(nil), e.textOut.GetData()...), nil
}

// EncodeTextBatch implements TextEncoder.
func (e *ONNXEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return encodeOneByOne(ctx, texts, e.EncodeText)
}

// EncodeImage implements ImageEncoder.
func (e *ONNXEncoder) EncodeImage(ctx context.Context, img []byte) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	pixels, err := e.pre.Preprocess(img)
	if err != nil {
		return nil, err
	}
	copy(e.imageIn.GetData(), pixels)
	if err := e.imageSession.Run(); err != nil {
		return nil, fmt.Errorf("image inference failed: %w", err)
	}
	return append([]float32(nil), e.imageOut.GetData()...), nil
}

// EncodeImageBatch implements ImageEncoder.
func (e *ONNXEncoder) EncodeImageBatch(ctx context.Context, images [][]byte) ([][]float32, error) {
	return encodeOneByOne(ctx, images, e.EncodeImage)
}

// Dimension implements TextEncoder and ImageEncoder.
func (e *ONNXEncoder) Dimension() int {
	return e.meta.EmbeddingDim
}

// Close releases ONNX Runtime resources.
func (e *ONNXEncoder) Close() {
	e.destroy()
	ort.DestroyEnvironment()
}

func (e *ONNXEncoder) destroy() {
	if e.imageIn != nil {
		e.imageIn.Destroy()
	}
	if e.imageOut != nil {
		e.imageOut.Destroy()
	}
	if e.imageSession != nil {
		e.imageSession.Destroy()
	}
	if e.textIn != nil {
		e.textIn.Destroy()
	}
	if e.textOut != nil {
		e.textOut.Destroy()
	}
	if e.textSession != nil {
		e.textSession.Destroy()
	}
}
