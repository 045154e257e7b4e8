package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultOpenAIEmbedBase = "https://api.openai.com/v1"

// OpenAIEncoder calls an OpenAI-compatible embeddings API as the text tower.
type OpenAIEncoder struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dim        int
	HTTPClient *http.Client
}

// NewOpenAIEncoder creates a text encoder using the OpenAI embeddings API.
func NewOpenAIEncoder(apiKey string) *OpenAIEncoder {
	return &OpenAIEncoder{
		APIKey:     apiKey,
		Model:      "text-embedding-3-small",
		BaseURL:    defaultOpenAIEmbedBase,
		Dim:        1536,
		HTTPClient: http.DefaultClient,
	}
}

type openAIEmbedReq struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbedResp struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// EncodeText implements TextEncoder.
func (e *OpenAIEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EncodeTextBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeTextBatch implements TextEncoder. All texts are sent in one request.
func (e *OpenAIEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.APIKey == "" {
		return nil, fmt.Errorf("openai encoder: API key required")
	}
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	model := e.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	body := openAIEmbedReq{Input: texts, Model: model}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/embeddings", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		bs, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai embeddings %d: %s", resp.StatusCode, string(bs))
	}
	var out openAIEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(out.Data), len(texts))
	}
	// The API may return entries out of order; place by index.
	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// Dimension implements TextEncoder.
func (e *OpenAIEncoder) Dimension() int {
	return e.Dim
}
