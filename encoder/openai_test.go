package encoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *OpenAIEncoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	enc := NewOpenAIEncoder("test-key")
	enc.BaseURL = srv.URL
	return enc
}

func TestOpenAIEncoder_EncodeTextBatch(t *testing.T) {
	var gotAuth string
	enc := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req openAIEmbedReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a photo of a cat", "a photo of a dog"}, req.Input)

		// Respond out of order to exercise index placement.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	})

	vecs, err := enc.EncodeTextBatch(context.Background(), []string{"a photo of a cat", "a photo of a dog"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEncoder_EncodeText(t *testing.T) {
	enc := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{0.5, 0.5}},
			},
		})
	})

	vec, err := enc.EncodeText(context.Background(), "a photo of a cat")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
}

func TestOpenAIEncoder_APIError(t *testing.T) {
	enc := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := enc.EncodeTextBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestOpenAIEncoder_CountMismatch(t *testing.T) {
	enc := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{},
		})
	})

	_, err := enc.EncodeTextBatch(context.Background(), []string{"x", "y"})
	assert.Error(t, err)
}

func TestOpenAIEncoder_RequiresAPIKey(t *testing.T) {
	enc := NewOpenAIEncoder("")
	_, err := enc.EncodeTextBatch(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestOpenAIEncoder_EmptyInput(t *testing.T) {
	enc := NewOpenAIEncoder("k")
	_, err := enc.EncodeTextBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}
