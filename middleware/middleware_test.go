package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoder returns a fixed vector per text and counts calls.
type fakeEncoder struct {
	calls int
	fail  int // fail this many calls before succeeding
}

func (f *fakeEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("transient")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.EncodeText(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEncoder) Dimension() int { return 2 }

func TestCacheMiddleware_HitSkipsEncoder(t *testing.T) {
	ctx := context.Background()
	fake := &fakeEncoder{}
	enc := Chain(fake, CacheMiddleware(NewInMemoryCache(), time.Minute))

	v1, err := enc.EncodeText(ctx, "a photo of a cat")
	require.NoError(t, err)
	v2, err := enc.EncodeText(ctx, "a photo of a cat")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, fake.calls)
}

func TestCacheMiddleware_BatchPartialHit(t *testing.T) {
	ctx := context.Background()
	fake := &fakeEncoder{}
	enc := Chain(fake, CacheMiddleware(NewInMemoryCache(), time.Minute))

	_, err := enc.EncodeText(ctx, "cat")
	require.NoError(t, err)
	vecs, err := enc.EncodeTextBatch(ctx, []string{"cat", "dog"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	// "cat" came from cache, only "dog" hit the encoder.
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, []float32{3, 1}, vecs[0])
	assert.Equal(t, []float32{3, 1}, vecs[1])
}

func TestRetry_EventuallySucceeds(t *testing.T) {
	ctx := context.Background()
	fake := &fakeEncoder{fail: 2}
	enc := Chain(fake, Retry(3, func(int) time.Duration { return 0 }))

	vec, err := enc.EncodeText(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, vec)
	assert.Equal(t, 3, fake.calls)
}

func TestRetry_Exhausted(t *testing.T) {
	ctx := context.Background()
	fake := &fakeEncoder{fail: 10}
	enc := Chain(fake, Retry(2, func(int) time.Duration { return 0 }))

	_, err := enc.EncodeText(ctx, "cat")
	assert.Error(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestMetrics_Counts(t *testing.T) {
	ctx := context.Background()
	mw, counters := Metrics()
	enc := Chain(&fakeEncoder{}, mw)

	_, err := enc.EncodeTextBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counters.Requests())
	assert.Equal(t, uint64(3), counters.Texts())
	assert.Equal(t, uint64(0), counters.Errors())
}

func TestExponentialBackoff_Caps(t *testing.T) {
	b := ExponentialBackoff(100*time.Millisecond, time.Second)
	assert.Equal(t, 100*time.Millisecond, b(0))
	assert.Equal(t, 200*time.Millisecond, b(1))
	assert.Equal(t, time.Second, b(10))
}
