package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klejdi94/clipbench/core"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cats", "1.jpg"), "cat-bytes")
	writeFile(t, filepath.Join(dir, "manifest.jsonl"),
		`{"image": "cats/1.jpg", "label": "cat"}
{"image": "dogs/2.jpg", "label": "dog"}
`)

	m, err := LoadManifest(filepath.Join(dir, "manifest.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "cat", m.Label(0))
	assert.Equal(t, "dog", m.Label(1))

	s, err := m.Sample(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("cat-bytes"), s.Image)
	assert.Equal(t, "cat", s.Label)
}

func TestLoadManifest_MissingLabelField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.jsonl"),
		`{"image": "cats/1.jpg", "label": "cat"}
{"image": "dogs/2.jpg"}
`)

	_, err := LoadManifest(filepath.Join(dir, "manifest.jsonl"))
	require.Error(t, err)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "label", verr.Field)
	assert.Equal(t, 2, verr.Record)
}

func TestLoadManifest_MissingImageField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.jsonl"), `{"label": "cat"}`)

	_, err := LoadManifest(filepath.Join(dir, "manifest.jsonl"))
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "image", verr.Field)
}

func TestLoadManifest_SkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.jsonl"),
		"\n"+`{"image": "a.jpg", "label": "cat"}`+"\n\n")

	m, err := LoadManifest(filepath.Join(dir, "manifest.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestNewDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dog", "2.png"), "dog-bytes")
	writeFile(t, filepath.Join(dir, "cat", "1.jpg"), "cat-bytes")
	writeFile(t, filepath.Join(dir, "cat", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "stray.jpg"), "ignored")

	d, err := NewDirectory(dir)
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	// Ordered by label then file name.
	assert.Equal(t, "cat", d.Label(0))
	assert.Equal(t, "dog", d.Label(1))

	s, err := d.Sample(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("dog-bytes"), s.Image)
}

func TestNewDirectory_Empty(t *testing.T) {
	_, err := NewDirectory(t.TempDir())
	assert.Error(t, err)
}

func TestExtractVocabulary(t *testing.T) {
	ds := NewInMemory([]core.Sample{
		{Label: "dog"}, {Label: "cat"}, {Label: "dog"},
	})
	vocab := ExtractVocabulary(ds)
	assert.Equal(t, []string{"cat", "dog"}, vocab.Labels())
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 7}}, Batches(7, 3))
	assert.Equal(t, [][2]int{{0, 2}}, Batches(2, 32))
	assert.Nil(t, Batches(0, 32))
}

type fakeFetcher struct {
	objects map[string][]byte
}

func (f *fakeFetcher) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}
	return data, nil
}

func TestLoadBlob(t *testing.T) {
	fetcher := &fakeFetcher{objects: map[string][]byte{
		"eval/manifest.jsonl": []byte(`{"image": "images/1.jpg", "label": "cat"}`),
		"eval/images/1.jpg":   []byte("cat-bytes"),
	}}

	b, err := LoadBlob(context.Background(), fetcher, "eval/manifest.jsonl")
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "cat", b.Label(0))

	s, err := b.Sample(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("cat-bytes"), s.Image)
	assert.Equal(t, "eval/images/1.jpg", s.Path)
}

func TestLoadBlob_MissingImageObject(t *testing.T) {
	fetcher := &fakeFetcher{objects: map[string][]byte{
		"manifest.jsonl": []byte(`{"image": "gone.jpg", "label": "cat"}`),
	}}
	b, err := LoadBlob(context.Background(), fetcher, "manifest.jsonl")
	require.NoError(t, err)
	_, err = b.Sample(context.Background(), 0)
	assert.Error(t, err)
}
