package dataset

import (
	"context"
	"fmt"
	"path"

	"github.com/klejdi94/clipbench/core"
)

// Fetcher reads objects by key. results/s3blob.Store satisfies it, as does
// any S3-compatible blob client with the same Get signature.
type Fetcher interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Blob is a Dataset whose JSONL manifest and images live in object storage.
// Relative image keys in the manifest resolve against the manifest key's
// directory.
type Blob struct {
	fetcher  Fetcher
	manifest *Manifest
}

// LoadBlob fetches and validates a JSONL manifest from the blob store.
func LoadBlob(ctx context.Context, fetcher Fetcher, manifestKey string) (*Blob, error) {
	data, err := fetcher.Get(ctx, manifestKey)
	if err != nil {
		return nil, fmt.Errorf("dataset blob manifest %q: %w", manifestKey, err)
	}
	m, err := ParseManifest(data, path.Dir(manifestKey))
	if err != nil {
		return nil, err
	}
	return &Blob{fetcher: fetcher, manifest: m}, nil
}

func (b *Blob) Len() int { return b.manifest.Len() }

func (b *Blob) Label(i int) string { return b.manifest.Label(i) }

// Sample fetches the image object for record i.
func (b *Blob) Sample(ctx context.Context, i int) (core.Sample, error) {
	rec := b.manifest.records[i]
	key := rec.Image
	if !path.IsAbs(key) && b.manifest.root != "." && b.manifest.root != "" {
		key = path.Join(b.manifest.root, key)
	}
	data, err := b.fetcher.Get(ctx, key)
	if err != nil {
		return core.Sample{}, fmt.Errorf("dataset sample %d (%s): %w", i, key, err)
	}
	return core.Sample{Image: data, Path: key, Label: rec.Label}, nil
}
