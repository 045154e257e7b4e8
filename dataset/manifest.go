package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klejdi94/clipbench/core"
)

// record is one JSONL manifest line. Both fields are required.
type record struct {
	Image string `json:"image"`
	Label string `json:"label"`
}

// Manifest is a Dataset backed by a JSONL manifest file, one record per line:
//
//	{"image": "cats/001.jpg", "label": "cat"}
//
// Relative image paths resolve against the manifest's directory. The schema
// is validated at load and a missing field fails immediately.
type Manifest struct {
	root    string
	records []record
}

// LoadManifest reads and validates a JSONL manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset manifest: %w", err)
	}
	defer f.Close()
	records, err := parseManifest(f)
	if err != nil {
		return nil, err
	}
	return &Manifest{root: filepath.Dir(path), records: records}, nil
}

// ParseManifest validates JSONL manifest content held in memory. The root is
// prepended to relative image paths when samples are read.
func ParseManifest(data []byte, root string) (*Manifest, error) {
	records, err := parseManifest(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Manifest{root: root, records: records}, nil
}

func parseManifest(r io.Reader) ([]record, error) {
	var records []record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("dataset manifest line %d: %w", line, err)
		}
		if rec.Image == "" {
			return nil, fmt.Errorf("dataset manifest: %w",
				&core.ValidationError{Field: "image", Record: line, Message: "missing or empty"})
		}
		if rec.Label == "" {
			return nil, fmt.Errorf("dataset manifest: %w",
				&core.ValidationError{Field: "label", Record: line, Message: "missing or empty"})
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset manifest: %w", err)
	}
	return records, nil
}

func (m *Manifest) Len() int { return len(m.records) }

func (m *Manifest) Label(i int) string { return m.records[i].Label }

// Sample reads the image bytes for record i from disk.
func (m *Manifest) Sample(ctx context.Context, i int) (core.Sample, error) {
	rec := m.records[i]
	path := rec.Image
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Sample{}, fmt.Errorf("dataset sample %d: %w", i, err)
	}
	return core.Sample{Image: data, Path: path, Label: rec.Label}, nil
}
