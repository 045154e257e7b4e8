package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klejdi94/clipbench/core"
)

// imageExtensions are the file suffixes picked up by the directory scanner.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Directory is a Dataset laid out as class-named subdirectories of a root:
//
//	root/cat/001.jpg
//	root/dog/002.png
//
// The subdirectory name is the ground-truth label. Entries are ordered by
// label, then file name, so iteration order is stable across runs.
type Directory struct {
	entries []dirEntry
}

type dirEntry struct {
	path  string
	label string
}

// NewDirectory scans root and indexes every image file one level below it.
// Files directly under root and non-image files are ignored; a root with no
// class subdirectories is an error.
func NewDirectory(root string) (*Directory, error) {
	classes, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("dataset directory: %w", err)
	}
	var entries []dirEntry
	for _, class := range classes {
		if !class.IsDir() {
			continue
		}
		label := class.Name()
		files, err := os.ReadDir(filepath.Join(root, label))
		if err != nil {
			return nil, fmt.Errorf("dataset directory %q: %w", label, err)
		}
		for _, f := range files {
			if f.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			entries = append(entries, dirEntry{
				path:  filepath.Join(root, label, f.Name()),
				label: label,
			})
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dataset directory: no images under %s", root)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].label != entries[j].label {
			return entries[i].label < entries[j].label
		}
		return entries[i].path < entries[j].path
	})
	return &Directory{entries: entries}, nil
}

func (d *Directory) Len() int { return len(d.entries) }

func (d *Directory) Label(i int) string { return d.entries[i].label }

// Sample reads the image bytes for entry i from disk.
func (d *Directory) Sample(ctx context.Context, i int) (core.Sample, error) {
	e := d.entries[i]
	data, err := os.ReadFile(e.path)
	if err != nil {
		return core.Sample{}, fmt.Errorf("dataset sample %d: %w", i, err)
	}
	return core.Sample{Image: data, Path: e.path, Label: e.label}, nil
}
