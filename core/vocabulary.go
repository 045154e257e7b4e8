package core

import "sort"

// Vocabulary is an ordered set of unique class names. The order is fixed at
// construction: label embeddings are stored row-per-label in the same order,
// and predictions are recovered by indexing the vocabulary with the arg-max
// row index.
type Vocabulary struct {
	labels []string
	index  map[string]int
}

// NewVocabulary builds a vocabulary by deduplicating and sorting the given
// labels. Empty labels are skipped.
func NewVocabulary(labels []string) *Vocabulary {
	seen := make(map[string]bool, len(labels))
	var uniq []string
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		uniq = append(uniq, l)
	}
	sort.Strings(uniq)
	index := make(map[string]int, len(uniq))
	for i, l := range uniq {
		index[l] = i
	}
	return &Vocabulary{labels: uniq, index: index}
}

// Len returns the number of classes.
func (v *Vocabulary) Len() int {
	return len(v.labels)
}

// Labels returns a copy of the ordered class names.
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}

// Label returns the class name at index i.
func (v *Vocabulary) Label(i int) string {
	return v.labels[i]
}

// Index returns the position of a label and whether it is present.
func (v *Vocabulary) Index(label string) (int, bool) {
	i, ok := v.index[label]
	return i, ok
}
