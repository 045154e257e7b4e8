package encoder

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// VocabTokenizer tokenizes text against a fixed token->id vocabulary exported
// alongside the ONNX model pair. Text is lowercased and split on whitespace;
// unknown words map to the unk id. Output is BOS + ids + EOS, padded with the
// pad id or truncated to the context length (EOS always kept last).
type VocabTokenizer struct {
	vocab map[string]int64
	bos   int64
	eos   int64
	pad   int64
	unk   int64
}

// vocabFile is the exported tokenizer JSON layout.
type vocabFile struct {
	Vocab map[string]int64 `json:"vocab"`
	BOS   int64            `json:"bos_id"`
	EOS   int64            `json:"eos_id"`
	Pad   int64            `json:"pad_id"`
	Unk   int64            `json:"unk_id"`
}

// LoadVocabTokenizer reads a tokenizer vocabulary JSON file.
func LoadVocabTokenizer(path string) (*VocabTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	var f vocabFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tokenizer parse: %w", err)
	}
	if len(f.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer: empty vocabulary in %s", path)
	}
	return &VocabTokenizer{vocab: f.Vocab, bos: f.BOS, eos: f.EOS, pad: f.Pad, unk: f.Unk}, nil
}

// NewVocabTokenizer wraps an in-memory vocabulary.
func NewVocabTokenizer(vocab map[string]int64, bos, eos, pad, unk int64) *VocabTokenizer {
	return &VocabTokenizer{vocab: vocab, bos: bos, eos: eos, pad: pad, unk: unk}
}

// Tokenize implements Tokenizer.
func (t *VocabTokenizer) Tokenize(text string, contextLength int) ([]int64, error) {
	if contextLength < 2 {
		return nil, fmt.Errorf("tokenizer: context length %d too small", contextLength)
	}
	words := strings.Fields(strings.ToLower(text))
	ids := make([]int64, 0, len(words)+2)
	ids = append(ids, t.bos)
	for _, w := range words {
		id, ok := t.vocab[w]
		if !ok {
			id = t.unk
		}
		ids = append(ids, id)
	}
	if len(ids) > contextLength-1 {
		ids = ids[:contextLength-1]
	}
	ids = append(ids, t.eos)
	for len(ids) < contextLength {
		ids = append(ids, t.pad)
	}
	return ids, nil
}
