package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenizer() *VocabTokenizer {
	return NewVocabTokenizer(map[string]int64{
		"a": 10, "photo": 11, "of": 12, "cat": 13,
	}, 1, 2, 0, 3)
}

func TestVocabTokenizer_PadsToContextLength(t *testing.T) {
	ids, err := testTokenizer().Tokenize("a photo of a cat", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 10, 11, 12, 10, 13, 2, 0, 0, 0}, ids)
}

func TestVocabTokenizer_UnknownWordsAndCase(t *testing.T) {
	ids, err := testTokenizer().Tokenize("A Zebra", 6)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 10, 3, 2, 0, 0}, ids)
}

func TestVocabTokenizer_TruncatesKeepingEOS(t *testing.T) {
	ids, err := testTokenizer().Tokenize("a photo of a cat", 4)
	require.NoError(t, err)
	require.Len(t, ids, 4)
	assert.Equal(t, int64(1), ids[0])
	assert.Equal(t, int64(2), ids[3])
}

func TestVocabTokenizer_ContextTooSmall(t *testing.T) {
	_, err := testTokenizer().Tokenize("cat", 1)
	assert.Error(t, err)
}
