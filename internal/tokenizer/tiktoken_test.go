package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadTikToken skips the test when the BPE files cannot be fetched,
// which happens on machines without network access.
func loadTikToken(t *testing.T, encodingName string) *TikToken {
	t.Helper()
	tok, err := NewTikToken(encodingName)
	if err != nil {
		t.Skipf("tiktoken encoding %q unavailable: %v", encodingName, err)
	}
	return tok
}

func TestTikTokenRoundTrip(t *testing.T) {
	tok := loadTikToken(t, "cl100k_base")

	text := "Hello, world!"
	tokens, err := tok.Encode(text)
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	decoded, err := tok.Decode(tokens)
	require.NoError(t, err)
	assert.Equal(t, text, decoded)
}

func TestTikTokenVocabSize(t *testing.T) {
	tok := loadTikToken(t, "cl100k_base")
	assert.Equal(t, 100256, tok.VocabSize())
	assert.Equal(t, "cl100k_base", tok.Name())
}

func TestTikTokenUnknownEncoding(t *testing.T) {
	_, err := NewTikToken("no_such_encoding")
	assert.Error(t, err)
}
