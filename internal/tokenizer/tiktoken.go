// Package tokenizer converts between text and token IDs.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer is the interface all tokenizer implementations satisfy.
type Tokenizer interface {
	Encode(text string) ([]int32, error)
	Decode(tokens []int32) (string, error)
	VocabSize() int
	Name() string
}

const (
	encodingCL100kBase = "cl100k_base"
	encodingP50kBase   = "p50k_base"
	encodingR50kBase   = "r50k_base"
)

// TikToken wraps the pkoukk/tiktoken-go BPE encodings.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken creates a tokenizer for the named encoding, for example
// "cl100k_base" or "p50k_base".
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// NewTikTokenForModel creates a tokenizer for a model name, for example
// "gpt-4" or "text-embedding-ada-002".
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	encoding, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken for model %q: %w", modelName, err)
	}
	return &TikToken{encoding: encoding, name: modelName}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: vocab size < 2^31.
	}
	return result, nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		intTokens[i] = int(tok)
	}
	return t.encoding.Decode(intTokens), nil
}

// VocabSize returns the vocabulary size of the underlying encoding.
// tiktoken-go does not expose it, so known encodings are hard-coded.
func (t *TikToken) VocabSize() int {
	switch t.name {
	case encodingCL100kBase:
		return 100256
	case encodingP50kBase, encodingR50kBase:
		return 50257
	default:
		return 100000
	}
}

// Name returns the encoding or model name the tokenizer was built from.
func (t *TikToken) Name() string {
	return t.name
}
