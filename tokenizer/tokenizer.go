// Copyright 2025 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer provides text tokenization.
//
// Example:
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tokens, err := tok.Encode("Hello, world!")
package tokenizer

import (
	"github.com/strand-ml/strand/internal/tokenizer"
)

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// NewTikToken creates a tokenizer for the named BPE encoding.
//
// Supported encodings: "cl100k_base" (GPT-4), "p50k_base" (GPT-3).
func NewTikToken(encodingName string) (Tokenizer, error) {
	return tokenizer.NewTikToken(encodingName)
}

// NewTikTokenForModel creates a tokenizer for a specific model name,
// for example "gpt-4" or "text-embedding-ada-002".
func NewTikTokenForModel(modelName string) (Tokenizer, error) {
	return tokenizer.NewTikTokenForModel(modelName)
}
