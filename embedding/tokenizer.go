package embedding

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer is the fixed reference tokenizer used for truncation and
// chunking decisions.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// tiktokenTokenizer wraps the cl100k_base encoding used by the embedding
// model family.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns the cl100k_base tokenizer.
func NewTiktokenTokenizer() (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
