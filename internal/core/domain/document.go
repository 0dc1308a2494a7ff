package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when a document is submitted without a language tag
const DefaultLanguage = "en"

// Document is a submitted text under check. Immutable once created.
type Document struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Chunk is a contiguous word window of a document.
// Word offsets index the document's word list, byte offsets index its text.
// Both ranges are half-open.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	StartWord  int    `json:"start_word"`
	EndWord    int    `json:"end_word"`
	StartByte  int    `json:"start_byte"`
	EndByte    int    `json:"end_byte"`
	Text       string `json:"text"`
}

// WordCount returns the number of words covered by the chunk
func (c Chunk) WordCount() int {
	return c.EndWord - c.StartWord
}

// NewDocument validates the language tag and derives a content-addressed ID.
// Identical text always yields the same document ID.
func NewDocument(text, lang string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewInvalidInput("text", "document text is empty")
	}
	normalized, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:       ContentHash(text),
		Text:     text,
		Language: normalized,
	}, nil
}

// NormalizeLanguage parses a BCP 47 language tag and returns its canonical form.
// An empty tag defaults to DefaultLanguage.
func NormalizeLanguage(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return DefaultLanguage, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", NewInvalidInput("language", "malformed language code "+lang)
	}
	return tag.String(), nil
}

// ContentHash returns a short stable hex digest of the given text
func ContentHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}
