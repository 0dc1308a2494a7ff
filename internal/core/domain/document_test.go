package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	doc, err := NewDocument("The quick brown fox.", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, doc.Language)
	assert.Len(t, doc.ID, 32)

	again, err := NewDocument("The quick brown fox.", "en")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)

	other, err := NewDocument("The quick brown fox!", "en")
	require.NoError(t, err)
	assert.NotEqual(t, doc.ID, other.ID)
}

func TestNewDocument_Invalid(t *testing.T) {
	_, err := NewDocument("   \n\t", "en")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewDocument("some text here", "not a language!!")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "en"},
		{"en", "en"},
		{"en-us", "en-US"},
		{"pt_BR", "pt-BR"},
		{" de ", "de"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeLanguage(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkWordCount(t *testing.T) {
	c := Chunk{StartWord: 40, EndWord: 90}
	assert.Equal(t, 50, c.WordCount())
}
