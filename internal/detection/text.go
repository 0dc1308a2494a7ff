// Package detection implements the matching layers, aggregation and scoring
// of originality checks.
package detection

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Word is a whitespace-delimited token with its byte offsets in the source text
type Word struct {
	Text  string
	Start int
	End   int
}

// emptyWordHash stands in for tokens that normalise to nothing (pure
// punctuation), keeping hash positions aligned with word positions.
var emptyWordHash = xxhash.Sum64String("\x00")

// Tokenize splits text into words on Unicode whitespace
func Tokenize(text string) []Word {
	words := make([]Word, 0, len(text)/6)
	start := -1
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, Word{Text: text[start:i], Start: start, End: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		words = append(words, Word{Text: text[start:], Start: start, End: len(text)})
	}
	return words
}

// NormalizeWord folds a token for comparison: NFKC, lower case, and
// surrounding punctuation removed.
func NormalizeWord(w string) string {
	w = strings.ToLower(norm.NFKC.String(w))
	return strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// HashWords returns the normalised hash of every word
func HashWords(words []Word) []uint64 {
	hashes := make([]uint64, len(words))
	for i, w := range words {
		n := NormalizeWord(w.Text)
		if n == "" {
			hashes[i] = emptyWordHash
			continue
		}
		hashes[i] = xxhash.Sum64String(n)
	}
	return hashes
}

// rollingBase is the multiplier of the polynomial rolling hash
const rollingBase uint64 = 1099511628211

// WindowHashes computes a polynomial rolling hash over every window of k
// consecutive word hashes. Element i covers words [i, i+k). Returns nil when
// there are fewer than k words.
func WindowHashes(wordHashes []uint64, k int) []uint64 {
	n := len(wordHashes)
	if k <= 0 || n < k {
		return nil
	}

	// lead = base^(k-1), the weight of the word leaving the window
	lead := uint64(1)
	for i := 1; i < k; i++ {
		lead *= rollingBase
	}

	out := make([]uint64, n-k+1)
	var h uint64
	for i := 0; i < k; i++ {
		h = h*rollingBase + wordHashes[i]
	}
	out[0] = h
	for i := 1; i+k <= n; i++ {
		h = (h-wordHashes[i-1]*lead)*rollingBase + wordHashes[i+k-1]
		out[i] = h
	}
	return out
}

// Fingerprints returns the window hashes of text for the given window size
func Fingerprints(text string, window int) []uint64 {
	return WindowHashes(HashWords(Tokenize(text)), window)
}

// Shingles returns the k-word shingle hashes of text, in order
func Shingles(text string, k int) []uint64 {
	return WindowHashes(HashWords(Tokenize(text)), k)
}
