package detection

import (
	"fmt"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// Chunker splits documents into overlapping word windows
type Chunker struct {
	size   int
	stride int
}

// NewChunker creates a chunker producing windows of size words that overlap
// their predecessor by stride words.
func NewChunker(size, stride int) (*Chunker, error) {
	if size <= 0 {
		return nil, domain.NewConfigError("chunk_size", "must be positive")
	}
	if stride < 0 || stride >= size {
		return nil, domain.NewConfigError("stride", "must be in [0, chunk_size)")
	}
	return &Chunker{size: size, stride: stride}, nil
}

// Segments is a tokenised, chunked document. It is immutable once built
// and shared read-only by all matching layers of a check.
type Segments struct {
	Document *domain.Document
	Words    []Word
	Hashes   []uint64
	Chunks   []domain.Chunk
}

// Split tokenises the document and cuts it into chunks. Chunk byte ranges
// are contiguous from the start of the text to its end: the first chunk
// starts at byte 0, each chunk runs to the first word after it, and the last
// chunk ends at len(text). The final chunk may be shorter than the target size.
func (c *Chunker) Split(doc *domain.Document) *Segments {
	words := Tokenize(doc.Text)
	seg := &Segments{
		Document: doc,
		Words:    words,
		Hashes:   HashWords(words),
	}
	if len(words) == 0 {
		return seg
	}

	step := c.size - c.stride
	seg.Chunks = make([]domain.Chunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := min(start+c.size, len(words))

		startByte := words[start].Start
		if start == 0 {
			startByte = 0
		}
		endByte := len(doc.Text)
		if end < len(words) {
			endByte = words[end].Start
		}

		idx := len(seg.Chunks)
		seg.Chunks = append(seg.Chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, idx),
			DocumentID: doc.ID,
			Index:      idx,
			StartWord:  start,
			EndWord:    end,
			StartByte:  startByte,
			EndByte:    endByte,
			Text:       doc.Text[startByte:endByte],
		})
		if end == len(words) {
			break
		}
	}
	return seg
}

// WordCount returns the number of words in the document
func (s *Segments) WordCount() int {
	return len(s.Words)
}

// ChunkFor returns the ID of the first chunk containing word i
func (s *Segments) ChunkFor(i int) string {
	for _, c := range s.Chunks {
		if i >= c.StartWord && i < c.EndWord {
			return c.ID
		}
	}
	if len(s.Chunks) > 0 {
		return s.Chunks[len(s.Chunks)-1].ID
	}
	return ""
}

// ByteSpan maps the half-open word range [start, end) to tight byte offsets
func (s *Segments) ByteSpan(start, end int) (int, int) {
	if start >= end || start < 0 || end > len(s.Words) {
		return 0, 0
	}
	return s.Words[start].Start, s.Words[end-1].End
}

// Slice returns the document text of the word range [start, end)
func (s *Segments) Slice(start, end int) string {
	from, to := s.ByteSpan(start, end)
	return s.Document.Text[from:to]
}
