package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/util"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

type vectorEntry struct {
	sourceID string
	version  int64
	vector   []float32
}

// VectorIndex is a brute-force cosine index. Queries only compare vectors
// of the query's dimension.
type VectorIndex struct {
	mu      sync.RWMutex
	entries []vectorEntry
	byID    map[string]int
}

// NewVectorIndex creates an empty index
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{byID: make(map[string]int)}
}

func (x *VectorIndex) Upsert(ctx context.Context, sourceID string, version int64, vector []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	entry := vectorEntry{sourceID: sourceID, version: version, vector: append([]float32(nil), vector...)}
	if i, ok := x.byID[sourceID]; ok {
		x.entries[i] = entry
		return nil
	}
	x.byID[sourceID] = len(x.entries)
	x.entries = append(x.entries, entry)
	return nil
}

func (x *VectorIndex) Query(ctx context.Context, vector []float32, topK int, asOf int64) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if topK <= 0 {
		topK = 5
	}
	hits := make([]driven.VectorHit, 0, len(x.entries))
	for _, e := range x.entries {
		// other dimensions come from another embedding space
		if e.version > asOf || len(e.vector) != len(vector) {
			continue
		}
		hits = append(hits, driven.VectorHit{SourceID: e.sourceID, Similarity: util.Cosine(vector, e.vector)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].SourceID < hits[j].SourceID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (x *VectorIndex) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of indexed vectors
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
