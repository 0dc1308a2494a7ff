package detection

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// posting locates a window or shingle hash inside a source
type posting struct {
	source int32
	pos    int32
}

// Corpus is the lexical index of one corpus snapshot, built for a given
// shingle size and fingerprint window. It is immutable once built and safe
// for concurrent use by all checks reading that snapshot.
type Corpus struct {
	Version int64
	Params  domain.CorpusParams

	sources []*domain.Source
	byID    map[string]int

	fingerprints map[uint64][]posting
	shingles     map[uint64][]posting

	// sourceShingles holds each source's ordered shingle hashes
	sourceShingles [][]uint64
}

// BuildCorpus indexes a snapshot. Precomputed source hashes are reused when
// they were built with the requested params, and recomputed from text otherwise.
func BuildCorpus(snap *domain.CorpusSnapshot, params domain.CorpusParams) *Corpus {
	c := &Corpus{
		Version:        snap.Version,
		Params:         params,
		sources:        make([]*domain.Source, len(snap.Sources)),
		byID:           make(map[string]int, len(snap.Sources)),
		fingerprints:   make(map[uint64][]posting),
		shingles:       make(map[uint64][]posting),
		sourceShingles: make([][]uint64, len(snap.Sources)),
	}

	reuse := snap.Params == params
	for i, src := range snap.Sources {
		c.sources[i] = src
		c.byID[src.ID] = i

		fps, shs := src.Fingerprints, src.Shingles
		if !reuse || (fps == nil && shs == nil) {
			hashes := HashWords(Tokenize(src.Text))
			fps = WindowHashes(hashes, params.FingerprintWindow)
			shs = WindowHashes(hashes, params.ShingleSize)
		}

		for pos, h := range fps {
			c.fingerprints[h] = append(c.fingerprints[h], posting{source: int32(i), pos: int32(pos)})
		}
		for pos, h := range shs {
			c.shingles[h] = append(c.shingles[h], posting{source: int32(i), pos: int32(pos)})
		}
		c.sourceShingles[i] = shs
	}
	return c
}

// Len returns the number of sources in the corpus
func (c *Corpus) Len() int {
	return len(c.sources)
}

// Source returns the source with the given ID, or nil
func (c *Corpus) Source(id string) *domain.Source {
	i, ok := c.byID[id]
	if !ok {
		return nil
	}
	return c.sources[i]
}

func (c *Corpus) source(i int32) *domain.Source {
	return c.sources[i]
}

// IndexCache keeps recently built corpus indexes keyed by snapshot version
// and params. Concurrent requests for the same key share one build.
type IndexCache struct {
	cache *lru.Cache[string, *Corpus]
	group singleflight.Group
}

// NewIndexCache creates a cache holding up to size indexes
func NewIndexCache(size int) (*IndexCache, error) {
	if size <= 0 {
		size = 4
	}
	cache, err := lru.New[string, *Corpus](size)
	if err != nil {
		return nil, fmt.Errorf("create index cache: %w", err)
	}
	return &IndexCache{cache: cache}, nil
}

// Get returns the index for the snapshot, building it if needed
func (ic *IndexCache) Get(snap *domain.CorpusSnapshot, params domain.CorpusParams) *Corpus {
	key := fmt.Sprintf("%d/%d/%d", snap.Version, params.ShingleSize, params.FingerprintWindow)
	if c, ok := ic.cache.Get(key); ok {
		return c
	}

	v, _, _ := ic.group.Do(key, func() (interface{}, error) {
		if c, ok := ic.cache.Get(key); ok {
			return c, nil
		}
		c := BuildCorpus(snap, params)
		ic.cache.Add(key, c)
		return c, nil
	})
	return v.(*Corpus)
}

// sortedKeys returns the keys of m in ascending order
func sortedKeys[V any](m map[int32]V) []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
