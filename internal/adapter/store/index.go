package store

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"finrag/internal/domain"
)

// Filter restricts search candidates by metadata. A nil Filter admits
// every record.
type Filter func(domain.Metadata) bool

// Item is one record to append: the ID is assigned by the index.
type Item struct {
	Vector   []float32
	Text     string
	Metadata domain.Metadata
}

// Index is an append-only collection of embedded records with
// brute-force cosine search. Records are never updated or deleted.
type Index struct {
	mu        sync.RWMutex
	dimension int
	records   []domain.Record
	nextID    uint64
}

// New creates an empty index with a fixed vector dimensionality.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidConfig, dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Dimension returns the fixed vector length all records share.
func (ix *Index) Dimension() int { return ix.dimension }

// Len returns the number of stored records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Append adds a batch of records, assigning monotonic IDs. The batch is
// all-or-nothing: if any vector's length differs from the index
// dimension, no record is added.
func (ix *Index) Append(items []Item) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i, item := range items {
		if len(item.Vector) != ix.dimension {
			return fmt.Errorf("%w: record %d has dimension %d, index expects %d",
				domain.ErrDimensionMismatch, i, len(item.Vector), ix.dimension)
		}
	}

	for _, item := range items {
		ix.records = append(ix.records, domain.Record{
			ID:       ix.nextID,
			Vector:   item.Vector,
			Text:     item.Text,
			Metadata: item.Metadata,
		})
		ix.nextID++
	}

	return nil
}

// Search returns up to k records ordered by descending cosine
// similarity to query, ties broken by ascending ID. The filter, when
// set, is applied before ranking so filtered searches rank over all
// matching records rather than post-filtering a capped top-k. An empty
// index, or one with no records passing the filter, returns an empty
// result, never an error.
func (ix *Index) Search(query []float32, k int, filter Filter) ([]domain.ScoredRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			domain.ErrDimensionMismatch, len(query), ix.dimension)
	}
	if k <= 0 || len(ix.records) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredRecord, 0, len(ix.records))
	for _, rec := range ix.records {
		if filter != nil && !filter(rec.Metadata) {
			continue
		}
		scored = append(scored, domain.ScoredRecord{
			Record: rec,
			Score:  Cosine(query, rec.Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.ID < scored[j].Record.ID
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Records returns a snapshot copy of all stored records in ID order.
func (ix *Index) Records() []domain.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]domain.Record, len(ix.records))
	copy(out, ix.records)
	return out
}

// Cosine computes the cosine similarity of two vectors in [-1, 1].
// Zero-norm vectors score 0 against everything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
