package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Metadata keys the engine attaches or requires during ingestion.
// Keys beyond these are collaborator-defined and passed through untouched.
const (
	KeySource    = "source"
	KeyType      = "type"
	KeyChunk     = "chunk"
	KeyTimestamp = "timestamp"
)

// Canonical document type tags used by topic aggregation.
const (
	TypeStockData = "stock_data"
	TypeStockNews = "stock_news"
	TypeSECFiling = "sec_filing"
	TypeSentiment = "sentiment"
)

// Metadata is an open string-keyed mapping attached to every record.
// Numeric and timestamp values are carried as their string form.
type Metadata map[string]string

// Clone returns an independent copy so per-chunk enrichment never
// mutates the caller's map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate checks the fields the engine requires on ingestion input.
func (m Metadata) Validate() error {
	if m[KeySource] == "" {
		return fmt.Errorf("%w: missing %q metadata", ErrInvalidDocument, KeySource)
	}
	if m[KeyType] == "" {
		return fmt.Errorf("%w: missing %q metadata", ErrInvalidDocument, KeyType)
	}
	return nil
}

// Source returns the provenance identifier.
func (m Metadata) Source() string { return m[KeySource] }

// DocType returns the category tag.
func (m Metadata) DocType() string { return m[KeyType] }

// ChunkIndex returns the chunk sequence index attached at ingestion,
// or -1 when absent or malformed.
func (m Metadata) ChunkIndex() int {
	n, err := strconv.Atoi(m[KeyChunk])
	if err != nil {
		return -1
	}
	return n
}

// IngestedAt returns the ingestion timestamp attached by the engine,
// or the zero time when absent or malformed.
func (m Metadata) IngestedAt() time.Time {
	t, err := time.Parse(time.RFC3339, m[KeyTimestamp])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Document is the ingestion input: free-form text plus collaborator
// metadata carrying at least "source" and "type".
type Document struct {
	Text     string
	Metadata Metadata
}

// Chunk is a bounded segment of one source document. Index is its
// 0-based position within that document's chunk sequence.
type Chunk struct {
	Text  string
	Index int
}

// Record is the unit stored in the index. IDs are monotonic and
// assigned at insertion; records are immutable once appended.
type Record struct {
	ID       uint64
	Vector   []float32
	Text     string
	Metadata Metadata
}

// ScoredRecord pairs a record with its similarity to a query.
type ScoredRecord struct {
	Record Record
	Score  float64
}

// Result is what similarity, diverse and filtered queries return.
type Result struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

// TopicResult is one entry in a topic aggregate; scores are omitted
// in the nested structure.
type TopicResult struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// TopicResults groups topic lookup results by category tag. A category
// that failed or matched nothing is present with an empty list.
type TopicResults map[string][]TopicResult
