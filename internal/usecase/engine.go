package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"finrag/internal/adapter/cache"
	"finrag/internal/adapter/chunker"
	"finrag/internal/adapter/store"
	"finrag/internal/domain"
	"finrag/internal/port"
)

// Engine orchestrates the chunker, embedding cache and vector index,
// and owns the index lifecycle: load-or-create, append, persist.
//
// Queries take a read lock; the append-then-persist sequence takes the
// write lock, so readers never observe a torn index state.
type Engine struct {
	mu      sync.RWMutex
	chunker *chunker.TextChunker
	cache   *cache.EmbedCache
	blobs   port.BlobStore
	log     log.FieldLogger

	index *store.Index
	dirty bool
}

func NewEngine(ch *chunker.TextChunker, ec *cache.EmbedCache, blobs port.BlobStore, logger log.FieldLogger) *Engine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		chunker: ch,
		cache:   ec,
		blobs:   blobs,
		log:     logger,
	}
}

// Initialize loads a persisted index if one exists and is valid,
// otherwise starts with an empty index at the embedding provider's
// dimensionality. Corrupt persisted bytes are logged and discarded,
// never fatal.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.blobs.LoadBytes(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// First run.
	case err != nil:
		e.log.WithError(err).Warn("failed to read persisted index, starting empty")
	default:
		ix, derr := store.Decode(data)
		if derr != nil {
			e.log.WithError(derr).Warn("persisted index is corrupt, starting empty")
			break
		}
		if ix.Dimension() != e.cache.Dimension() {
			e.log.WithFields(log.Fields{
				"index_dimension":    ix.Dimension(),
				"provider_dimension": e.cache.Dimension(),
			}).Warn("persisted index dimension does not match embedding provider, starting empty")
			break
		}
		e.index = ix
		e.log.WithField("records", ix.Len()).Info("loaded persisted index")
		return nil
	}

	ix, err := store.New(e.cache.Dimension())
	if err != nil {
		return err
	}
	e.index = ix
	return nil
}

// IngestResult reports what an Ingest call accomplished. Durable is
// false when the in-memory index was updated but persisting it failed;
// the engine re-persists on the next successful mutation.
type IngestResult struct {
	Documents int
	Chunks    int
	Durable   bool
}

// Ingest chunks each document, embeds every chunk and appends the
// resulting records to the index in one atomic batch, then persists.
// Any failure before the append leaves the index and its durable copy
// untouched.
func (e *Engine) Ingest(ctx context.Context, docs []domain.Document) (IngestResult, error) {
	res := IngestResult{Documents: len(docs)}
	if len(docs) == 0 {
		res.Durable = true
		return res, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)

	var items []store.Item
	var texts []string
	for i, doc := range docs {
		if err := doc.Metadata.Validate(); err != nil {
			return res, fmt.Errorf("document %d: %w", i, err)
		}
		for _, ch := range e.chunker.Split(doc.Text) {
			meta := doc.Metadata.Clone()
			meta[domain.KeyChunk] = strconv.Itoa(ch.Index)
			meta[domain.KeyTimestamp] = now
			items = append(items, store.Item{Text: ch.Text, Metadata: meta})
			texts = append(texts, ch.Text)
		}
	}
	if len(items) == 0 {
		res.Durable = true
		return res, nil
	}

	vecs, err := e.cache.EmbedMany(ctx, texts)
	if err != nil {
		e.log.WithError(err).Error("ingestion aborted: embedding failed")
		return res, err
	}
	for i := range items {
		items[i].Vector = vecs[i]
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureIndexLocked(); err != nil {
		return res, err
	}
	if err := e.index.Append(items); err != nil {
		return res, err
	}
	res.Chunks = len(items)
	e.dirty = true

	if err := e.persistLocked(ctx); err != nil {
		e.log.WithError(err).Error("index updated in memory but not persisted")
		return res, err
	}
	res.Durable = true
	return res, nil
}

// QuerySimilarity returns up to k records ordered by descending
// similarity to the query text.
func (e *Engine) QuerySimilarity(ctx context.Context, query string, k int) ([]domain.Result, error) {
	return e.search(ctx, query, k, nil)
}

// QueryFiltered is QuerySimilarity restricted to records whose
// metadata field key equals value, ranked over all matching records.
func (e *Engine) QueryFiltered(ctx context.Context, query, key, value string, k int) ([]domain.Result, error) {
	return e.search(ctx, query, k, func(m domain.Metadata) bool {
		return m[key] == value
	})
}

// QueryDiverse applies maximum marginal relevance over an oversampled
// similarity pool of 2k candidates. diversity 0 reproduces plain
// similarity order; diversity 1 maximizes spread.
func (e *Engine) QueryDiverse(ctx context.Context, query string, k int, diversity float64) ([]domain.Result, error) {
	if diversity < 0 || diversity > 1 {
		return nil, fmt.Errorf("%w: diversity %v outside [0, 1]", domain.ErrInvalidConfig, diversity)
	}
	if k <= 0 || e.Len() == 0 {
		return nil, nil
	}

	vec, err := e.cache.EmbedOne(ctx, query)
	if err != nil {
		e.log.WithError(err).Error("query embedding failed, no results")
		return nil, err
	}

	e.mu.RLock()
	ix := e.index
	e.mu.RUnlock()

	pool, err := ix.Search(vec, 2*k, nil)
	if err != nil {
		return nil, err
	}

	return toResults(maxMarginalRelevance(pool, k, diversity)), nil
}

// topicCategories are the canonical type tags a topic lookup fans out
// to, with their query suffix and result count.
var topicCategories = []struct {
	Tag    string
	Suffix string
	K      int
}{
	{domain.TypeStockData, "stock data", 3},
	{domain.TypeStockNews, "stock news", 3},
	{domain.TypeSentiment, "market sentiment", 1},
	{domain.TypeSECFiling, "SEC filings", 1},
}

// QueryTopic issues one type-filtered lookup per canonical category
// and groups the results. A category failing or matching nothing is
// still present with an empty list, so one bad lookup never hides the
// other three.
func (e *Engine) QueryTopic(ctx context.Context, topic string) domain.TopicResults {
	out := make(domain.TopicResults, len(topicCategories))
	for _, cat := range topicCategories {
		out[cat.Tag] = []domain.TopicResult{}

		results, err := e.QueryFiltered(ctx, topic+" "+cat.Suffix, domain.KeyType, cat.Tag, cat.K)
		if err != nil {
			e.log.WithError(err).WithFields(log.Fields{
				"topic":    topic,
				"category": cat.Tag,
			}).Warn("topic category lookup failed")
			continue
		}
		for _, r := range results {
			out[cat.Tag] = append(out[cat.Tag], domain.TopicResult{Text: r.Text, Metadata: r.Metadata})
		}
	}
	return out
}

// Len returns the number of records currently indexed.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return 0
	}
	return e.index.Len()
}

func (e *Engine) search(ctx context.Context, query string, k int, filter store.Filter) ([]domain.Result, error) {
	// "No data yet" and "no matches" look identical to callers: an
	// uninitialized or empty index returns empty results, no error and
	// no provider call.
	if k <= 0 || e.Len() == 0 {
		return nil, nil
	}

	vec, err := e.cache.EmbedOne(ctx, query)
	if err != nil {
		e.log.WithError(err).Error("query embedding failed, no results")
		return nil, err
	}

	e.mu.RLock()
	ix := e.index
	e.mu.RUnlock()

	scored, err := ix.Search(vec, k, filter)
	if err != nil {
		return nil, err
	}
	return toResults(scored), nil
}

func (e *Engine) ensureIndexLocked() error {
	if e.index != nil {
		return nil
	}
	ix, err := store.New(e.cache.Dimension())
	if err != nil {
		return err
	}
	e.index = ix
	return nil
}

func (e *Engine) persistLocked(ctx context.Context) error {
	if !e.dirty {
		return nil
	}
	data, err := e.index.Encode()
	if err != nil {
		return &domain.PersistenceError{Key: "index", Err: err}
	}
	if err := e.blobs.SaveBytes(ctx, data); err != nil {
		return err
	}
	e.dirty = false
	return nil
}

func toResults(scored []domain.ScoredRecord) []domain.Result {
	results := make([]domain.Result, len(scored))
	for i, s := range scored {
		results[i] = domain.Result{
			Text:     s.Record.Text,
			Metadata: s.Record.Metadata,
			Score:    s.Score,
		}
	}
	return results
}
