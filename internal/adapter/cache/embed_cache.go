package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"finrag/internal/port"
)

// EmbedCache deduplicates embedding requests by content hash. Entries
// are keyed by (model, sha256(text)) so switching models never serves
// stale vectors. Concurrent requests for the same uncached text
// coalesce into a single provider call.
type EmbedCache struct {
	embedder port.Embedder
	group    singleflight.Group

	mu      sync.RWMutex
	entries map[string][]float32
}

func New(embedder port.Embedder) *EmbedCache {
	return &EmbedCache{
		embedder: embedder,
		entries:  make(map[string][]float32),
	}
}

func (c *EmbedCache) key(text string) string {
	h := sha256.New()
	h.Write([]byte(c.embedder.ModelName()))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *EmbedCache) lookup(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.entries[key]
	return vec, ok
}

func (c *EmbedCache) store(key string, vec []float32) {
	c.mu.Lock()
	c.entries[key] = vec
	c.mu.Unlock()
}

// EmbedOne returns the embedding for text, calling the provider only
// on a cache miss.
func (c *EmbedCache) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.lookup(key); ok {
		return vec, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if vec, ok := c.lookup(key); ok {
			return vec, nil
		}
		vecs, err := c.embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("provider returned %d vectors for 1 text", len(vecs))
		}
		c.store(key, vecs[0])
		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedMany returns embeddings parallel to texts. Duplicate texts in
// one call reach the provider once; texts already cached reach it not
// at all. A provider failure aborts the call, but vectors cached from
// earlier calls stay cached.
func (c *EmbedCache) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	// Positions per unique missing key, preserving first-seen order.
	missing := make(map[string][]int)
	var missTexts []string

	for i, text := range texts {
		key := c.key(text)
		if vec, ok := c.lookup(key); ok {
			out[i] = vec
			continue
		}
		if _, seen := missing[key]; !seen {
			missTexts = append(missTexts, text)
		}
		missing[key] = append(missing[key], i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	for j, text := range missTexts {
		key := c.key(text)
		c.store(key, vecs[j])
		for _, i := range missing[key] {
			out[i] = vecs[j]
		}
	}

	return out, nil
}

// Dimension reports the provider's fixed vector dimensionality.
func (c *EmbedCache) Dimension() int { return c.embedder.Dimension() }

// ModelName reports the provider's model identifier.
func (c *EmbedCache) ModelName() string { return c.embedder.ModelName() }

// Len returns the number of cached entries.
func (c *EmbedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
