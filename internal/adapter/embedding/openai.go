package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"finrag/internal/domain"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
// Transient failures (timeouts, 429, 5xx) are retried with exponential
// backoff up to maxRetries before the error surfaces to the caller.
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	dimension  int
	maxRetries uint64
	client     *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Options configures an OpenAI-compatible embedder.
type Options struct {
	APIKeyEnv  string
	Model      string
	BaseURL    string
	Dimension  int
	MaxRetries int
	Timeout    time.Duration
}

func NewOpenAIEmbedder(opts Options) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	dimension := opts.Dimension
	if dimension == 0 {
		switch opts.Model {
		case "text-embedding-3-large":
			dimension = 3072
		default:
			dimension = 1536
		}
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIEmbedder{
		apiKey:     apiKey,
		model:      opts.Model,
		baseURL:    baseURL,
		dimension:  dimension,
		maxRetries: uint64(maxRetries),
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// NewOllamaEmbedder targets a local Ollama server's OpenAI-compatible API.
func NewOllamaEmbedder(model, baseURL string, maxRetries int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	dimension := 768
	switch model {
	case "mxbai-embed-large":
		dimension = 1024
	case "all-minilm":
		dimension = 384
	}

	return &OpenAIEmbedder{
		apiKey:     "ollama",
		model:      model,
		baseURL:    baseURL,
		dimension:  dimension,
		maxRetries: uint64(maxRetries),
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const maxBatch = 100
	var all [][]float32

	for i := 0; i < len(texts); i += maxBatch {
		end := i + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.maxRetries), ctx)

	var vecs [][]float32
	op := func() error {
		var err error
		vecs, err = e.doRequest(ctx, texts)
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		var provErr *domain.ProviderError
		if pe, ok := err.(*domain.ProviderError); ok {
			provErr = pe
		} else {
			provErr = &domain.ProviderError{Op: "embed", Retryable: false, Err: err}
		}
		return nil, provErr
	}

	return vecs, nil
}

func (e *OpenAIEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		// Network errors and timeouts are retryable.
		return nil, &domain.ProviderError{Op: "embed", Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Op: "embed", Retryable: true, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		provErr := &domain.ProviderError{
			Op:        "embed",
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:       fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(respBody, 200)),
		}
		if !provErr.Retryable {
			return nil, backoff.Permanent(provErr)
		}
		return nil, provErr
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, backoff.Permanent(&domain.ProviderError{
			Op:  "embed",
			Err: fmt.Errorf("failed to parse response (body: %s): %w", truncate(respBody, 200), err),
		})
	}
	if embResp.Error != nil {
		return nil, backoff.Permanent(&domain.ProviderError{
			Op:  "embed",
			Err: fmt.Errorf("API error: %s", embResp.Error.Message),
		})
	}

	vecs := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index >= 0 && data.Index < len(vecs) {
			vecs[data.Index] = data.Embedding
		}
	}
	for i, v := range vecs {
		if v == nil {
			return nil, backoff.Permanent(&domain.ProviderError{
				Op:  "embed",
				Err: fmt.Errorf("response missing embedding for input %d", i),
			})
		}
	}

	return vecs, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

func (e *OpenAIEmbedder) ModelName() string { return e.model }

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
