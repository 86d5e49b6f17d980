package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig reports bad chunking or index parameters, e.g.
	// overlap >= chunk size. Fatal to the call, not to the process.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidDocument reports ingestion input missing required metadata.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrDimensionMismatch reports a vector whose length disagrees with
	// the index's fixed dimensionality. Fatal to the append batch.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrCorruptIndex reports malformed persisted index bytes. The engine
	// recovers by falling back to an empty index at initialization.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrNotFound reports a persistence key with no stored bytes.
	ErrNotFound = errors.New("not found")
)

// ProviderError wraps a failure contacting the embedding provider after
// its retry policy is exhausted.
type ProviderError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure writing the durable index copy. The
// in-memory index stays updated; the durable copy is stale until the
// next successful mutation persists it.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist index %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
