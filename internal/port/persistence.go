package port

import "context"

// BlobStore is the opaque persistence medium for serialized index bytes,
// addressed by a single key fixed at construction.
type BlobStore interface {
	// LoadBytes returns the stored bytes, or domain.ErrNotFound when
	// nothing has been persisted yet.
	LoadBytes(ctx context.Context) ([]byte, error)

	// SaveBytes replaces the stored bytes.
	SaveBytes(ctx context.Context, data []byte) error
}
