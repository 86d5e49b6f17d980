package store

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"finrag/internal/domain"
)

var bucketIndexes = []byte("indexes")

// BoltStore persists serialized index bytes in a BoltDB file, one key
// per index instance.
type BoltStore struct {
	db  *bbolt.DB
	key []byte
}

func NewBoltStore(path, key string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIndexes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, key: []byte(key)}, nil
}

func (s *BoltStore) LoadBytes(_ context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		stored := tx.Bucket(bucketIndexes).Get(s.key)
		if stored == nil {
			return domain.ErrNotFound
		}
		// Bolt-owned memory is only valid inside the transaction.
		data = make([]byte, len(stored))
		copy(data, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BoltStore) SaveBytes(_ context.Context, data []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIndexes).Put(s.key, data)
	})
	if err != nil {
		return &domain.PersistenceError{Key: string(s.key), Err: err}
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
