// Package bolt implements storage.Store on a BoltDB file.
//
// Bolt keeps data in buckets; the store uses a single "blognode" bucket created
// on open. Every write runs in its own Update transaction, which Bolt commits
// atomically.
package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/sakif/blognode/internal/storage"
)

var bucketName = []byte("blognode")

var _ storage.Store = (*Store)(nil)

type Store struct {
	db *bolt.DB
}

// New opens the Bolt file at path. Bolt takes an exclusive file lock, so a second
// CLI process waits up to one second before failing instead of blocking forever.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: creating bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if raw == nil {
			return nil
		}
		// raw is only valid inside the transaction; string() copies it.
		value, found = string(raw), true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("bolt: getting %q: %w", key, err)
	}
	return value, found, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("bolt: setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bolt: removing %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
