// Package store persists batch-run progress between periodic artifact
// flushes. Each completed task is written through to a bolt bucket per
// stage, so a crash mid-batch loses nothing: on the next run the
// unflushed delta is merged back over the JSON artifacts. After a final
// artifact save the stage buckets are cleared.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

type Checkpoint struct {
	db *bbolt.DB
}

// OpenCheckpoint opens (or creates) the checkpoint database. Buckets are
// created lazily per stage on the first Put.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint db: %w", err)
	}
	return &Checkpoint{db: db}, nil
}

// Put stores v under key in the stage's bucket.
func (c *Checkpoint) Put(stage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint entry: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(stage))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", stage, err)
		}
		return b.Put([]byte(key), data)
	})
}

// Delete removes key from the stage's bucket. Missing buckets and keys
// are not errors.
func (c *Checkpoint) Delete(stage, key string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(stage))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Each calls fn for every entry in the stage's bucket with the raw JSON
// value. A missing bucket is an empty stage.
func (c *Checkpoint) Each(stage string, fn func(key string, raw []byte) error) error {
	return c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(stage))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// Clear drops the stage's bucket entirely.
func (c *Checkpoint) Clear(stage string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(stage)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(stage))
	})
}

func (c *Checkpoint) Close() error {
	return c.db.Close()
}
