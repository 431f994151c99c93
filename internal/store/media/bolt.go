package media

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketAssets = []byte("assets")

// BoltStore persists assets in a bbolt file so references survive restarts.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open media db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAssets)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create media bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(_ context.Context, asset Asset) error {
	value, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAssets).Put([]byte(asset.ID), value)
	})
}

func (s *BoltStore) Get(_ context.Context, id string) (Asset, error) {
	var asset Asset
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketAssets).Get([]byte(id))
		if value == nil {
			return ErrNotFound
		}
		return json.Unmarshal(value, &asset)
	})
	return asset, err
}

func (s *BoltStore) Purge(ctx context.Context, before time.Time) (int, error) {
	purged := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAssets)

		// keys are collected first; deleting while iterating skips entries
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var meta struct {
				CreatedAt time.Time `json:"createdAt"`
			}
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("decode asset %s: %w", k, err)
			}
			if meta.CreatedAt.Before(before) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		purged = len(stale)
		return nil
	})
	return purged, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
