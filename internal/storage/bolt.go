package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt persists items in a local bbolt file, one bucket per origin.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (creating if needed) the database at path and ensures the
// origin bucket exists.
func OpenBolt(path, origin string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	bucket := []byte(originOrDefault(origin))
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Bolt{db: db, bucket: bucket}, nil
}

func (b *Bolt) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return nil
		}
		if raw := bkt.Get([]byte(key)); raw != nil {
			// raw is only valid inside the transaction
			value = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, mapBoltErr(err)
	}
	return value, found, nil
}

func (b *Bolt) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(key), []byte(value))
	})
	return mapBoltErr(err)
}

func (b *Bolt) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(b.bucket)
		if bkt == nil {
			return nil
		}
		return bkt.Delete([]byte(key))
	})
	return mapBoltErr(err)
}

func (b *Bolt) Ping(_ context.Context) error {
	return mapBoltErr(b.db.View(func(tx *bolt.Tx) error { return nil }))
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func mapBoltErr(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}
