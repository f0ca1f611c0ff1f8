package storage

import (
	"bytes"
	"iter"

	bolt "go.etcd.io/bbolt"

	"github.com/mickamy/kvtap/kverrors"
	"github.com/mickamy/kvtap/wire"
)

// bucketName is the single bbolt bucket every table lives in; tables are
// namespaced by a "{table}:" key prefix rather than a bucket per table, so
// that GetAll/GetIter can serve a table with one cursor scan.
const bucketName = "kv"

// BoltStore is an embedded, on-disk Storage backend built on go.etcd.io/bbolt.
// Every Value is serialized through wire.MarshalValue, so a BoltStore
// round-trips every Kind exactly the same way MemTable does in memory.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if necessary) the bbolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, &kverrors.StorageError{Op: "open", Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, &kverrors.StorageError{Op: "init", Err: err}
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying bbolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func storageKey(table, key string) []byte {
	return []byte(table + ":" + key)
}

func tablePrefix(table string) []byte {
	return []byte(table + ":")
}

func (s *BoltStore) Get(table, key string) (wire.Value, bool, error) {
	var v wire.Value
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get(storageKey(table, key))
		if raw == nil {
			return nil
		}
		decoded, err := wire.UnmarshalValue(raw)
		if err != nil {
			return err
		}
		v, found = decoded, true
		return nil
	})
	if err != nil {
		return wire.Value{}, false, &kverrors.StorageError{Op: "get", Err: err}
	}
	return v, found, nil
}

func (s *BoltStore) Set(table, key string, value wire.Value) (wire.Value, bool, error) {
	var prev wire.Value
	var had bool

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := storageKey(table, key)
		if raw := b.Get(k); raw != nil {
			decoded, err := wire.UnmarshalValue(raw)
			if err != nil {
				return err
			}
			prev, had = decoded, true
		}
		return b.Put(k, wire.MarshalValue(nil, value))
	})
	if err != nil {
		return wire.Value{}, false, &kverrors.StorageError{Op: "set", Err: err}
	}
	return prev, had, nil
}

func (s *BoltStore) Contains(table, key string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(bucketName)).Get(storageKey(table, key)) != nil
		return nil
	})
	if err != nil {
		return false, &kverrors.StorageError{Op: "contains", Err: err}
	}
	return found, nil
}

func (s *BoltStore) Del(table, key string) (wire.Value, bool, error) {
	var prev wire.Value
	var had bool

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := storageKey(table, key)
		if raw := b.Get(k); raw != nil {
			decoded, err := wire.UnmarshalValue(raw)
			if err != nil {
				return err
			}
			prev, had = decoded, true
		}
		return b.Delete(k)
	})
	if err != nil {
		return wire.Value{}, false, &kverrors.StorageError{Op: "del", Err: err}
	}
	return prev, had, nil
}

func (s *BoltStore) GetAll(table string) ([]wire.KvPair, error) {
	var pairs []wire.KvPair

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		prefix := tablePrefix(table)
		for k, raw := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, raw = c.Next() {
			v, err := wire.UnmarshalValue(raw)
			if err != nil {
				return err
			}
			pairs = append(pairs, wire.KvPair{Key: string(k[len(prefix):]), Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, &kverrors.StorageError{Op: "get_all", Err: err}
	}
	return pairs, nil
}

// GetIter snapshots the table's pairs under one read transaction, since a
// bbolt cursor is only valid for the lifetime of its transaction, and
// returns them as a lazy sequence.
func (s *BoltStore) GetIter(table string) (iter.Seq[wire.KvPair], error) {
	pairs, err := s.GetAll(table)
	if err != nil {
		return nil, err
	}
	return func(yield func(wire.KvPair) bool) {
		for _, p := range pairs {
			if !yield(p) {
				return
			}
		}
	}, nil
}
