package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var bucketObjects = []byte("objects")

// record is the on-disk representation of one key: the caller's opaque value
// bytes plus the store-assigned version (spec.md §4.1: "the version is the
// store's mod-revision; clients treat it as opaque and monotonic").
type record struct {
	Value   []byte `json:"value"`
	Version int64  `json:"version"`
}

// kv wraps a BoltDB handle with the get/put/delete/scan primitives the FSM
// uses to apply committed commands. It does not itself enforce CAS semantics
// or emit watch events — that is storeFSM's job — mirroring the split the
// teacher keeps between pkg/storage/boltdb.go (raw persistence) and
// pkg/manager/fsm.go (the linearizing apply layer on top of it).
type kv struct {
	db *bolt.DB
}

func openKV(dataDir string) (*kv, error) {
	dbPath := filepath.Join(dataDir, "skyshift.db")
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &kv{db: db}, nil
}

func (k *kv) close() error { return k.db.Close() }

func (k *kv) get(key string) (*record, error) {
	var rec *record
	err := k.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketObjects).Get([]byte(key))
		if data == nil {
			return nil
		}
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	return rec, err
}

func (k *kv) put(key string, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObjects).Put([]byte(key), data)
	})
}

func (k *kv) del(key string) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObjects).Delete([]byte(key))
	})
}

// scanPrefix returns every (key, record) pair whose key has the given prefix,
// in key order — BoltDB's B+tree cursor walks keys in byte order already, so
// this is a straight prefix-bounded cursor scan (spec.md §4.1 read_prefix).
func (k *kv) scanPrefix(prefix string) ([]Entry, error) {
	var entries []Entry
	pfx := []byte(prefix)
	err := k.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketObjects).Cursor()
		for key, data := c.Seek(pfx); key != nil && hasPrefix(key, pfx); key, data = c.Next() {
			var r record
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			entries = append(entries, Entry{Key: string(key), Value: r.Value, Version: r.Version})
		}
		return nil
	})
	return entries, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
