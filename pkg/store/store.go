// Package store persists the data source URIs registered at runtime.
package store

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketDataSources = []byte("data_sources")

type Config struct {
	Path string `yaml:"path"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Path, "store.path", "airdash.db", "File the registered data sources are persisted to, empty disables persistence")
}

// Store keeps a set of URIs, each value holds the time it was added.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDataSources)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Add(uri string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDataSources)
		if b.Get([]byte(uri)) != nil {
			return nil
		}
		return b.Put([]byte(uri), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

func (s *Store) Remove(uri string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDataSources).Delete([]byte(uri))
	})
}

// List returns the stored URIs in the order they were added.
func (s *Store) List() ([]string, error) {
	type item struct {
		uri   string
		added string
	}
	var items []item
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDataSources).ForEach(func(k, v []byte) error {
			items = append(items, item{uri: string(k), added: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].added < items[j].added })
	uris := make([]string, len(items))
	for i := range items {
		uris[i] = items[i].uri
	}
	return uris, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
