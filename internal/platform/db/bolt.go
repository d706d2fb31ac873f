package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt wraps the single-file store backing the durable ballot ledger.
type Bolt struct {
	DB *bolt.DB
}

// OpenBolt creates the parent directory when needed. The file lock is waited
// on for at most lockTimeout so a second process fails instead of hanging.
func OpenBolt(path string, lockTimeout time.Duration) (*Bolt, error) {
	if path == "" {
		return nil, errors.New("bolt path is required")
	}
	if lockTimeout <= 0 {
		lockTimeout = time.Second
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create bolt directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return &Bolt{DB: db}, nil
}

func (b *Bolt) Close() error {
	if b == nil || b.DB == nil {
		return nil
	}
	return b.DB.Close()
}
