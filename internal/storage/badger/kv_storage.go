package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/cotalabs/cotiza/internal/interfaces"
)

// kvEntry is the stored representation of a key/value pair.
type kvEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KVStorage implements interfaces.KeyValueStorage for Badger
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var entry kvEntry
	if err := s.db.Store().Get("kv_"+key, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", fmt.Errorf("key not found: %s", key)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	entry := kvEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert("kv_"+key, entry); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.Store().Delete("kv_"+key, &kvEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("key not found: %s", key)
		}
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
