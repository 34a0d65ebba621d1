// Package badger keeps the portal session in an embedded Badger database.
// Badger holds a directory lock, so only one process may open a path.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// record is one stored value and when it was last written.
type record struct {
	Key     string `badgerhold:"key"`
	Value   string
	Updated time.Time
}

// Store implements both interfaces.StorageManager and
// interfaces.KeyValueStorage over a badgerhold store.
type Store struct {
	db     *badgerhold.Store
	path   string
	logger *common.Logger
	now    func() time.Time
}

// Open opens or creates the database at path.
func Open(logger *common.Logger, path string) (*Store, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	db, err := badgerhold.Open(options)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "lock") {
			return nil, fmt.Errorf("session database %s is in use by another process: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("badger session store opened")
	return &Store{db: db, path: path, logger: logger, now: time.Now}, nil
}

// KeyValueStorage returns the store itself.
func (s *Store) KeyValueStorage() interfaces.KeyValueStorage {
	return s
}

// Close releases the database and its directory lock.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	var rec record
	if err := s.db.Get(key, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", interfaces.ErrNotFound, key)
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return rec.Value, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	rec := record{Key: key, Value: value, Updated: s.now().UTC()}
	if err := s.db.Upsert(key, &rec); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete is a no-op for missing keys.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete(key, record{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) GetAll(_ context.Context) (map[string]string, error) {
	var recs []record
	if err := s.db.Find(&recs, nil); err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	out := make(map[string]string, len(recs))
	for _, rec := range recs {
		out[rec.Key] = rec.Value
	}
	return out, nil
}

// Stale returns the keys not written since before cutoff, oldest first.
func (s *Store) Stale(_ context.Context, cutoff time.Time) ([]string, error) {
	var recs []record
	if err := s.db.Find(&recs, badgerhold.Where("Updated").Lt(cutoff.UTC())); err != nil {
		return nil, fmt.Errorf("failed to list stale records: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Updated.Before(recs[j].Updated) })
	keys := make([]string, 0, len(recs))
	for _, rec := range recs {
		keys = append(keys, rec.Key)
	}
	return keys, nil
}

// Prune deletes records not written since before cutoff and reports how
// many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	keys, err := s.Stale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return 0, err
		}
	}
	if len(keys) > 0 {
		s.logger.Info().Int("count", len(keys)).Msg("pruned stale session records")
	}
	return len(keys), nil
}
