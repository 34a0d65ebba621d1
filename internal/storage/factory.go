package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/interfaces"
	"github.com/bobmcallan/events-portal/internal/storage/badger"
	"github.com/bobmcallan/events-portal/internal/storage/file"
	"github.com/bobmcallan/events-portal/internal/storage/memory"
)

// NewStorageManager creates a new storage manager based on config.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	switch backend {
	case "", "file":
		return file.NewManager(logger, cfg.Storage.File.Path), nil
	case "badger":
		return openBadger(logger, &cfg.Storage.Badger)
	case "memory":
		return memory.NewManager(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func openBadger(logger *common.Logger, cfg *config.BadgerConfig) (interfaces.StorageManager, error) {
	store, err := badger.Open(logger, cfg.Path)
	if err != nil {
		return nil, err
	}
	if retain := cfg.Retention(); retain > 0 {
		if _, err := store.Prune(context.Background(), time.Now().Add(-retain)); err != nil {
			logger.Warn().Err(err).Msg("failed to prune session records")
		}
	}
	return store, nil
}
