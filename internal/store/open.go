package store

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a repository backend
type Config struct {
	Backend     string
	DatabaseURL string
	BoltPath    string
}

// Open builds the repository named by cfg.Backend. An empty backend picks
// postgres when a database URL is set and memory otherwise.
func Open(ctx context.Context, cfg Config) (Repository, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendMemory
		if cfg.DatabaseURL != "" {
			backend = BackendPostgres
		}
	}

	switch backend {
	case BackendMemory:
		return NewInMemoryRepository(), nil
	case BackendPostgres:
		repo, err := NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case BackendBolt:
		repo, err := NewBoltRepository(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
