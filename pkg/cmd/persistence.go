// Package cmd provides shared wiring helpers for the capitalab binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rwcma/capitalab/pkg/persistence"
	"github.com/rwcma/capitalab/pkg/persistence/file"
	"github.com/rwcma/capitalab/pkg/persistence/memory"
	"github.com/rwcma/capitalab/pkg/persistence/postgresql"
)

// NewPersistence selects a storage backend from the database URL scheme:
// postgres:// for PostgreSQL, memory:// for the in-memory store, anything
// else is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("Failed to initialize PostgreSQL persistence: " + err.Error())
		}

		return store
	case strings.HasPrefix(databaseURL, "memory://"):
		return memory.NewPersistence()
	default:
		return file.NewPersistence(databaseURL)
	}
}
