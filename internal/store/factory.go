package store

import (
	"context"
	"fmt"

	mydb "github.com/TimurManjosov/godecider/internal/db"
	"github.com/TimurManjosov/godecider/internal/rules"
)

// NewSource creates a configuration source of the given kind.
// Supported kinds: "file" (path required), "memory", "postgres" (dsn required).
func NewSource(ctx context.Context, kind, path, dsn, table string) (Source, error) {
	switch kind {
	case "file":
		if path == "" {
			return nil, fmt.Errorf("file source requires a path")
		}
		return NewFileSource(path), nil
	case "memory":
		return NewMemorySource(&rules.Document{}), nil
	case "postgres":
		pool, err := mydb.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		return NewPostgresSource(pool, table, ""), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", kind)
	}
}
