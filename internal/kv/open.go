package kv

import (
	"context"
	"fmt"

	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/db"
)

// Open returns the store selected by cfg.KV.Backend.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.KV.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, cfg.KV.Namespace)
	case "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(conn, cfg.KV.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown kv backend %q", cfg.KV.Backend)
	}
}
