package sessionstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/food_delivery/internal/session"
	"github.com/Skotchmaster/food_delivery/pkg/config"
	"github.com/Skotchmaster/food_delivery/pkg/db"
)

var (
	_ session.Store = (*Memory)(nil)
	_ session.Store = (*Gorm)(nil)
	_ session.Store = (*Redis)(nil)
	_ session.Store = (*Sealed)(nil)
)

// Open builds the store selected by SESSION_STORE. The returned close func
// releases whatever connection the store holds. With SESSION_SECRET set the
// store is wrapped in Sealed.
func Open(ctx context.Context, cfg config.SessionConfig, rcfg config.RedisConfig, log *slog.Logger) (session.Store, func() error, error) {
	var (
		store   session.Store
		closeFn = func() error { return nil }
	)

	switch cfg.Store {
	case config.StoreMemory, "":
		store = NewMemory()
	case config.StoreSQLite, config.StorePostgres:
		gdb, err := db.Open(ctx, cfg.Store, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		g, err := NewGorm(ctx, gdb, cfg.Namespace)
		if err != nil {
			_ = db.Close(gdb)
			return nil, nil, err
		}
		store = g
		closeFn = func() error { return db.Close(gdb) }
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     rcfg.Addr,
			Password: rcfg.Password,
			DB:       rcfg.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		store = NewRedis(client, cfg.Namespace)
		closeFn = client.Close
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}

	if cfg.Secret != "" {
		sealed, err := NewSealed(store, cfg.Secret, cfg.Salt)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		store = sealed
	}

	log.Info("session_store_opened", "store", cfg.Store, "sealed", cfg.Secret != "")
	return store, closeFn, nil
}
