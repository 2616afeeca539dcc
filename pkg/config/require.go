package config

import (
	"errors"
	"fmt"
	"log"
)

var ErrMissing = errors.New("missing required config")

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

// Validate checks the settings the client cannot start without.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("%w: API_BASE_URL", ErrMissing)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if c.Session.DSN == "" {
			return fmt.Errorf("%w: SESSION_DSN for %s store", ErrMissing, c.Session.Store)
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: REDIS_ADDR for redis store", ErrMissing)
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.Session.Store)
	}
	return nil
}
