// Package cache keeps in-memory mirrors of server resources. Every cache holds
// a collection mirror and a single selected item. Both are updated from the
// server's answer after each successful call, under one lock.
package cache

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/Skotchmaster/food_delivery/pkg/logging"
)

// state is the loading counter and last error shared by every cache.
type state struct {
	mu      sync.RWMutex
	loading int
	lastErr error
	log     *slog.Logger
}

func (s *state) init(log *slog.Logger, name string) {
	if log == nil {
		log = logging.Discard()
	}
	s.log = log.With("cache", name)
}

func (s *state) begin() {
	s.mu.Lock()
	s.loading++
	s.lastErr = nil
	s.mu.Unlock()
}

// fail ends an operation without touching any mirror.
func (s *state) fail(op string, err error) error {
	s.mu.Lock()
	s.loading--
	s.lastErr = err
	s.mu.Unlock()
	s.log.Warn("cache_op_failed", "op", op, "error", err)
	return err
}

// commit applies a successful result and ends the operation in one step.
func (s *state) commit(apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply()
	s.loading--
}

func (s *state) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

func (s *state) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *state) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func cloneAll[T any](in []T, clone func(*T) *T) []T {
	out := make([]T, len(in))
	for i := range in {
		out[i] = *clone(&in[i])
	}
	return out
}

// uniqueByID copies in, keeping the first position of every id and the
// last value seen for it.
func uniqueByID[T any](in []T, id func(*T) uint, clone func(*T) *T) []T {
	out := make([]T, 0, len(in))
	pos := make(map[uint]int, len(in))
	for i := range in {
		c := clone(&in[i])
		if j, ok := pos[id(c)]; ok {
			out[j] = *c
			continue
		}
		pos[id(c)] = len(out)
		out = append(out, *c)
	}
	return out
}

func indexOf[T any](items []T, id uint, idOf func(*T) uint) int {
	return slices.IndexFunc(items, func(v T) bool { return idOf(&v) == id })
}
