package store

import (
	"context"
	"errors"
)

// The store holds exactly two collections, each a JSON-encoded list kept
// whole under a fixed key. Writes replace the full value; concurrent writers
// race with last-write-wins at collection granularity.
const (
	KeyTrades      = "simulation_trades"
	KeyUsers       = "simulation_users"
	KeyAppSettings = "app_settings"
)

var ErrKeyNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all values in a single operation so that a
	// close-and-settle touches trades and users together.
	SetMany(ctx context.Context, values map[string][]byte) error
}
