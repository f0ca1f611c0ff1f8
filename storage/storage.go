// Package storage defines the key-value backend contract kvtap's command
// handlers operate against, plus two implementations: an in-memory table
// (MemTable) and an embedded on-disk table (BoltStore).
package storage

import (
	"iter"

	"github.com/mickamy/kvtap/wire"
)

// Storage is the contract every backend implements. Get, Set, Contains,
// and Del operate on a single key within table; GetAll and GetIter expose
// every pair in table.
type Storage interface {
	Get(table, key string) (wire.Value, bool, error)
	Set(table, key string, value wire.Value) (wire.Value, bool, error)
	Contains(table, key string) (bool, error)
	Del(table, key string) (wire.Value, bool, error)
	GetAll(table string) ([]wire.KvPair, error)
	GetIter(table string) (iter.Seq[wire.KvPair], error)
}
