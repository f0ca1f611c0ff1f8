package storage

import (
	"iter"
	"sync"

	"github.com/mickamy/kvtap/wire"
)

// MemTable is an in-memory Storage backend: a table of tables, each a
// concurrent key-to-Value map. Every operation creates the named table on
// first use, matching the get-or-create behavior of the backend this one
// is modeled on.
type MemTable struct {
	tables sync.Map // string -> *sync.Map (string -> wire.Value)
}

// NewMemTable returns an empty MemTable.
func NewMemTable() *MemTable {
	return &MemTable{}
}

func (m *MemTable) getOrCreateTable(name string) *sync.Map {
	t, _ := m.tables.LoadOrStore(name, &sync.Map{})
	return t.(*sync.Map)
}

func (m *MemTable) Get(table, key string) (wire.Value, bool, error) {
	t := m.getOrCreateTable(table)
	v, ok := t.Load(key)
	if !ok {
		return wire.Value{}, false, nil
	}
	return v.(wire.Value), true, nil
}

func (m *MemTable) Set(table, key string, value wire.Value) (wire.Value, bool, error) {
	t := m.getOrCreateTable(table)
	prev, loaded := t.Swap(key, value)
	if !loaded {
		return wire.Value{}, false, nil
	}
	return prev.(wire.Value), true, nil
}

func (m *MemTable) Contains(table, key string) (bool, error) {
	t := m.getOrCreateTable(table)
	_, ok := t.Load(key)
	return ok, nil
}

func (m *MemTable) Del(table, key string) (wire.Value, bool, error) {
	t := m.getOrCreateTable(table)
	prev, loaded := t.LoadAndDelete(key)
	if !loaded {
		return wire.Value{}, false, nil
	}
	return prev.(wire.Value), true, nil
}

func (m *MemTable) GetAll(table string) ([]wire.KvPair, error) {
	t := m.getOrCreateTable(table)
	var pairs []wire.KvPair
	t.Range(func(key, value any) bool {
		pairs = append(pairs, wire.KvPair{Key: key.(string), Value: value.(wire.Value)})
		return true
	})
	return pairs, nil
}

func (m *MemTable) GetIter(table string) (iter.Seq[wire.KvPair], error) {
	pairs, err := m.GetAll(table)
	if err != nil {
		return nil, err
	}
	return func(yield func(wire.KvPair) bool) {
		for _, p := range pairs {
			if !yield(p) {
				return
			}
		}
	}, nil
}
