package store

import (
	"sort"
	"sync"
)

// Op names a Store operation for fault injection.
type Op string

const (
	OpInsert Op = "insert"
	OpQuery  Op = "query"
	OpDelete Op = "delete"
)

// Memory implements Store with thread-safe in-memory records.
// Nothing survives the process; it backs tests and ephemeral callers.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	faults  map[Op][]error
	calls   map[Op]int
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]Record),
		faults:  make(map[Op][]error),
		calls:   make(map[Op]int),
	}
}

// FailNext queues err to be returned by the next call to op instead of
// touching the records. Queued faults are consumed in order.
func (m *Memory) FailNext(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = append(m.faults[op], err)
}

// Calls returns how many times op has been invoked, including faulted calls.
func (m *Memory) Calls(op Op) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fault must be called with mu held for writing.
func (m *Memory) fault(op Op) error {
	m.calls[op]++
	queued := m.faults[op]
	if len(queued) == 0 {
		return nil
	}
	m.faults[op] = queued[1:]
	return queued[0]
}

func (m *Memory) Insert(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpInsert); err != nil {
		return err
	}
	if _, ok := m.records[rec.Key]; ok {
		return ErrDuplicateKey
	}
	rec.Data = clone(rec.Data)
	m.records[rec.Key] = rec
	return nil
}

func (m *Memory) Query(key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpQuery); err != nil {
		return Record{}, err
	}
	rec, ok := m.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Data = clone(rec.Data)
	return rec, nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpDelete); err != nil {
		return err
	}
	if _, ok := m.records[key]; !ok {
		return ErrNotFound
	}
	delete(m.records, key)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
