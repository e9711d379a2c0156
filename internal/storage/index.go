package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/illarion/strongbox/internal/store"
)

// IndexEntry is the public description of a stored record
type IndexEntry struct {
	Key     string     `json:"key"`
	Tier    store.Tier `json:"tier"`
	Size    int        `json:"size"`
	Created time.Time  `json:"created"`
}

// Index is a listing of stored records
type Index []IndexEntry

// Sorted returns the entries ordered by key
func (ix Index) Sorted() Index {
	out := append(Index(nil), ix...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// WithPrefix returns the entries whose key starts with prefix
func (ix Index) WithPrefix(prefix string) Index {
	var out Index
	for _, e := range ix {
		if strings.HasPrefix(e.Key, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// TotalSize returns the summed payload size of all entries
func (ix Index) TotalSize() int64 {
	var total int64
	for _, e := range ix {
		total += int64(e.Size)
	}
	return total
}
