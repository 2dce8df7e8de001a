package cache

import (
	"sort"

	"github.com/jbandes/spacepod-go/internal/core"
	"github.com/jbandes/spacepod-go/internal/entry"
)

// Index is the in-memory sorted view over the store's contents, ordered by
// date key ascending. It is rebuilt wholesale from the store rather than
// patched, so two processes never need to reconcile divergent views.
type Index struct {
	entries []entry.Entry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// search returns the position of key in the sorted slice and whether an
// entry with that exact key is present there.
func (ix *Index) search(key core.YearMonthDay) (int, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].Date.Compare(key) >= 0
	})
	return i, i < len(ix.entries) && ix.entries[i].Date == key
}

// Insert adds an entry, replacing any existing entry with the same date key.
func (ix *Index) Insert(e entry.Entry) {
	i, found := ix.search(e.Date)
	if found {
		ix.entries[i] = e
		return
	}
	ix.entries = append(ix.entries, entry.Entry{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = e
}

// Get returns the entry for the given date key.
func (ix *Index) Get(key core.YearMonthDay) (entry.Entry, bool) {
	i, found := ix.search(key)
	if !found {
		return entry.Entry{}, false
	}
	return ix.entries[i], true
}

// Latest returns the entry with the maximum date key.
func (ix *Index) Latest() (entry.Entry, bool) {
	if len(ix.entries) == 0 {
		return entry.Entry{}, false
	}
	return ix.entries[len(ix.entries)-1], true
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns the entries in ascending date order.
func (ix *Index) Entries() []entry.Entry {
	return append([]entry.Entry(nil), ix.entries...)
}
