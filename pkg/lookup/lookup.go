// Package lookup memoizes ISBN lookups against the active range table.
package lookup

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/iziplay/isbn-api/pkg/isbn"
	"golang.org/x/sync/singleflight"
)

// Status tells how far a lookup got.
type Status string

const (
	StatusInvalid       Status = "INVALID"
	StatusUncategorized Status = "UNCATEGORIZED"
	StatusCategorized   Status = "CATEGORIZED"
	StatusNoRangeTable  Status = "NO_RANGE_TABLE"
)

// Result is everything known about one identifier.
type Result struct {
	Normalized string      `json:"normalized"`
	Kind       isbn.Kind   `json:"kind,omitempty"`
	Valid      bool        `json:"valid"`
	ISBN10     string      `json:"isbn10,omitempty"`
	ISBN13     string      `json:"isbn13,omitempty"`
	Parts      *isbn.Parts `json:"parts,omitempty"`
	Hyphenated string      `json:"hyphenated,omitempty"`
	Status     Status      `json:"status"`
}

// Stats reports memo usage for the current table.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int64 `json:"entries"`
}

// generation ties a memo to the table it was computed against.
type generation struct {
	id      uint64
	table   *isbn.RangeTable
	results sync.Map
	hits    atomic.Int64
	misses  atomic.Int64
	entries atomic.Int64
}

// DefaultLimit caps the number of memoized results per table.
const DefaultLimit = 1 << 16

// Service holds the active range table and a memo of results keyed by the
// normalized identifier. Only valid identifiers are memoized, up to limit
// entries per table. It is safe for concurrent use.
type Service struct {
	limit   int64
	current atomic.Pointer[generation]
	seq     atomic.Uint64
	g       singleflight.Group
}

// New returns a service using table, which may be nil until a table is loaded.
func New(table *isbn.RangeTable) *Service {
	s := &Service{limit: DefaultLimit}
	s.SetTable(table)
	return s
}

// Table returns the active range table or nil.
func (s *Service) Table() *isbn.RangeTable {
	return s.current.Load().table
}

// SetTable installs a new table and drops results computed against the old one.
func (s *Service) SetTable(table *isbn.RangeTable) {
	s.current.Store(&generation{id: s.seq.Add(1), table: table})
}

// Stats returns memo counters for the active table.
func (s *Service) Stats() Stats {
	gen := s.current.Load()
	return Stats{
		Hits:    gen.hits.Load(),
		Misses:  gen.misses.Load(),
		Entries: gen.entries.Load(),
	}
}

// Lookup normalizes, validates, converts and decomposes raw. Results are
// memoized per table and hit reports whether the memo answered; the returned
// value must not be modified.
func (s *Service) Lookup(raw string) (res *Result, hit bool) {
	gen := s.current.Load()
	key := isbn.Normalize(raw)

	if v, ok := gen.results.Load(key); ok {
		gen.hits.Add(1)
		return v.(*Result), true
	}
	gen.misses.Add(1)

	// the generation pointer is part of the key so a swap never shares work
	v, _, _ := s.g.Do(keyFor(gen, key), func() (interface{}, error) {
		if v, ok := gen.results.Load(key); ok {
			return v, nil
		}
		res := compute(gen.table, key)
		if res.Kind == isbn.KindInvalid || gen.entries.Load() >= s.limit {
			return res, nil
		}
		if _, loaded := gen.results.LoadOrStore(key, res); !loaded {
			gen.entries.Add(1)
		}
		return res, nil
	})
	return v.(*Result), false
}

func keyFor(gen *generation, key string) string {
	return strconv.FormatUint(gen.id, 10) + ":" + key
}

func compute(table *isbn.RangeTable, n string) *Result {
	res := &Result{Normalized: n, Kind: isbn.KindOf(n), Status: StatusInvalid}
	if res.Kind == isbn.KindInvalid {
		return res
	}
	res.Valid = true
	res.ISBN10, _ = isbn.To10(n)
	res.ISBN13, _ = isbn.To13(n)

	if table == nil {
		res.Status = StatusNoRangeTable
		return res
	}

	parts, err := isbn.Decompose(table, res.ISBN13)
	switch {
	case err == nil:
		res.Parts = &parts
		res.Hyphenated = parts.String()
		res.Status = StatusCategorized
	case errors.Is(err, isbn.ErrUncategorizable):
		res.Status = StatusUncategorized
	}
	return res
}
