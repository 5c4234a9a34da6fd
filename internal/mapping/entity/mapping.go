package entity

import (
	"slices"
)

// MappingEntry is one row of the master mapping.
type MappingEntry struct {
	Code      Code
	RawCode   any
	Name      string
	BatchID   int64
	UpdatedAt int64

	// Seq orders entries by their most recent write.
	Seq int64
}

// Mapping is an immutable code → entry table.
//
// Updates never modify a Mapping in place; Merge returns a new value so a
// snapshot handed to a reader stays consistent while a writer swaps in the
// next version.
type Mapping struct {
	entries map[Code]MappingEntry
	nextSeq int64
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{entries: map[Code]MappingEntry{}}
}

// Len returns the number of distinct codes.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Lookup returns the entry stored for code.
func (m *Mapping) Lookup(code Code) (MappingEntry, bool) {
	if m == nil {
		return MappingEntry{}, false
	}
	e, ok := m.entries[code]
	return e, ok
}

// Merge upserts batch on top of m and returns the result.
//
// Entries are applied in order, so a code already present takes the batch
// value and, when the batch repeats a code, its last row wins. Codes absent
// from the batch keep their previous entry.
func (m *Mapping) Merge(batch []MappingEntry) *Mapping {
	next := &Mapping{
		entries: make(map[Code]MappingEntry, m.Len()+len(batch)),
	}
	if m != nil {
		for code, e := range m.entries {
			next.entries[code] = e
		}
		next.nextSeq = m.nextSeq
	}

	for _, e := range batch {
		e.Seq = next.nextSeq
		next.nextSeq++
		next.entries[e.Code] = e
	}

	return next
}

// Entries lists the mapping ordered by last write, oldest first.
func (m *Mapping) Entries() []MappingEntry {
	if m == nil {
		return nil
	}

	out := make([]MappingEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b MappingEntry) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})

	return out
}
