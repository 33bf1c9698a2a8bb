package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry locates one record in a report.
type Entry struct {
	ID            int    // 1-based, in encounter order
	Offset        int64  // Byte offset of the record-start line
	HasAlignments bool   // False means "no hits found"
	SearchType    string // Program label, e.g. BLASTN
	Key           string // Record identifier from the record-start line
}

// Index is the ordered set of entries for one report, with O(1) key lookup.
// An Index is immutable once built or loaded and safe for concurrent reads.
//
// Duplicate keys are kept in the ordered entries; Lookup returns the last one.
type Index struct {
	entries []Entry
	byKey   map[string]int // key -> position in entries
}

// New builds an Index over entries, keeping their order.
func New(entries []Entry) *Index {
	idx := &Index{
		entries: entries,
		byKey:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		idx.byKey[e.Key] = i
	}
	return idx
}

// Lookup returns the entry for key.
func (idx *Index) Lookup(key string) (Entry, bool) {
	i, ok := idx.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[i], true
}

// Len returns the number of entries, duplicates included.
func (idx *Index) Len() int { return len(idx.entries) }

// Entries returns a copy of the entries in index order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Keys returns the keys in index order.
func (idx *Index) Keys() []string {
	keys := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		keys[i] = e.Key
	}
	return keys
}

// AlignedCount returns the number of records with alignments.
func (idx *Index) AlignedCount() int {
	n := 0
	for _, e := range idx.entries {
		if e.HasAlignments {
			n++
		}
	}
	return n
}

// SearchTypeCounts returns a map of search type -> record count.
// Records without a search type are counted under "".
func (idx *Index) SearchTypeCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range idx.entries {
		counts[e.SearchType]++
	}
	return counts
}

// Equal reports whether both indexes hold the same entries in the same order.
func (idx *Index) Equal(other *Index) bool {
	if idx.Len() != other.Len() {
		return false
	}
	for i := range idx.entries {
		if idx.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}

// MatchKeys returns entries whose key matches a doublestar glob pattern, in
// index order. Shadowed duplicates are skipped. maxResults <= 0 means 50.
func (idx *Index) MatchKeys(pattern string, maxResults int) ([]Entry, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []Entry
	for i, e := range idx.entries {
		if len(results) >= maxResults {
			break
		}
		if idx.byKey[e.Key] != i {
			continue
		}
		matched, err := doublestar.Match(pattern, e.Key)
		if err != nil {
			continue
		}
		if matched {
			results = append(results, e)
		}
	}
	return results, nil
}

// SortedSearchTypes returns the search types present, most frequent first.
func (idx *Index) SortedSearchTypes() []string {
	counts := idx.SearchTypeCounts()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return strings.Compare(types[i], types[j]) < 0
	})
	return types
}
