// Package syllabus flattens the unit's nested syllabus document into the
// sorted "Year Type - Lesson" index the rest of the portal keys on.
package syllabus

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Entry is one flattened syllabus lesson.
type Entry struct {
	Key     string          `json:"key"`
	Details json.RawMessage `json:"details"`
}

// Index is the flattened, sorted syllabus lookup.
type Index struct {
	entries []Entry
	byKey   map[string]int
}

// Load reads a nested syllabus JSON document
// (year -> lesson type -> lesson -> details) and flattens it to
// "{year} {type} - {lesson}" keys in sorted order.
func Load(r io.Reader) (*Index, error) {
	var raw map[string]map[string]map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode syllabus: %w", err)
	}

	idx := &Index{byKey: make(map[string]int)}
	for year, types := range raw {
		for lessonType, lessons := range types {
			for lesson, details := range lessons {
				idx.entries = append(idx.entries, Entry{
					Key:     fmt.Sprintf("%s %s - %s", year, lessonType, lesson),
					Details: details,
				})
			}
		}
	}

	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].Key < idx.entries[j].Key
	})
	for i, e := range idx.entries {
		idx.byKey[e.Key] = i
	}
	return idx, nil
}

// Keys returns all lesson keys in sorted order.
func (idx *Index) Keys() []string {
	keys := make([]string, len(idx.entries))
	for i, e := range idx.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the flattened entries in sorted order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Lookup returns the details for a lesson key.
func (idx *Index) Lookup(key string) (json.RawMessage, bool) {
	i, ok := idx.byKey[key]
	if !ok {
		return nil, false
	}
	return idx.entries[i].Details, true
}

// Len returns the number of lessons in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}
