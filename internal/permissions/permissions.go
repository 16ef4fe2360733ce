// Package permissions expands a user's permission list into the capability
// strings the API layer guards routes with.
package permissions

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

//go:embed permission_structure.json
var defaultStructure []byte

// Structure maps a grantable permission to the capabilities it carries.
type Structure map[string][]string

// Default returns the built-in permission structure.
func Default() Structure {
	var s Structure
	// The embedded structure is fixed at build time; a decode failure is a
	// programming error.
	if err := json.Unmarshal(defaultStructure, &s); err != nil {
		panic(fmt.Sprintf("invalid embedded permission structure: %v", err))
	}
	return s
}

// LoadFile reads a structure override from disk, falling back to the
// built-in one when the file does not exist.
func LoadFile(path string) (Structure, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read permission structure: %w", err)
	}
	var s Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode permission structure: %w", err)
	}
	return s, nil
}

// Names returns the grantable permission names in sorted order.
func (s Structure) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether a permission name is grantable.
func (s Structure) Known(name string) bool {
	_, ok := s[name]
	return ok
}

// Expand flattens a user's permissions into their capability set, sorted
// and de-duplicated. Unknown permissions expand to nothing.
func (s Structure) Expand(perms []string) []string {
	seen := make(map[string]bool)
	for _, p := range perms {
		for _, capability := range s[p] {
			seen[capability] = true
		}
	}
	out := make([]string, 0, len(seen))
	for capability := range seen {
		out = append(out, capability)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the expanded set of perms includes a capability.
func (s Structure) Has(perms []string, capability string) bool {
	for _, p := range perms {
		for _, c := range s[p] {
			if c == capability {
				return true
			}
		}
	}
	return false
}
