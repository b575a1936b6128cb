package types

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// SizeSet is the ordered list of sizes a product is offered in, e.g. ["S","M","L"].
// An empty set means the product is not sized.
type SizeSet []string

// NewSizeSet trims, upper-cases and de-duplicates the provided sizes.
func NewSizeSet(sizes ...string) SizeSet {
	out := make(SizeSet, 0, len(sizes))
	seen := make(map[string]struct{}, len(sizes))
	for _, raw := range sizes {
		size := normalizeSize(raw)
		if size == "" {
			continue
		}
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		out = append(out, size)
	}
	return out
}

// Contains reports whether size is offered, ignoring case and surrounding space.
func (s SizeSet) Contains(size string) bool {
	target := normalizeSize(size)
	for _, candidate := range s {
		if normalizeSize(candidate) == target {
			return true
		}
	}
	return false
}

// Sized reports whether the product requires a size selection.
func (s SizeSet) Sized() bool {
	return len(s) > 0
}

// Value marshals the set into JSON.
func (s SizeSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonValue([]string(s))
}

// Scan decodes JSON into the set. Legacy rows stored as a comma separated
// string are accepted as well.
func (s *SizeSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	raw, err := jsonBytes("size set", value)
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		*s = nil
		return nil
	}
	if !strings.HasPrefix(trimmed, "[") {
		*s = NewSizeSet(strings.Split(trimmed, ",")...)
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*s = NewSizeSet(decoded...)
	return nil
}

// NormalizeSize canonicalizes a requested size for comparison and storage.
func NormalizeSize(size string) string {
	return normalizeSize(size)
}

func normalizeSize(size string) string {
	return strings.ToUpper(strings.TrimSpace(size))
}
