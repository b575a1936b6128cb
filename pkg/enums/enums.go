// Package enums holds the string enumerations stored in the database and
// exchanged over the API.
package enums

import (
	"fmt"
	"slices"
)

// parse matches raw exactly against set and names kind in the error.
func parse[T ~string](set []T, raw, kind string) (T, error) {
	if i := slices.Index(set, T(raw)); i >= 0 {
		return set[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
