package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any admin list can request.
	MaxLimit = 100
)

// Window is an offset page request. Bounds of zero fall back to DefaultLimit
// and MaxLimit.
type Window struct {
	Limit  int
	Offset int
}

// Normalize clamps the window into [1, max] with a non-negative offset.
func (w Window) Normalize(def, max int) Window {
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if def > max {
		def = max
	}
	switch {
	case w.Limit <= 0:
		w.Limit = def
	case w.Limit > max:
		w.Limit = max
	}
	if w.Offset < 0 {
		w.Offset = 0
	}
	return w
}

// HasMore reports whether rows remain past the current page.
func (w Window) HasMore(total int64) bool {
	return int64(w.Offset+w.Limit) < total
}
