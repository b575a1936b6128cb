package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/pagination"
)

const maxOffset = 1_000_000

// ParseQueryInt reads an optional integer query parameter bounded to [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.ValidationField(key, "must be numeric")
	}
	if value < min || value > max {
		return 0, pkgerrors.ValidationField(key, "is out of range").WithDetails(map[string]any{
			"fields": pkgerrors.FieldErrors{key: "is out of range"},
			"min":    min,
			"max":    max,
		})
	}
	return value, nil
}

// ParseUUID parses a path or body identifier, naming field on failure.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.ValidationField(field, "must be a valid id")
	}
	return id, nil
}

// ParseUUIDList reads a comma separated list of ids from key. Blank entries
// are ignored; an empty list or more than max ids is rejected.
func ParseUUIDList(r *http.Request, key string, max int) ([]uuid.UUID, error) {
	raw := strings.Split(r.URL.Query().Get(key), ",")
	ids := make([]uuid.UUID, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := ParseUUID(part, key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	switch {
	case len(ids) == 0:
		return nil, pkgerrors.ValidationField(key, "is required")
	case len(ids) > max:
		return nil, pkgerrors.ValidationField(key, "has too many ids").WithDetails(map[string]any{
			"fields": pkgerrors.FieldErrors{key: "has too many ids"},
			"max":    max,
		})
	}
	return ids, nil
}

// ParsePage reads ?limit=&offset= for admin lists. An absent limit takes def;
// out-of-range values are rejected rather than clamped.
func ParsePage(r *http.Request, def, max int) (pagination.Window, error) {
	limit, err := ParseQueryInt(r, "limit", def, 1, max)
	if err != nil {
		return pagination.Window{}, err
	}
	offset, err := ParseQueryInt(r, "offset", 0, 0, maxOffset)
	if err != nil {
		return pagination.Window{}, err
	}
	return pagination.Window{Limit: limit, Offset: offset}, nil
}
