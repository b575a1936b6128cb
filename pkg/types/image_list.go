package types

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// ImageList is the ordered set of product image paths; the first entry is the cover.
type ImageList []string

// Cover returns the primary image or an empty string.
func (l ImageList) Cover() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// Value marshals the list into JSON.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]string(l))
}

// Scan decodes JSON into the list, dropping blank entries.
func (l *ImageList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	raw, err := jsonBytes("image list", value)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(raw)) == "" {
		*l = nil
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	out := make(ImageList, 0, len(decoded))
	for _, path := range decoded {
		if p := strings.TrimSpace(path); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}
