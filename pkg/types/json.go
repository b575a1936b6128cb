package types

import (
	"encoding/json"
	"fmt"
)

// jsonBytes normalizes driver values for JSON-backed columns.
func jsonBytes(kind string, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("%s: unsupported scan type %T", kind, value)
	}
}

// jsonValue marshals v as a JSON string so both jsonb and text columns accept it.
func jsonValue(v any) (string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
