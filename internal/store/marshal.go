package store

import (
	"encoding/json"
	"fmt"
)

// encodeValue converts a record to JSON for storage. Strings are stored
// byte-for-byte, so an id inside a record always matches its key.
func encodeValue(key string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return data, nil
}

// decodeValue parses a stored record into dst.
func decodeValue(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
