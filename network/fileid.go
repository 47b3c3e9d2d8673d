package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FileID is the opaque identifier the compression service issues for an uploaded file.
// The service may send it as a JSON string or a JSON number, so the raw token is kept
// and echoed back unchanged in the compression request.
type FileID struct {
	raw json.RawMessage
}

// NewFileID ...
func NewFileID(id string) FileID {
	raw, _ := json.Marshal(id) // marshalling a string never fails
	return FileID{raw: raw}
}

// IsZero reports whether no usable identifier has been issued.
// An empty string and the number zero count as missing.
func (id FileID) IsZero() bool {
	if len(id.raw) == 0 || bytes.Equal(id.raw, []byte("null")) || bytes.Equal(id.raw, []byte(`""`)) {
		return true
	}
	if c := id.raw[0]; c == '-' || (c >= '0' && c <= '9') {
		n, err := strconv.ParseFloat(string(id.raw), 64)
		return err == nil && n == 0
	}
	return false
}

func (id FileID) String() string {
	if id.IsZero() {
		return ""
	}
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

// Equal ...
func (id FileID) Equal(other FileID) bool {
	return bytes.Equal(id.raw, other.raw)
}

// MarshalJSON ...
func (id FileID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON accepts a JSON string, number or null.
func (id *FileID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty file id")
	}

	switch c := trimmed[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("invalid file id: %w", err)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("invalid file id: %w", err)
		}
	case bytes.Equal(trimmed, []byte("null")):
		id.raw = nil
		return nil
	default:
		return fmt.Errorf("file id must be a string or a number, got: %s", trimmed)
	}

	id.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}
