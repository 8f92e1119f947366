package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is written into every envelope. Blobs without an envelope
// are the legacy shape and decode as version 0.
const SchemaVersion = 1

// ErrCorrupt marks a stored blob that cannot be decoded.
var ErrCorrupt = errors.New("corrupt record")

// Defaulter is implemented by record types that fill absent or legacy
// envelope after decoding.
type Defaulter interface {
	ApplyDefaults()
}

type listEnvelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

type objectEnvelope[T any] struct {
	Version int `json:"version"`
	Data    *T  `json:"data"`
}

// DecodeList decodes a collection blob. Nil or empty input is an empty
// collection.
func DecodeList[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	var items []T
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	case '{':
		var env listEnvelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if env.Version > SchemaVersion {
			return nil, fmt.Errorf("%w: unsupported schema version %d", ErrCorrupt, env.Version)
		}
		items = env.Items
	default:
		return nil, fmt.Errorf("%w: unexpected leading byte %q", ErrCorrupt, trimmed[0])
	}

	if items == nil {
		items = []T{}
	}
	for i := range items {
		if d, ok := any(&items[i]).(Defaulter); ok {
			d.ApplyDefaults()
		}
	}
	return items, nil
}

// EncodeList wraps items in the current envelope.
func EncodeList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(listEnvelope[T]{Version: SchemaVersion, Items: items})
}

// DecodeObject decodes a singleton blob. It returns nil when nothing is
// stored.
func DecodeObject[T any](raw []byte) (*T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected object, got %q", ErrCorrupt, trimmed[0])
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var out *T
	_, hasVersion := fields["version"]
	_, hasData := fields["data"]
	if hasVersion && hasData {
		var env objectEnvelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if env.Version > SchemaVersion {
			return nil, fmt.Errorf("%w: unsupported schema version %d", ErrCorrupt, env.Version)
		}
		out = env.Data
	} else {
		out = new(T)
		if err := json.Unmarshal(trimmed, out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	if out != nil {
		if d, ok := any(out).(Defaulter); ok {
			d.ApplyDefaults()
		}
	}
	return out, nil
}

// EncodeObject wraps v in the current envelope.
func EncodeObject[T any](v *T) ([]byte, error) {
	return json.Marshal(objectEnvelope[T]{Version: SchemaVersion, Data: v})
}
