package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ref is an optional reference to a registry record.
//
// Registries encode relational fields as false, a bare id, or an [id, name]
// pair. Ref normalizes all of them at decode time so callers only ever look
// at ID and Name.
type Ref struct {
	ID   int
	Name string
}

// RefTo builds a Ref to the given id without a display name.
func RefTo(id int) Ref { return Ref{ID: id} }

// Valid reports whether the reference points at a record.
func (r Ref) Valid() bool { return r.ID > 0 }

// IDPtr returns the id as a pointer, or nil for an empty reference.
func (r Ref) IDPtr() *int {
	if !r.Valid() {
		return nil
	}
	id := r.ID
	return &id
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	*r = Ref{}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return fmt.Errorf("decode ref pair: %w", err)
		}
		if len(pair) == 0 {
			return nil
		}
		id, err := decodeID(pair[0])
		if err != nil {
			return fmt.Errorf("decode ref pair id: %w", err)
		}
		r.ID = id
		if len(pair) > 1 {
			var name string
			// Display names can be false when the record has none.
			if err := json.Unmarshal(pair[1], &name); err == nil {
				r.Name = name
			}
		}
		return nil

	case '{':
		var obj struct {
			ID   json.RawMessage `json:"id"`
			Name string          `json:"name"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("decode ref object: %w", err)
		}
		if len(obj.ID) > 0 {
			id, err := decodeID(obj.ID)
			if err != nil {
				return fmt.Errorf("decode ref object id: %w", err)
			}
			r.ID = id
		}
		r.Name = obj.Name
		return nil

	default:
		id, err := decodeID(trimmed)
		if err != nil {
			return fmt.Errorf("decode ref: %w", err)
		}
		r.ID = id
		return nil
	}
}

// MarshalJSON writes the registry wire shape: false, id, or [id, name].
func (r Ref) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return []byte("false"), nil
	}
	if r.Name == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal([]any{r.ID, r.Name})
}

func decodeID(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("false")) || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("id %s is neither number nor string", string(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("id %q is not numeric: %w", s, err)
	}
	return id, nil
}
