package ports

import (
	"context"
	"encoding/json"
)

// Condition is one [field, operator, value] term of a registry search domain.
type Condition struct {
	Field string
	Op    string
	Value any
}

func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Field, c.Op, c.Value})
}

// Domain is a conjunction of conditions. The empty domain matches everything.
type Domain []Condition

func (d Domain) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Condition(d))
}

func Eq(field string, value any) Condition    { return Condition{Field: field, Op: "=", Value: value} }
func NotEq(field string, value any) Condition { return Condition{Field: field, Op: "!=", Value: value} }
func In(field string, values any) Condition   { return Condition{Field: field, Op: "in", Value: values} }
func ILike(field, value string) Condition     { return Condition{Field: field, Op: "ilike", Value: value} }

// Registry is the generic record store behind both back-office systems.
// SearchRead decodes the matching records into out, which must be a pointer
// to a slice. A limit of zero means no limit.
type Registry interface {
	SearchRead(ctx context.Context, model string, domain Domain, fields []string, limit int, out any) error
	Create(ctx context.Context, model string, values map[string]any) (int, error)
	Write(ctx context.Context, model string, ids []int, values map[string]any) error
	Unlink(ctx context.Context, model string, ids []int) error
}
