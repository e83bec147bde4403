// Package odootest provides an in-memory registry for tests.
package odootest

import (
	"context"
	"encoding/json"
	"fmt"
	"logistics-route-service/internal/ports"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Call describes one registry operation seen by the fake.
type Call struct {
	Model  string
	Method string
	IDs    []int
	Values map[string]any
}

// Registry is an in-memory ports.Registry. Records are stored in their JSON
// shape, so numbers come back as float64 and many2one values as [id, name].
type Registry struct {
	mu      sync.Mutex
	records map[string]map[int]map[string]any
	nextID  map[string]int
	calls   []Call

	// Hook runs before every operation; a non-nil error aborts it.
	Hook func(call Call) error
}

var _ ports.Registry = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		records: map[string]map[int]map[string]any{},
		nextID:  map[string]int{},
	}
}

// Seed stores a record with a fixed id.
func (r *Registry) Seed(model string, id int, values map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := normalizeRecord(values)
	rec["id"] = float64(id)
	r.table(model)[id] = rec
	if id >= r.nextID[model] {
		r.nextID[model] = id + 1
	}
}

// Record returns a copy of a stored record, or nil.
func (r *Registry) Record(model string, id int) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.table(model)[id]
	if !ok {
		return nil
	}
	return copyRecord(rec)
}

// Records returns copies of all records of a model ordered by id.
func (r *Registry) Records(model string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]map[string]any, 0, len(r.records[model]))
	for _, id := range r.sortedIDs(model) {
		out = append(out, copyRecord(r.records[model][id]))
	}
	return out
}

// Count returns the number of records of a model.
func (r *Registry) Count(model string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records[model])
}

// Calls returns the operations seen so far, optionally filtered by method.
func (r *Registry) Calls(methods ...string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		if len(methods) == 0 || contains(methods, c.Method) {
			out = append(out, c)
		}
	}
	return out
}

// Mutations returns the create, write and unlink calls seen so far.
func (r *Registry) Mutations() []Call {
	return r.Calls("create", "write", "unlink")
}

func (r *Registry) SearchRead(
	ctx context.Context,
	model string,
	domain ports.Domain,
	fields []string,
	limit int,
	out any,
) error {
	if err := r.before(ctx, Call{Model: model, Method: "search_read"}); err != nil {
		return err
	}

	r.mu.Lock()
	conds := make([]ports.Condition, len(domain))
	for i, c := range domain {
		conds[i] = ports.Condition{Field: c.Field, Op: c.Op, Value: normalize(c.Value)}
	}

	matched := make([]map[string]any, 0)
	for _, id := range r.sortedIDs(model) {
		rec := r.records[model][id]
		if !matchAll(rec, conds) {
			continue
		}
		matched = append(matched, project(rec, fields))
		if limit > 0 && len(matched) == limit {
			break
		}
	}
	r.mu.Unlock()

	b, err := json.Marshal(matched)
	if err != nil {
		return fmt.Errorf("%s.search_read: encode: %w", model, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s.search_read: decode result: %w", model, err)
	}
	return nil
}

func (r *Registry) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	if err := r.before(ctx, Call{Model: model, Method: "create", Values: values}); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID[model]
	if id == 0 {
		id = 1
	}
	r.nextID[model] = id + 1

	rec := normalizeRecord(values)
	rec["id"] = float64(id)
	r.table(model)[id] = rec
	return id, nil
}

func (r *Registry) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	if err := r.before(ctx, Call{Model: model, Method: "write", IDs: ids, Values: values}); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.table(model)
	for _, id := range ids {
		if _, ok := table[id]; !ok {
			return fmt.Errorf("%s.write: record %d does not exist", model, id)
		}
	}
	norm := normalizeRecord(values)
	for _, id := range ids {
		for k, v := range norm {
			table[id][k] = v
		}
	}
	return nil
}

func (r *Registry) Unlink(ctx context.Context, model string, ids []int) error {
	if err := r.before(ctx, Call{Model: model, Method: "unlink", IDs: ids}); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.table(model)
	for _, id := range ids {
		if _, ok := table[id]; !ok {
			return fmt.Errorf("%s.unlink: record %d does not exist", model, id)
		}
	}
	for _, id := range ids {
		delete(table, id)
	}
	return nil
}

func (r *Registry) before(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	hook := r.Hook
	r.mu.Unlock()

	if hook != nil {
		return hook(call)
	}
	return nil
}

func (r *Registry) table(model string) map[int]map[string]any {
	t, ok := r.records[model]
	if !ok {
		t = map[int]map[string]any{}
		r.records[model] = t
	}
	return t
}

func (r *Registry) sortedIDs(model string) []int {
	ids := make([]int, 0, len(r.records[model]))
	for id := range r.records[model] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func matchAll(rec map[string]any, conds []ports.Condition) bool {
	for _, c := range conds {
		if !match(rec[c.Field], c) {
			return false
		}
	}
	return true
}

func match(value any, c ports.Condition) bool {
	switch c.Op {
	case "=":
		return equal(value, c.Value)
	case "!=":
		return !equal(value, c.Value)
	case "in":
		want, ok := c.Value.([]any)
		if !ok {
			return false
		}
		if list, ok := value.([]any); ok && !isPair(value) {
			for _, v := range list {
				if containsEqual(want, v) {
					return true
				}
			}
			return false
		}
		return containsEqual(want, value)
	case "ilike":
		s, ok := value.(string)
		needle, ok2 := c.Value.(string)
		if !ok || !ok2 {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	default:
		return false
	}
}

// equal compares a stored value with a domain value. Many2one pairs compare
// by id and an empty stored value equals false.
func equal(stored, want any) bool {
	if isPair(stored) {
		stored = stored.([]any)[0]
	}
	if stored == nil {
		stored = false
	}
	if want == nil {
		want = false
	}
	return reflect.DeepEqual(stored, want)
}

func containsEqual(list []any, v any) bool {
	for _, w := range list {
		if equal(v, w) {
			return true
		}
	}
	return false
}

func isPair(v any) bool {
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return false
	}
	_, idOK := list[0].(float64)
	_, nameOK := list[1].(string)
	return idOK && nameOK
}

func project(rec map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return copyRecord(rec)
	}
	out := make(map[string]any, len(fields)+1)
	out["id"] = rec["id"]
	for _, f := range fields {
		v, ok := rec[f]
		if !ok || v == nil {
			v = false
		}
		out[f] = v
	}
	return out
}

func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("odootest: value %v is not JSON encodable: %v", v, err))
	}
	var out any
	_ = json.Unmarshal(b, &out)
	return out
}

func normalizeRecord(values map[string]any) map[string]any {
	out := make(map[string]any, len(values)+1)
	for k, v := range values {
		out[k] = normalize(v)
	}
	return out
}

func copyRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
