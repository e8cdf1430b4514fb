package storage

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryBackend is an in-memory Backend used for unit tests and local
// development. It implements the subset of selector/update semantics the
// access layer relies on: equality and $in selectors, and the
// $set/$setOnInsert/$push/$pull/$addToSet/$unset update operators.
type MemoryBackend struct {
	mu   sync.RWMutex
	cols map[string][]bson.M
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cols: make(map[string][]bson.M)}
}

func (b *MemoryBackend) Find(ctx context.Context, collection string, selector bson.M, fo FindOptions) ([]bson.M, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []bson.M{}
	for _, d := range b.cols[collection] {
		if matches(d, selector) {
			out = append(out, clone(d))
		}
	}
	sortDocs(out, fo)
	if fo.Limit > 0 && int64(len(out)) > fo.Limit {
		out = out[:fo.Limit]
	}
	return out, nil
}

func (b *MemoryBackend) FindOne(ctx context.Context, collection string, selector bson.M) (bson.M, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, d := range b.cols[collection] {
		if matches(d, selector) {
			return clone(d), nil
		}
	}
	return nil, nil
}

func (b *MemoryBackend) BulkUpsert(ctx context.Context, collection string, ops []UpsertOp) (BulkResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var res BulkResult
	for _, op := range ops {
		matched := false
		for i, d := range b.cols[collection] {
			if matches(d, op.Filter) {
				b.cols[collection][i] = applyUpdate(clone(d), op.Update, false)
				res.ModifiedCount++
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		doc := bson.M{}
		for k, v := range op.Filter {
			if _, isOp := asMap(v); !isOp {
				doc[k] = v
			}
		}
		doc = applyUpdate(doc, op.Update, true)
		b.cols[collection] = append(b.cols[collection], doc)
		res.UpsertedCount++
	}
	return res, nil
}

func (b *MemoryBackend) InsertMany(ctx context.Context, collection string, docs []bson.M) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range docs {
		b.cols[collection] = append(b.cols[collection], clone(d))
	}
	return nil
}

func (b *MemoryBackend) DeleteMany(ctx context.Context, collection string, selector bson.M) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.cols[collection][:0]
	for _, d := range b.cols[collection] {
		if !matches(d, selector) {
			kept = append(kept, d)
		}
	}
	b.cols[collection] = kept
	return nil
}

// Count reports how many documents the collection currently holds. Test helper.
func (b *MemoryBackend) Count(collection string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cols[collection])
}

// asMap normalizes the map shapes a selector/update value may arrive in.
func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return m, true
	}
	return nil, false
}

func asList(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func matches(doc bson.M, selector bson.M) bool {
	for k, want := range selector {
		got := doc[k]
		if m, ok := asMap(want); ok {
			if in, ok := m["$in"]; ok {
				found := false
				for _, candidate := range asList(in) {
					if equalValues(got, candidate) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
				continue
			}
		}
		if !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func clone(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	if m, ok := asMap(v); ok {
		cp := make(bson.M, len(m))
		for k, mv := range m {
			cp[k] = cloneValue(mv)
		}
		return cp
	}
	if l := asList(v); l != nil {
		cp := make([]interface{}, len(l))
		for i, lv := range l {
			cp[i] = cloneValue(lv)
		}
		return cp
	}
	return v
}

func applyUpdate(doc bson.M, update bson.M, inserting bool) bson.M {
	for op, spec := range update {
		fields, ok := asMap(spec)
		if !ok {
			continue
		}
		switch op {
		case "$set":
			for k, v := range fields {
				doc[k] = cloneValue(v)
			}
		case "$setOnInsert":
			if inserting {
				for k, v := range fields {
					doc[k] = cloneValue(v)
				}
			}
		case "$unset":
			for k := range fields {
				delete(doc, k)
			}
		case "$push":
			for k, v := range fields {
				doc[k] = append(asList(doc[k]), cloneValue(v))
			}
		case "$addToSet":
			for k, v := range fields {
				cur := asList(doc[k])
				present := false
				for _, e := range cur {
					if equalValues(e, v) {
						present = true
						break
					}
				}
				if !present {
					doc[k] = append(cur, cloneValue(v))
				}
			}
		case "$pull":
			for k, v := range fields {
				kept := []interface{}{}
				for _, e := range asList(doc[k]) {
					if !equalValues(e, v) {
						kept = append(kept, e)
					}
				}
				doc[k] = kept
			}
		}
	}
	return doc
}

func sortDocs(docs []bson.M, fo FindOptions) {
	if len(fo.Sort) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range fo.Sort {
			c := compareValues(docs[i][s.Field], docs[j][s.Field], fo.CaseInsensitive)
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b interface{}, ci bool) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	as, bs := stringify(a), stringify(b)
	if ci {
		as, bs = strings.ToLower(as), strings.ToLower(bs)
	}
	return strings.Compare(as, bs)
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
