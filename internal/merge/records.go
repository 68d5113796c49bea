package merge

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dshills/proposal-mcp/pkg/types"
)

// Merge folds one partial record into a canonical record and returns the
// result. Neither argument is modified.
//
// Rules, per top-level field of incoming:
//   - sources: set union, first-appearance order
//   - object into object: keys missing (or null) in existing are copied; existing keys win
//   - list into list: set union, first-appearance order
//   - scalar: copied only when existing has no truthy value
//   - null: ignored
//
// When the kinds differ (say a list arrives where existing holds a string),
// a truthy existing value wins and a falsy one is replaced.
func Merge(existing types.CanonicalRecord, incoming types.PartialRecord) types.CanonicalRecord {
	out := types.CanonicalRecord{
		Key:     existing.Key,
		Fields:  cloneObject(existing.Fields),
		Sources: unionStrings(existing.Sources, incoming.Sources()),
	}

	// Sorted for deterministic iteration; fields are independent of each other
	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		if k != types.SourcesField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if v, ok := mergeValue(out.Fields[k], incoming[k]); ok {
			out.Fields[k] = v
		}
	}

	return out
}

// mergeValue returns the new value for one field, and false when the field
// should be left untouched
func mergeValue(current, incoming any) (any, bool) {
	if incoming == nil {
		return nil, false
	}

	if in, ok := asObject(incoming); ok {
		if cur, ok := asObject(current); ok {
			return mergeObjects(cur, in), true
		}
		return replaceIfFalsy(current, incoming)
	}

	if in, ok := asList(incoming); ok {
		if cur, ok := asList(current); ok {
			return unionValues(cur, in), true
		}
		return replaceIfFalsy(current, incoming)
	}

	return replaceIfFalsy(current, incoming)
}

func replaceIfFalsy(current, incoming any) (any, bool) {
	if truthy(current) {
		return nil, false
	}
	return cloneValue(incoming), true
}

// mergeObjects is a shallow merge where keys already present in cur win
func mergeObjects(cur, in map[string]any) map[string]any {
	out := cloneObject(cur)
	for k, v := range in {
		if existing, ok := out[k]; ok && existing != nil {
			continue
		}
		if v == nil {
			if _, ok := out[k]; !ok {
				out[k] = nil
			}
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// unionValues appends the elements of b not already in a, compared by their
// canonical JSON encoding
func unionValues(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]any{a, b} {
		for _, v := range list {
			key := canonicalKey(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, cloneValue(v))
		}
	}
	return out
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func canonicalKey(v any) string {
	// encoding/json sorts object keys, so equal values encode identically
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(b)
}

// truthy mirrors the loose emptiness test extractors are written against:
// null, false, zero, "" and empty collections are all falsy
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	}
	if m, ok := asObject(v); ok {
		return len(m) > 0
	}
	if l, ok := asList(v); ok {
		return len(l) > 0
	}
	return true
}

func asObject(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case types.PartialRecord:
		return map[string]any(x), true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func cloneObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := asObject(v); ok {
		return cloneObject(m)
	}
	if l, ok := asList(v); ok {
		out := make([]any, len(l))
		for i, e := range l {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
