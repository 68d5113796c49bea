package types

import (
	"encoding/json"
	"sort"
)

// SourcesField is the reserved provenance field of a record
const SourcesField = "sources"

// PartialRecord is one extractor's structured output for one fragment. Any
// field may be absent, null, empty, a scalar, a list, or a nested object.
type PartialRecord map[string]any

// Sources returns the string entries of the record's sources list
func (p PartialRecord) Sources() []string {
	raw, ok := p[SourcesField].([]any)
	if !ok {
		if ss, ok := p[SourcesField].([]string); ok {
			return append([]string(nil), ss...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Object returns the nested object stored under key, or nil when the value
// is missing or not an object
func (p PartialRecord) Object(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}

// CanonicalRecord is the reconciled view of one logical entity
type CanonicalRecord struct {
	Key     string
	Fields  map[string]any
	Sources []string
}

// HasSource reports whether src already contributed to the record
func (c *CanonicalRecord) HasSource(src string) bool {
	for _, s := range c.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// MarshalJSON renders the record as a flat object: every field plus sources
func (c CanonicalRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	sources := append([]string(nil), c.Sources...)
	if sources == nil {
		sources = []string{}
	}
	out[SourcesField] = sources
	return json.Marshal(out)
}

// UnmarshalJSON reads the flat object form produced by MarshalJSON
func (c *CanonicalRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Sources = PartialRecord(raw).Sources()
	delete(raw, SourcesField)
	c.Fields = raw
	return nil
}

// FieldNames returns the record's field names in sorted order
func (c *CanonicalRecord) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
