package tracing

import (
	"bytes"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

// Attribute is a single key/value pair attached to a span
type Attribute struct {
	Key   string
	Value any
}

// Attr creates an attribute
func Attr(key string, value any) Attribute {
	return Attribute{Key: key, Value: value}
}

// Attributes is an insertion-ordered mapping from key to value. Values may be
// scalars, slices, maps, or nested Attributes.
type Attributes []Attribute

// Get returns the value stored under key
func (a Attributes) Get(key string) (any, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return nil, false
}

// Set overwrites the value under key in place, or appends a new entry
func (a Attributes) Set(key string, value any) Attributes {
	for i := range a {
		if a[i].Key == key {
			a[i].Value = value
			return a
		}
	}
	return append(a, Attribute{Key: key, Value: value})
}

// Clone returns a shallow copy
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	copy(out, a)
	return out
}

// MarshalJSON encodes the attributes as a JSON object in insertion order
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := sonic.ConfigStd.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		val, err := sonic.ConfigStd.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the attributes as an ordered YAML mapping
func (a Attributes) MarshalYAML() (interface{}, error) {
	return a.mapSlice(), nil
}

func (a Attributes) mapSlice() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(a))
	for _, attr := range a {
		out = append(out, yaml.MapItem{Key: attr.Key, Value: yamlValue(attr.Value)})
	}
	return out
}

func yamlValue(v any) any {
	switch val := v.(type) {
	case Attributes:
		return val.mapSlice()
	case []Attributes:
		out := make([]yaml.MapSlice, len(val))
		for i, item := range val {
			out[i] = item.mapSlice()
		}
		return out
	default:
		return v
	}
}

// plain converts the attributes into nested maps, dropping nil values.
// Used by encoders that cannot honour custom marshalers.
func (a Attributes) plain() map[string]any {
	out := make(map[string]any, len(a))
	for _, attr := range a {
		if v := plainValue(attr.Value); v != nil {
			out[attr.Key] = v
		}
	}
	return out
}

func plainValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case Attributes:
		return val.plain()
	case []Attributes:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = item.plain()
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if pv := plainValue(item); pv != nil {
				out[k] = pv
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if pv := plainValue(item); pv != nil {
				out = append(out, pv)
			}
		}
		return out
	default:
		return v
	}
}
