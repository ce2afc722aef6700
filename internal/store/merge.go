package store

import (
	"maps"
	"strings"
)

// Merge returns a new map holding patch merged over base. Dotted keys address
// nested maps; nested maps merge recursively; every other value replaces.
// Neither argument is modified.
func Merge(base, patch Fields) Fields {
	out := CopyFields(base)
	if out == nil {
		out = Fields{}
	}
	for k, v := range patch {
		setPath(out, strings.Split(k, "."), v)
	}
	return out
}

func setPath(m map[string]any, path []string, v any) {
	key := path[0]
	if len(path) == 1 {
		if patchMap, ok := asMap(v); ok {
			if existing, ok := asMap(m[key]); ok {
				merged := maps.Clone(existing)
				for pk, pv := range patchMap {
					setPath(merged, []string{pk}, pv)
				}
				m[key] = merged
				return
			}
		}
		m[key] = copyValue(v)
		return
	}
	child, ok := asMap(m[key])
	if ok {
		child = maps.Clone(child)
	} else {
		child = map[string]any{}
	}
	setPath(child, path[1:], v)
	m[key] = child
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fields:
		return map[string]any(m), true
	}
	return nil, false
}

// CopyFields returns a deep copy of f.
func CopyFields(f Fields) Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = copyValue(vv)
		}
		return out
	case Fields:
		return map[string]any(CopyFields(t))
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = copyValue(vv)
		}
		return out
	default:
		return v
	}
}
