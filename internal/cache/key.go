package cache

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Key builds the canonical cache key for an upstream call: the upstream
// name, the tool name, and the arguments serialized with object keys
// sorted recursively. Semantically equal argument objects produce
// identical keys regardless of field order.
func Key(upstream, tool string, args any) (string, error) {
	canonical, err := canonicalize(args)
	if err != nil {
		return "", fmt.Errorf("canonicalizing cache key args: %w", err)
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("marshaling cache key args: %w", err)
	}
	return upstream + ":" + tool + ":" + string(data), nil
}

// canonicalize rewrites arbitrary JSON-shaped Go values (maps, slices,
// scalars) into a form whose map keys marshal in sorted order at every
// depth, recursing into slices. encoding/json already sorts map[string]any
// keys; this makes the sorting explicit instead of relying on that.
func canonicalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(t))
		for _, k := range keys {
			cv, err := canonicalize(t[k])
			if err != nil {
				return nil, err
			}
			out = append(out, orderedField{key: k, value: cv})
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			cv, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	default:
		return v, nil
	}
}

type orderedField struct {
	key   string
	value any
}

// orderedMap marshals as a JSON object with fields in the slice's order,
// which canonicalize has already sorted lexicographically by key.
type orderedMap []orderedField

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		valJSON, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}
