package settings

import (
	"sort"
	"strings"
)

// provenance maps a dotted leaf path to the ordered list of fragments that wrote it.
type provenance map[string][]string

func (p provenance) record(path []string, fragment string) {
	key := strings.Join(path, ".")
	p[key] = append(p[key], fragment)
}

// forget drops every entry at or below path.
func (p provenance) forget(path []string) {
	key := strings.Join(path, ".")
	for k := range p {
		if k == key || strings.HasPrefix(k, key+".") {
			delete(p, k)
		}
	}
}

func (p provenance) clone() map[string][]string {
	out := make(map[string][]string, len(p))
	for k, v := range p {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// mergeSettings writes src over dst. Maps merge key by key; scalars and
// lists replace whatever was there.
func mergeSettings(dst, src map[string]any, path []string, fragment string, prov provenance) {
	for _, k := range sortedKeys(src) {
		v := src[k]
		p := appendPath(path, k)

		if sub, ok := v.(map[string]any); ok {
			existing, isMap := dst[k].(map[string]any)
			if !isMap {
				if _, present := dst[k]; present {
					prov.forget(p)
				}
				existing = make(map[string]any, len(sub))
				dst[k] = existing
			}
			mergeSettings(existing, sub, p, fragment, prov)
			continue
		}

		if _, wasMap := dst[k].(map[string]any); wasMap {
			prov.forget(p)
		}
		dst[k] = v
		prov.record(p, fragment)
	}
}

// appendSettings appends list leaves of src to the lists already in dst.
// Non-list leaves behave like mergeSettings.
func appendSettings(dst, src map[string]any, path []string, fragment string, prov provenance) {
	for _, k := range sortedKeys(src) {
		v := src[k]
		p := appendPath(path, k)

		switch t := v.(type) {
		case map[string]any:
			existing, isMap := dst[k].(map[string]any)
			if !isMap {
				prov.forget(p)
				existing = make(map[string]any, len(t))
				dst[k] = existing
			}
			appendSettings(existing, t, p, fragment, prov)
		case []any:
			if current, isList := dst[k].([]any); isList {
				merged := make([]any, 0, len(current)+len(t))
				merged = append(merged, current...)
				merged = append(merged, t...)
				dst[k] = merged
			} else {
				prov.forget(p)
				dst[k] = append([]any(nil), t...)
			}
			prov.record(p, fragment)
		default:
			mergeSettings(dst, map[string]any{k: v}, path, fragment, prov)
		}
	}
}

// setPath writes value at path, creating intermediate maps as needed.
func setPath(dst map[string]any, path []string, value any, fragment string, prov provenance) {
	if len(path) == 0 {
		return
	}
	node := dst
	for i, k := range path[:len(path)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			prov.forget(path[:i+1])
			next = make(map[string]any)
			node[k] = next
		}
		node = next
	}
	leaf := path[len(path)-1]
	if _, wasMap := node[leaf].(map[string]any); wasMap {
		prov.forget(path)
	}
	node[leaf] = value
	prov.record(path, fragment)
}

func lookupPath(src map[string]any, path []string) (any, bool) {
	var cur any = src
	for _, k := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func appendPath(path []string, k string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = k
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
