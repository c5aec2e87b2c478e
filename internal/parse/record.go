package parse

// Record is the final structured output for one parsed document: a
// nested mapping of string keys to strings, numbers, sections and
// lists, directly serializable. A key is present only when the value
// was positively extracted — absent data means the key is omitted.
type Record map[string]any

// Section is one nested group of a Record (invoice header, supplier,
// financial summary, ...).
type Section map[string]any

// put stores a value unless it is empty.
func (s Section) put(key string, v any) {
	switch t := v.(type) {
	case nil:
		return
	case string:
		if t == "" {
			return
		}
	case Section:
		if len(t) == 0 {
			return
		}
	case []Section:
		if len(t) == 0 {
			return
		}
	}
	s[key] = v
}

// Prune removes empty sections, lists and zero-value members so the
// record never carries a present-but-empty key.
func Prune(r Record) Record {
	out := Record{}
	for k, v := range r {
		if pv, ok := pruneValue(v); ok {
			out[k] = pv
		}
	}
	return out
}

func pruneValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case Section:
		out := Section{}
		for k, sv := range t {
			if pv, ok := pruneValue(sv); ok {
				out[k] = pv
			}
		}
		return out, len(out) > 0
	case map[string]any:
		out := map[string]any{}
		for k, sv := range t {
			if pv, ok := pruneValue(sv); ok {
				out[k] = pv
			}
		}
		return out, len(out) > 0
	case []Section:
		out := make([]Section, 0, len(t))
		for _, sv := range t {
			if pv, ok := pruneValue(sv); ok {
				out = append(out, pv.(Section))
			}
		}
		return out, len(out) > 0
	case []any:
		out := make([]any, 0, len(t))
		for _, sv := range t {
			if pv, ok := pruneValue(sv); ok {
				out = append(out, pv)
			}
		}
		return out, len(out) > 0
	default:
		return v, true
	}
}
