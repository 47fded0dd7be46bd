package formbuilder

import (
	"fmt"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// Synthetic field name prefixes of junction relationships
const (
	CrossLinkPrefix  = "__crosslink_"
	TripleLinkPrefix = "__tripleLink_"
)

// CrossLinkName returns the field name of the cross link through table
func CrossLinkName(table string) string {
	return CrossLinkPrefix + table
}

// TripleLinkName returns the field name of the triple link through table
func TripleLinkName(table string) string {
	return TripleLinkPrefix + table
}

// FieldName returns the element name of a logical field, wrapped in the
// configured prefix and postfix
func (b *Builder) FieldName(field string) string {
	return b.settings.ElementNamePrefix + field + b.settings.ElementNamePostfix
}

// flattenValues turns nested maps into bracket keys, so
// {"born": {"d": "15"}} becomes {"born[d]": "15"}
func flattenValues(values map[string]any) map[string]any {
	flat := make(map[string]any, len(values))
	for key, value := range values {
		flattenInto(flat, key, value)
	}
	return flat
}

func flattenInto(flat map[string]any, key string, value any) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			flat[key] = v
			return
		}
		for k, child := range v {
			flattenInto(flat, key+"["+k+"]", child)
		}
	case map[string]string:
		for k, child := range v {
			flat[key+"["+k+"]"] = child
		}
	case DateParts:
		for k, child := range v {
			flat[key+"["+k+"]"] = child
		}
	default:
		flat[key] = value
	}
}

// unwrapValues maps submitted values back to logical field names. Keys
// that do not belong to one of fields once the prefix and postfix are
// removed are dropped. Bracketed keys below a field are nested again.
func (b *Builder) unwrapValues(values map[string]any, fields []string) map[string]any {
	flat := flattenValues(values)
	out := make(map[string]any)

	for _, field := range fields {
		wrapped := b.FieldName(field)
		if v, ok := flat[wrapped]; ok {
			out[field] = v
			continue
		}

		prefix := wrapped + "["
		for key, v := range flat {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			path := widget.SplitName("x" + key[len(wrapped):])[1:]
			if len(path) == 1 && path[0] == "" {
				out[field] = v
				continue
			}
			nested, _ := out[field].(map[string]any)
			if nested == nil {
				nested = make(map[string]any)
				out[field] = nested
			}
			// a trailing [] collects a list below its parent
			if last := len(path) - 1; path[last] == "" {
				appendPath(nested, path[:last], listValue(v))
				continue
			}
			setPath(nested, path, v)
		}
	}

	return out
}

func setPath(m map[string]any, path []string, value any) {
	for i, key := range path {
		if i == len(path)-1 {
			m[key] = value
			return
		}
		child, ok := m[key].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[key] = child
		}
		m = child
	}
}

func appendPath(m map[string]any, path []string, values []string) {
	parent := path[:len(path)-1]
	key := path[len(path)-1]
	if len(parent) > 0 {
		child, ok := m[parent[0]].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[parent[0]] = child
		}
		appendPath(child, path[1:], values)
		return
	}
	list, _ := m[key].([]string)
	m[key] = append(list, values...)
}

func listValue(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		list := make([]string, 0, len(t))
		for _, item := range t {
			list = append(list, keyString(item))
		}
		return list
	}
	return []string{keyString(v)}
}

// label returns the configured label of field, else the field name with
// an upper-case first letter
func (b *Builder) label(field, fallback string) string {
	if l, ok := b.settings.FieldLabels[field]; ok {
		return l
	}
	return ucfirst(fallback)
}

func ucfirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func keyString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
