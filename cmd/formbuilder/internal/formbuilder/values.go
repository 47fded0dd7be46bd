package formbuilder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

// convertValue turns a submitted value into what is stored in col
func (b *Builder) convertValue(col registry.Column, value any) any {
	if b.classify(col.Name).Kind.IsDate() {
		if parts, ok := toDateParts(value); ok {
			return b.settings.DateToStorage(parts)
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return nil
		}
		return value
	}

	if name, ok := uploadName(value); ok {
		return name
	}

	value = single(value)
	s, isString := value.(string)

	table := b.record.Schema()
	if _, isLink := table.Link(col.Name); isLink && isString && s == "" && col.Nullable {
		return nil
	}

	switch {
	case col.Flags.Has(registry.FlagInt):
		if !isString {
			return value
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return s
	case col.Flags.Has(registry.FlagBool):
		if isString {
			return parseBool(s)
		}
	}
	return value
}

// toDateParts reads the nested value submitted by a date element
func toDateParts(value any) (DateParts, bool) {
	switch v := value.(type) {
	case DateParts:
		return v, true
	case map[string]string:
		return DateParts(v), true
	case map[string]any:
		parts := make(DateParts, len(v))
		for k, p := range v {
			parts[k] = strings.TrimSpace(fmt.Sprint(single(p)))
		}
		return parts, true
	}
	return nil, false
}

// uploadName returns the file name of a file upload shaped value
func uploadName(value any) (string, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return "", false
	}
	_, hasTmp := m["tmp_name"]
	name, hasName := m["name"].(string)
	if !hasTmp || !hasName {
		return "", false
	}
	return name, true
}

// single unwraps one-element lists, as sent for repeated form keys
func single(value any) any {
	switch v := value.(type) {
	case []string:
		if len(v) == 1 {
			return v[0]
		}
		if len(v) == 0 {
			return ""
		}
	case []any:
		if len(v) == 1 {
			return v[0]
		}
		if len(v) == 0 {
			return ""
		}
	}
	return value
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "on", "yes", "y":
		return true
	}
	return false
}

// submittedKeys reads the keys selected in a cross link: a list from a
// multiple select, or a map from a checkbox group keyed by option value
func submittedKeys(value any) map[string]bool {
	keys := make(map[string]bool)
	switch v := value.(type) {
	case nil:
	case string:
		if v != "" {
			keys[v] = true
		}
	case []string:
		for _, k := range v {
			if k != "" {
				keys[k] = true
			}
		}
	case []any:
		for _, k := range v {
			if s := keyString(k); s != "" {
				keys[s] = true
			}
		}
	case map[string]any:
		for k, checked := range v {
			if ticked(checked) {
				keys[k] = true
			}
		}
	case map[string]string:
		for k, checked := range v {
			if checked != "" {
				keys[k] = true
			}
		}
	default:
		keys[keyString(v)] = true
	}
	return keys
}

type pair struct {
	first, second string
}

// submittedPairs reads the ticked cells of a checkbox matrix
func submittedPairs(value any) map[pair]bool {
	pairs := make(map[pair]bool)
	rows, ok := value.(map[string]any)
	if !ok {
		return pairs
	}
	for row, cols := range rows {
		for col := range submittedKeys(cols) {
			pairs[pair{row, col}] = true
		}
	}
	return pairs
}

func ticked(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	}
	return true
}
