package widget

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnknownToolkit is returned by New for an unregistered toolkit name
var ErrUnknownToolkit = errors.New("unknown toolkit")

// Validator names understood by Form.Validate
const (
	RuleRequired  = "required"
	RuleNumeric   = "numeric"
	RuleRegex     = "regex"
	RuleMaxLength = "maxlength"
)

// Rule is a validation rule attached to a named element
type Rule struct {
	Field     string `json:"field" yaml:"field"`
	Validator string `json:"validator" yaml:"validator"`
	Param     string `json:"param,omitempty" yaml:"param,omitempty"`
	Message   string `json:"message" yaml:"message"`
}

// Form is a form under construction
type Form interface {
	Name() string

	AddElement(el *Element)
	Elements() []*Element

	// Element finds an element by name, looking inside groups and matrices
	Element(name string) *Element

	// SetDefaults assigns values to elements by name. Names with brackets,
	// such as "links[3]", are also looked up in nested maps.
	SetDefaults(values map[string]any)

	// Freeze makes the named elements read-only, or every element when no
	// name is given
	Freeze(names ...string)

	AddRule(rule Rule)
	Rules() []Rule

	// Validate checks submitted values against the rules and returns
	// messages keyed by field. Frozen elements are not checked.
	Validate(values map[string]any) map[string]string

	Render(w io.Writer) error
}

// Toolkit creates forms
type Toolkit interface {
	Name() string
	NewForm(name string) Form
}

// New returns the toolkit registered under name: "html", "json" or "yaml"
func New(name string) (Toolkit, error) {
	switch name {
	case "html":
		return HTML{}, nil
	case "json":
		return Descriptor{Format: FormatJSON}, nil
	case "yaml":
		return Descriptor{Format: FormatYAML}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownToolkit, name)
}

// baseForm holds everything but rendering
type baseForm struct {
	name     string
	elements []*Element
	rules    []Rule
}

func (f *baseForm) Name() string {
	return f.name
}

func (f *baseForm) AddElement(el *Element) {
	f.elements = append(f.elements, el)
}

func (f *baseForm) Elements() []*Element {
	return f.elements
}

func (f *baseForm) Element(name string) *Element {
	var found *Element
	for _, el := range f.elements {
		el.Walk(func(e *Element) {
			if found == nil && e.Name == name {
				found = e
			}
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func (f *baseForm) SetDefaults(values map[string]any) {
	for _, el := range f.elements {
		el.Walk(func(e *Element) {
			if e.Kind.IsContainer() || e.Kind == KindHeader || e.Kind == KindSubmit {
				return
			}
			if v, ok := Lookup(values, e.Name); ok {
				e.Value = v
			}
		})
	}
}

func (f *baseForm) Freeze(names ...string) {
	if len(names) == 0 {
		for _, el := range f.elements {
			el.Walk(func(e *Element) { e.Frozen = true })
		}
		return
	}
	for _, name := range names {
		if el := f.Element(name); el != nil {
			el.Walk(func(e *Element) { e.Frozen = true })
		}
	}
}

func (f *baseForm) AddRule(rule Rule) {
	f.rules = append(f.rules, rule)
	if rule.Validator == RuleRequired {
		if el := f.Element(rule.Field); el != nil {
			el.Required = true
		}
	}
}

func (f *baseForm) Rules() []Rule {
	return f.rules
}

func (f *baseForm) Validate(values map[string]any) map[string]string {
	errs := make(map[string]string)

	for _, rule := range f.rules {
		if _, failed := errs[rule.Field]; failed {
			continue
		}
		if el := f.Element(rule.Field); el != nil && el.Frozen {
			continue
		}

		value, present := Lookup(values, rule.Field)
		nested := !present && hasNested(values, rule.Field)
		text := scalarText(value)

		ok := true
		switch rule.Validator {
		case RuleRequired:
			ok = nested || (present && truthyInput(value))
		case RuleNumeric:
			if text != "" {
				_, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
				ok = err == nil
			}
		case RuleRegex:
			if text != "" {
				re, err := regexp.Compile(rule.Param)
				ok = err == nil && re.MatchString(text)
			}
		case RuleMaxLength:
			if n, err := strconv.Atoi(rule.Param); err == nil {
				ok = len([]rune(text)) <= n
			}
		}

		if !ok {
			errs[rule.Field] = rule.Message
		}
	}

	return errs
}

// truthyInput reports whether a submitted value counts as filled in
func truthyInput(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return v != nil
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
		return ""
	}
	return fmt.Sprint(v)
}

// Lookup returns the value stored under name. A plain key is tried first,
// then the bracket path of name is followed through nested maps, so
// "links[3]" finds values["links"]["3"].
func Lookup(values map[string]any, name string) (any, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}

	path := SplitName(name)
	if len(path) < 2 {
		return nil, false
	}

	var current any = values
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[key]; !ok {
			return nil, false
		}
	}
	return current, true
}

// hasNested reports whether any flat key of values starts with name[
func hasNested(values map[string]any, name string) bool {
	prefix := name + "["
	for key := range values {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// SplitName splits "a[b][c]" into ["a", "b", "c"]. Empty brackets, as in
// "a[]", yield an empty segment.
func SplitName(name string) []string {
	head, rest, found := strings.Cut(name, "[")
	if !found {
		return []string{name}
	}

	parts := []string{head}
	for rest != "" {
		key, after, ok := strings.Cut(rest, "]")
		if !ok {
			return []string{name}
		}
		parts = append(parts, key)
		rest = strings.TrimPrefix(after, "[")
	}
	return parts
}
