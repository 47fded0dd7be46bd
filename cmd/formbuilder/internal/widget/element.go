// Package widget is the form toolkit the form builder emits into. A Toolkit
// creates Forms; a Form holds Elements, default values, freeze state and
// validation rules, and renders itself either as HTML markup (HTML) or as a
// machine readable descriptor (Descriptor).
package widget

import (
	"fmt"
	"strings"
)

// Kind is the type of a form element
type Kind string

const (
	KindHeader   Kind = "header"
	KindHidden   Kind = "hidden"
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindSelect   Kind = "select"
	KindRadio    Kind = "radio"
	KindCheckbox Kind = "checkbox"
	KindDate     Kind = "date"
	KindTime     Kind = "time"
	KindDatetime Kind = "datetime"
	KindStatic   Kind = "static"
	KindSubmit   Kind = "submit"
	KindGroup    Kind = "group"
	KindMatrix   Kind = "matrix"
)

// IsContainer reports whether elements of this kind hold other elements
func (k Kind) IsContainer() bool {
	return k == KindGroup || k == KindMatrix
}

// Option is one choice of a select, radio group or matrix axis
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// DateParts is the structured value of date and time elements, keyed by
// format letter (d, m, M, Y, H, i, s)
type DateParts map[string]string

// Element is one field of a form
type Element struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`

	Options  []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Multiple bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`

	// Format is the element format of date and time elements, e.g. "d-m-Y"
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// CheckedValue is what a checkbox submits when ticked
	CheckedValue string `json:"checked_value,omitempty" yaml:"checked_value,omitempty"`

	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	Frozen   bool `json:"frozen,omitempty" yaml:"frozen,omitempty"`
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Elements are the members of a group or the cells of a matrix
	Elements  []*Element `json:"elements,omitempty" yaml:"elements,omitempty"`
	Separator string     `json:"separator,omitempty" yaml:"separator,omitempty"`

	// Rows and Columns label the two axes of a matrix
	Rows    []Option `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns []Option `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// ElementOption configures an element built by NewElement
type ElementOption func(*Element)

// WithOptions sets the choices of a select or radio element
func WithOptions(options []Option) ElementOption {
	return func(e *Element) { e.Options = options }
}

// WithValue sets the element value
func WithValue(value any) ElementOption {
	return func(e *Element) { e.Value = value }
}

// WithFormat sets the format of a date or time element
func WithFormat(format string) ElementOption {
	return func(e *Element) { e.Format = format }
}

// WithCheckedValue sets the value a checkbox submits
func WithCheckedValue(value string) ElementOption {
	return func(e *Element) { e.CheckedValue = value }
}

// Multiple lets a select element hold several values
func Multiple() ElementOption {
	return func(e *Element) { e.Multiple = true }
}

// WithAttributes merges HTML attributes into the element
func WithAttributes(attrs map[string]string) ElementOption {
	return func(e *Element) {
		if len(attrs) == 0 {
			return
		}
		if e.Attributes == nil {
			e.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			e.Attributes[k] = v
		}
	}
}

// NewElement creates an element of the given kind
func NewElement(kind Kind, name, label string, opts ...ElementOption) *Element {
	e := &Element{Kind: kind, Name: name, Label: label}
	for _, opt := range opts {
		opt(e)
	}
	if kind == KindCheckbox && e.CheckedValue == "" {
		e.CheckedValue = "1"
	}
	return e
}

// NewGroup creates a group holding elements. The separator is placed
// between members when rendered.
func NewGroup(name, label string, elements []*Element, separator string) *Element {
	return &Element{
		Kind:      KindGroup,
		Name:      name,
		Label:     label,
		Elements:  elements,
		Separator: separator,
	}
}

// NewMatrix creates a grid of checkboxes, one per row and column pair. The
// cell for row r and column c is named name[r][c].
func NewMatrix(name, label string, rows, columns []Option) *Element {
	m := &Element{
		Kind:    KindMatrix,
		Name:    name,
		Label:   label,
		Rows:    rows,
		Columns: columns,
	}
	for _, row := range rows {
		for _, col := range columns {
			cell := NewElement(KindCheckbox, MatrixCellName(name, row.Value, col.Value), col.Label,
				WithCheckedValue(col.Value))
			m.Elements = append(m.Elements, cell)
		}
	}
	return m
}

// MatrixCellName returns the name of a matrix cell
func MatrixCellName(name, row, column string) string {
	return fmt.Sprintf("%s[%s][%s]", name, row, column)
}

// MemberName returns the name of a group member keyed by key
func MemberName(name, key string) string {
	return fmt.Sprintf("%s[%s]", name, key)
}

// Cell returns the matrix cell of row and column, or nil
func (e *Element) Cell(row, column string) *Element {
	if e.Kind != KindMatrix {
		return nil
	}
	name := MatrixCellName(e.Name, row, column)
	for _, cell := range e.Elements {
		if cell.Name == name {
			return cell
		}
	}
	return nil
}

// Walk calls fn for the element and every element nested in it
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, child := range e.Elements {
		child.Walk(fn)
	}
}

// Checked reports whether a checkbox element is ticked
func (e *Element) Checked() bool {
	return truthy(e.Value)
}

// Selected reports whether value is among the element's current values
func (e *Element) Selected(value string) bool {
	for _, v := range toStrings(e.Value) {
		if v == value {
			return true
		}
	}
	return false
}

// Text returns a read-only rendering of the element value, used when the
// element is frozen
func (e *Element) Text() string {
	switch e.Kind {
	case KindSelect, KindRadio:
		var labels []string
		for _, opt := range e.Options {
			if e.Selected(opt.Value) {
				labels = append(labels, opt.Label)
			}
		}
		return strings.Join(labels, ", ")
	case KindCheckbox:
		if e.Checked() {
			return "[x]"
		}
		return "[ ]"
	case KindDate, KindTime, KindDatetime:
		return formatParts(e.Format, e.Value)
	}
	if e.Value == nil {
		return ""
	}
	return fmt.Sprint(e.Value)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

// toStrings flattens a scalar, slice or set-like map into strings. Maps
// contribute their values, which is how checkbox groups submit.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case map[string]string:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, item)
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

// partValue reads one part of a date value
func partValue(v any, key string) string {
	switch t := v.(type) {
	case DateParts:
		return t[key]
	case map[string]string:
		return t[key]
	case map[string]any:
		if p, ok := t[key]; ok && p != nil {
			return fmt.Sprint(p)
		}
	}
	return ""
}

// formatParts renders a date value following its element format. Letters
// that are not parts are copied verbatim.
func formatParts(format string, v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}

	var sb strings.Builder
	for _, r := range format {
		key := string(r)
		if isDatePart(key) {
			sb.WriteString(partValue(v, key))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isDatePart(key string) bool {
	switch key {
	case "d", "m", "M", "Y", "H", "i", "s":
		return true
	}
	return false
}
