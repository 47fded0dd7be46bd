package widget

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

var formTemplate = template.Must(
	template.New("form.html.tmpl").Funcs(template.FuncMap{
		"text":       func(e *Element) string { return e.Text() },
		"selected":   func(e *Element, value string) bool { return e.Selected(value) },
		"container":  func(e *Element) bool { return e.Kind.IsContainer() },
		"isDate":     isDateKind,
		"dateFields": dateFields,
		"selectName": selectName,
		"attrs":      attrs,
		"separator":  func(s string) template.HTML { return template.HTML(s) },
		"cell":       func(e *Element, row, col string) *Element { return e.Cell(row, col) },
	}).ParseFS(templateFS, "templates/form.html.tmpl"),
)

// HTML renders forms as HTML markup
type HTML struct{}

// Name returns the toolkit name
func (HTML) Name() string {
	return "html"
}

// NewForm creates an empty HTML form
func (HTML) NewForm(name string) Form {
	return &htmlForm{baseForm: baseForm{name: name}}
}

type htmlForm struct {
	baseForm
}

// Render writes the form markup
func (f *htmlForm) Render(w io.Writer) error {
	return formTemplate.ExecuteTemplate(w, "form", f)
}

func isDateKind(e *Element) bool {
	return e.Kind == KindDate || e.Kind == KindTime || e.Kind == KindDatetime
}

func selectName(e *Element) string {
	if e.Multiple {
		return e.Name + "[]"
	}
	return e.Name
}

// attrs renders attributes in a stable order. Attribute names that are not
// plain words are dropped.
func attrs(m map[string]string) template.HTMLAttr {
	var sb strings.Builder
	for _, key := range slices.Sorted(maps.Keys(m)) {
		if !isAttrName(key) {
			continue
		}
		fmt.Fprintf(&sb, ` %s="%s"`, key, html.EscapeString(m[key]))
	}
	return template.HTMLAttr(sb.String())
}

func isAttrName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// dateField is one select of a date element, or a literal between selects
type dateField struct {
	Literal string
	Name    string
	Value   string
	Options []Option
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func dateFields(e *Element) []dateField {
	var fields []dateField
	for _, r := range e.Format {
		key := string(r)
		if !isDatePart(key) {
			if n := len(fields); n > 0 && fields[n-1].Name == "" {
				fields[n-1].Literal += key
			} else {
				fields = append(fields, dateField{Literal: key})
			}
			continue
		}

		value := partValue(e.Value, key)
		fields = append(fields, dateField{
			Name:    MemberName(e.Name, key),
			Value:   value,
			Options: partOptions(key, value, e.Attributes),
		})
	}
	return fields
}

func partOptions(key, current string, attributes map[string]string) []Option {
	options := []Option{{Value: "", Label: ""}}

	switch key {
	case "d":
		options = append(options, numberOptions(1, 31)...)
	case "m":
		options = append(options, numberOptions(1, 12)...)
	case "M":
		for i, name := range monthNames {
			options = append(options, Option{Value: fmt.Sprintf("%02d", i+1), Label: name})
		}
	case "H":
		options = append(options, numberOptions(0, 23)...)
	case "i", "s":
		options = append(options, numberOptions(0, 59)...)
	case "Y":
		minYear, maxYear := yearRange(attributes)
		if y, err := strconv.Atoi(current); err == nil {
			minYear, maxYear = min(minYear, y), max(maxYear, y)
		}
		for y := minYear; y <= maxYear; y++ {
			v := strconv.Itoa(y)
			options = append(options, Option{Value: v, Label: v})
		}
	}
	return options
}

func numberOptions(from, to int) []Option {
	options := make([]Option, 0, to-from+1)
	for i := from; i <= to; i++ {
		v := fmt.Sprintf("%02d", i)
		options = append(options, Option{Value: v, Label: v})
	}
	return options
}

// yearRange reads minYear and maxYear attributes, defaulting to a century
// back and a decade ahead
func yearRange(attributes map[string]string) (int, int) {
	year := time.Now().Year()
	minYear, maxYear := year-100, year+10
	if v, err := strconv.Atoi(attributes["minYear"]); err == nil {
		minYear = v
	}
	if v, err := strconv.Atoi(attributes["maxYear"]); err == nil {
		maxYear = v
	}
	return minYear, maxYear
}
