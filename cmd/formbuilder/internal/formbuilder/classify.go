package formbuilder

import (
	"slices"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// FieldKind is the semantic kind of a form field
type FieldKind int

const (
	FieldShortText FieldKind = iota
	FieldLongText
	FieldInteger
	FieldDate
	FieldTime
	FieldDateTime
	FieldEnum
	FieldReference
	FieldHidden
	FieldCrossLink
	FieldTripleLink
	FieldPredefined
)

var fieldKindNames = map[FieldKind]string{
	FieldShortText:  "shorttext",
	FieldLongText:   "longtext",
	FieldInteger:    "integer",
	FieldDate:       "date",
	FieldTime:       "time",
	FieldDateTime:   "datetime",
	FieldEnum:       "enum",
	FieldReference:  "reference",
	FieldHidden:     "hidden",
	FieldCrossLink:  "crosslink",
	FieldTripleLink: "triplelink",
	FieldPredefined: "predefined",
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsDate reports whether values of the kind are converted as dates
func (k FieldKind) IsDate() bool {
	return k == FieldDate || k == FieldTime || k == FieldDateTime
}

// FieldInput is everything classification looks at for one field
type FieldInput struct {
	Flags registry.TypeFlag
	Value any

	Predefined bool

	// Kind overrides from the DateFields, TimeFields, TextFields and
	// EnumFields lists
	DateField bool
	TimeField bool
	TextField bool
	EnumField bool

	PrimaryKey     bool
	HidePrimaryKey bool
	Link           bool
	CrossLink      bool
	TripleLink     bool

	// Enumerated is set when the schema lists allowed values for the column
	Enumerated bool
}

// Classification is the outcome of Classify
type Classification struct {
	Kind FieldKind

	// Validator is a widget rule name attached to the field, if any
	Validator string
}

// Classify decides the kind of a field. The first matching rule wins:
// predefined element, kind override lists, hidden primary key, foreign
// key, junction relationship, then the column type flags.
func Classify(in FieldInput) Classification {
	switch {
	case in.Predefined:
		return Classification{Kind: FieldPredefined}
	case in.DateField && in.TimeField:
		return Classification{Kind: FieldDateTime}
	case in.DateField:
		return Classification{Kind: FieldDate}
	case in.TimeField:
		return Classification{Kind: FieldTime}
	case in.TextField:
		return Classification{Kind: FieldLongText}
	case in.EnumField:
		return Classification{Kind: FieldEnum}
	case in.PrimaryKey && in.HidePrimaryKey:
		return Classification{Kind: FieldHidden}
	case in.Link:
		return Classification{Kind: FieldReference}
	case in.CrossLink:
		return Classification{Kind: FieldCrossLink}
	case in.TripleLink:
		return Classification{Kind: FieldTripleLink}
	case in.Enumerated:
		return Classification{Kind: FieldEnum}
	}

	flags := in.Flags
	switch {
	case flags.Has(registry.FlagInt):
		return Classification{Kind: FieldInteger, Validator: widget.RuleNumeric}
	case flags.Has(registry.FlagDate | registry.FlagTime):
		return Classification{Kind: FieldDateTime}
	case flags.Has(registry.FlagDate):
		return Classification{Kind: FieldDate}
	case flags.Has(registry.FlagTime):
		return Classification{Kind: FieldTime}
	case flags.Any(registry.FlagText | registry.FlagBool):
		return Classification{Kind: FieldLongText}
	case flags.Has(registry.FlagString):
		if s, ok := in.Value.(string); ok && strings.Contains(s, "\n") {
			return Classification{Kind: FieldLongText}
		}
		return Classification{Kind: FieldShortText}
	}
	return Classification{Kind: FieldShortText}
}

// fieldInput gathers the classification input of a column or junction
// pseudo-field from the record schema and the table settings
func (b *Builder) fieldInput(field string) FieldInput {
	s := b.settings
	table := b.record.Schema()

	in := FieldInput{
		Predefined:     s.PreDefElements[field] != nil,
		DateField:      slices.Contains(s.DateFields, field),
		TimeField:      slices.Contains(s.TimeFields, field),
		TextField:      slices.Contains(s.TextFields, field),
		EnumField:      slices.Contains(s.EnumFields, field),
		HidePrimaryKey: s.HidePrimaryKey,
		CrossLink:      b.crossLink(field) != nil,
		TripleLink:     b.tripleLink(field) != nil,
	}

	if col, ok := table.Column(field); ok {
		in.Flags = col.Flags
		in.Value = b.record.Get(field)
		in.PrimaryKey = table.IsPrimaryKey(field)
		in.Enumerated = len(col.EnumValues) > 0
		_, in.Link = table.Link(field)
	}
	return in
}

// classify classifies a field of the record being edited
func (b *Builder) classify(field string) Classification {
	return Classify(b.fieldInput(field))
}
