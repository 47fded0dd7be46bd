package formbuilder

import (
	"context"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// QueryType selects what Process writes
type QueryType int

const (
	// QueryAuto inserts when the primary key is empty and updates otherwise
	QueryAuto QueryType = iota
	QueryInsert
	QueryUpdate
	// QueryNoAction processes values without writing them
	QueryNoAction
)

func (q QueryType) String() string {
	switch q {
	case QueryInsert:
		return "insert"
	case QueryUpdate:
		return "update"
	case QueryNoAction:
		return "noaction"
	default:
		return "auto"
	}
}

// Cross link element types
const (
	CrossLinkCheckbox = "checkbox"
	CrossLinkSelect   = "select"
)

// CrossLink declares a many-to-many relationship through a junction table.
// FromField references the owning table, ToField the related one. Empty
// fields are inferred from the junction table's foreign keys.
type CrossLink struct {
	Table     string `mapstructure:"table" yaml:"table"`
	FromField string `mapstructure:"from_field" yaml:"from_field"`
	ToField   string `mapstructure:"to_field" yaml:"to_field"`

	// Type is CrossLinkCheckbox (default) or CrossLinkSelect
	Type string `mapstructure:"type" yaml:"type"`
}

// TripleLink declares a three-way relationship rendered as a checkbox
// matrix with ToField1 on the rows and ToField2 on the columns
type TripleLink struct {
	Table     string `mapstructure:"table" yaml:"table"`
	FromField string `mapstructure:"from_field" yaml:"from_field"`
	ToField1  string `mapstructure:"to_field1" yaml:"to_field1"`
	ToField2  string `mapstructure:"to_field2" yaml:"to_field2"`
}

// Options configures form generation and processing. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// Toolkit names the widget toolkit forms are built with ("html", "json", "yaml")
	Toolkit string

	AddFormHeader bool
	// FormHeaderText defaults to the table name with an upper-case first letter
	FormHeaderText string

	// RuleViolationMessage and RequiredRuleMessage take the field label as their %s
	RuleViolationMessage string
	RequiredRuleMessage  string

	ValidateOnProcess bool
	HidePrimaryKey    bool
	CreateSubmit      bool
	SubmitText        string

	// LinkDisplayFields are the columns used to label options of any linked
	// table that has no display fields of its own
	LinkDisplayFields []string
	// LinkDisplayLevel is how many links deep option labels follow foreign keys
	LinkDisplayLevel     int
	LinkDisplaySeparator string
	LinkOrderFields      []string

	// ElementNamePrefix and ElementNamePostfix wrap every element name
	ElementNamePrefix  string
	ElementNamePostfix string

	CrossLinkSeparator string

	DateElementFormat     string
	TimeElementFormat     string
	DateTimeElementFormat string

	// ElementTypeAttributes holds HTML attributes per element kind
	ElementTypeAttributes map[widget.Kind]map[string]string

	// DateFromStorage and DateToStorage convert between stored date values
	// and date element values
	DateFromStorage func(value any, format string) DateParts
	DateToStorage   func(parts DateParts) any

	// EnumOptionsCallback supplies enum values not listed in EnumOptions
	EnumOptionsCallback func(ctx context.Context, table, column string) ([]string, error)

	// Tables holds per-table overrides, keyed by table name. Overrides of
	// linked tables decide how their rows are labelled in option lists.
	Tables map[string]Overrides
}

// DefaultOptions returns the default configuration
func DefaultOptions() Options {
	return Options{
		Toolkit:               "html",
		AddFormHeader:         true,
		RuleViolationMessage:  "%s: The value you have entered is not valid.",
		RequiredRuleMessage:   "The field %s is required.",
		HidePrimaryKey:        true,
		CreateSubmit:          true,
		SubmitText:            "Submit",
		LinkDisplaySeparator:  ", ",
		CrossLinkSeparator:    "<br/>",
		DateElementFormat:     "d-m-Y",
		TimeElementFormat:     "H:i:s",
		DateTimeElementFormat: "d-m-Y H:i:s",
		DateFromStorage:       DateFromStorage,
		DateToStorage:         DateToStorage,
	}
}

// Overrides are the per-table settings. Nil fields fall back to Options.
type Overrides struct {
	AddFormHeader        *bool
	FormHeaderText       *string
	RuleViolationMessage *string
	RequiredRuleMessage  *string
	ValidateOnProcess    *bool
	HidePrimaryKey       *bool
	CreateSubmit         *bool
	SubmitText           *string
	ElementNamePrefix    *string
	ElementNamePostfix   *string
	LinkDisplayLevel     *int

	// FieldLabels maps column names to labels
	FieldLabels map[string]string

	// FieldsToRender limits the rendered columns. Primary keys always render.
	FieldsToRender []string

	// UserEditableFields lists the editable columns; all others are frozen.
	// Nil means every column is editable.
	UserEditableFields []string

	// PreDefOrder orders the fields. Fields it does not name follow.
	PreDefOrder []string

	// PreDefGroups maps fields to the group they are rendered in. The entry
	// for "__submit__" names the group the submit button joins.
	PreDefGroups map[string]string

	// PreDefElements replaces the generated element of a column
	PreDefElements map[string]*widget.Element

	// SelectAddEmpty lists link and enum columns that get an empty option
	SelectAddEmpty []string

	DateFields []string
	TimeFields []string
	TextFields []string
	EnumFields []string

	// EnumOptions lists the choices of enum fields
	EnumOptions map[string][]string

	CrossLinks  []CrossLink
	TripleLinks []TripleLink

	// LinkDisplayFields and LinkOrderFields decide how rows of this table
	// are labelled and ordered when another table links to it
	LinkDisplayFields []string
	LinkOrderFields   []string

	// LinkElementTypes maps link and enum columns to "select" or "radio"
	LinkElementTypes map[string]string

	// FieldAttributes holds HTML attributes per column
	FieldAttributes map[string]map[string]string
}

// Hooks are optional callbacks run around generation and processing
type Hooks struct {
	PreGenerate  func(ctx context.Context, b *Builder) error
	PostGenerate func(ctx context.Context, form widget.Form, b *Builder) error
	PreProcess   func(ctx context.Context, values map[string]any, b *Builder) error
	PostProcess  func(ctx context.Context, values map[string]any, b *Builder) error

	// Validate replaces the record's own validation
	Validate func(ctx context.Context, rec record.Record) map[string]string

	// GetForm builds the whole form, bypassing generation
	GetForm func(ctx context.Context, b *Builder) (widget.Form, error)

	// DateOptions returns extra attributes for the date element of field
	DateOptions func(field string) map[string]string

	// Setters write a submitted value in place of Record.Set
	Setters map[string]func(rec record.Record, value any) error
}

// settings is the effective configuration for one table
type settings struct {
	Options

	FieldLabels        map[string]string
	FieldsToRender     []string
	UserEditableFields []string
	PreDefOrder        []string
	PreDefGroups       map[string]string
	PreDefElements     map[string]*widget.Element
	SelectAddEmpty     []string
	DateFields         []string
	TimeFields         []string
	TextFields         []string
	EnumFields         []string
	EnumOptions        map[string][]string
	CrossLinks         []CrossLink
	TripleLinks        []TripleLink
	LinkElementTypes   map[string]string
	FieldAttributes    map[string]map[string]string
}

func resolveSettings(opts Options, table string) settings {
	ov := opts.Tables[table]
	s := settings{
		Options:            opts,
		FieldLabels:        ov.FieldLabels,
		FieldsToRender:     ov.FieldsToRender,
		UserEditableFields: ov.UserEditableFields,
		PreDefOrder:        ov.PreDefOrder,
		PreDefGroups:       ov.PreDefGroups,
		PreDefElements:     ov.PreDefElements,
		SelectAddEmpty:     ov.SelectAddEmpty,
		DateFields:         ov.DateFields,
		TimeFields:         ov.TimeFields,
		TextFields:         ov.TextFields,
		EnumFields:         ov.EnumFields,
		EnumOptions:        ov.EnumOptions,
		CrossLinks:         ov.CrossLinks,
		TripleLinks:        ov.TripleLinks,
		LinkElementTypes:   ov.LinkElementTypes,
		FieldAttributes:    ov.FieldAttributes,
	}

	if ov.AddFormHeader != nil {
		s.AddFormHeader = *ov.AddFormHeader
	}
	if ov.FormHeaderText != nil {
		s.FormHeaderText = *ov.FormHeaderText
	}
	if ov.RuleViolationMessage != nil {
		s.RuleViolationMessage = *ov.RuleViolationMessage
	}
	if ov.RequiredRuleMessage != nil {
		s.RequiredRuleMessage = *ov.RequiredRuleMessage
	}
	if ov.ValidateOnProcess != nil {
		s.ValidateOnProcess = *ov.ValidateOnProcess
	}
	if ov.HidePrimaryKey != nil {
		s.HidePrimaryKey = *ov.HidePrimaryKey
	}
	if ov.CreateSubmit != nil {
		s.CreateSubmit = *ov.CreateSubmit
	}
	if ov.SubmitText != nil {
		s.SubmitText = *ov.SubmitText
	}
	if ov.ElementNamePrefix != nil {
		s.ElementNamePrefix = *ov.ElementNamePrefix
	}
	if ov.ElementNamePostfix != nil {
		s.ElementNamePostfix = *ov.ElementNamePostfix
	}
	if ov.LinkDisplayLevel != nil {
		s.LinkDisplayLevel = *ov.LinkDisplayLevel
	}

	if s.DateFromStorage == nil {
		s.DateFromStorage = DateFromStorage
	}
	if s.DateToStorage == nil {
		s.DateToStorage = DateToStorage
	}
	if s.LinkDisplaySeparator == "" {
		s.LinkDisplaySeparator = ", "
	}

	return s
}
