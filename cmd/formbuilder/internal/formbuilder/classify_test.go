package formbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		in        FieldInput
		kind      FieldKind
		validator string
	}{
		{name: "integer", in: FieldInput{Flags: registry.FlagInt | registry.FlagNotNull}, kind: FieldInteger, validator: widget.RuleNumeric},
		{name: "datetime", in: FieldInput{Flags: registry.FlagDate | registry.FlagTime}, kind: FieldDateTime},
		{name: "date", in: FieldInput{Flags: registry.FlagDate}, kind: FieldDate},
		{name: "time", in: FieldInput{Flags: registry.FlagTime}, kind: FieldTime},
		{name: "text", in: FieldInput{Flags: registry.FlagString | registry.FlagText}, kind: FieldLongText},
		{name: "bool", in: FieldInput{Flags: registry.FlagBool}, kind: FieldLongText},
		{name: "string", in: FieldInput{Flags: registry.FlagString, Value: "one line"}, kind: FieldShortText},
		{name: "string with newline", in: FieldInput{Flags: registry.FlagString, Value: "two\nlines"}, kind: FieldLongText},
		{name: "no flags", in: FieldInput{}, kind: FieldShortText},
		{name: "hidden primary key", in: FieldInput{Flags: registry.FlagInt, PrimaryKey: true, HidePrimaryKey: true}, kind: FieldHidden},
		{name: "visible primary key", in: FieldInput{Flags: registry.FlagInt, PrimaryKey: true}, kind: FieldInteger, validator: widget.RuleNumeric},
		{name: "link", in: FieldInput{Flags: registry.FlagInt, Link: true}, kind: FieldReference},
		{name: "hidden key wins over link", in: FieldInput{Flags: registry.FlagInt, Link: true, PrimaryKey: true, HidePrimaryKey: true}, kind: FieldHidden},
		{name: "date override wins over hidden key", in: FieldInput{Flags: registry.FlagInt, DateField: true, PrimaryKey: true, HidePrimaryKey: true}, kind: FieldDate},
		{name: "date and time override", in: FieldInput{Flags: registry.FlagString, DateField: true, TimeField: true}, kind: FieldDateTime},
		{name: "time override", in: FieldInput{Flags: registry.FlagString, TimeField: true}, kind: FieldTime},
		{name: "text override", in: FieldInput{Flags: registry.FlagInt, TextField: true}, kind: FieldLongText},
		{name: "enum override wins over link", in: FieldInput{Flags: registry.FlagInt, EnumField: true, Link: true}, kind: FieldEnum},
		{name: "enumerated column", in: FieldInput{Flags: registry.FlagString, Enumerated: true}, kind: FieldEnum},
		{name: "link wins over enumerated column", in: FieldInput{Flags: registry.FlagString, Enumerated: true, Link: true}, kind: FieldReference},
		{name: "cross link", in: FieldInput{CrossLink: true}, kind: FieldCrossLink},
		{name: "triple link", in: FieldInput{TripleLink: true}, kind: FieldTripleLink},
		{name: "predefined wins", in: FieldInput{Predefined: true, DateField: true, PrimaryKey: true, HidePrimaryKey: true}, kind: FieldPredefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			assert.Equal(t, tt.kind, got.Kind, "kind %s", got.Kind)
			assert.Equal(t, tt.validator, got.Validator)

			// same input, same answer
			assert.Equal(t, got, Classify(tt.in))
		})
	}
}

func TestFieldKindString(t *testing.T) {
	assert.Equal(t, "reference", FieldReference.String())
	assert.Equal(t, "unknown", FieldKind(99).String())
	assert.True(t, FieldDateTime.IsDate())
	assert.False(t, FieldInteger.IsDate())
}

func TestBuilderClassifiesColumns(t *testing.T) {
	src := newFixture()
	opts := withTable(DefaultOptions(), "person", Overrides{TextFields: []string{"name"}})
	b := newBuilder(t, src, load(t, src, "person", 1), opts, Hooks{})

	want := map[string]FieldKind{
		"id":        FieldHidden,
		"name":      FieldLongText,
		"bio":       FieldLongText,
		"born":      FieldDate,
		"gender_id": FieldReference,
		"mood":      FieldEnum,
	}
	for field, kind := range want {
		assert.Equal(t, kind, b.classify(field).Kind, field)
	}
}
