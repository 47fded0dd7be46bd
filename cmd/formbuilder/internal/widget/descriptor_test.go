package widget

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func describedForm(t *testing.T, format string) Form {
	t.Helper()

	tk, err := New(format)
	require.NoError(t, err)

	f := tk.NewForm("person")
	f.AddElement(NewElement(KindText, "name", "Name"))
	f.AddElement(NewElement(KindSelect, "gender_id", "Gender", WithOptions([]Option{{Value: "1", Label: "male"}})))
	f.SetDefaults(map[string]any{"name": "Bob", "gender_id": "1"})
	f.AddRule(Rule{Field: "name", Validator: RuleRequired, Message: "Name is required"})
	return f
}

func TestDescriptorJSON(t *testing.T) {
	f := describedForm(t, FormatJSON)

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "person", doc.Name)
	require.Len(t, doc.Elements, 2)
	assert.Equal(t, KindText, doc.Elements[0].Kind)
	assert.Equal(t, "Bob", doc.Elements[0].Value)
	assert.True(t, doc.Elements[0].Required)
	assert.Equal(t, []Option{{Value: "1", Label: "male"}}, doc.Elements[1].Options)
	require.Len(t, doc.Rules, 1)
	assert.Equal(t, RuleRequired, doc.Rules[0].Validator)
}

func TestDescriptorYAML(t *testing.T) {
	f := describedForm(t, FormatYAML)

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "person", doc["name"])
	elements, ok := doc["elements"].([]any)
	require.True(t, ok)
	assert.Len(t, elements, 2)
	assert.Contains(t, buf.String(), "validator: required")
}
