package widget

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForm(t *testing.T) Form {
	t.Helper()

	tk, err := New("html")
	require.NoError(t, err)

	f := tk.NewForm("person")
	f.AddElement(NewElement(KindHidden, "id", "Id"))
	f.AddElement(NewElement(KindText, "name", "Name"))
	f.AddElement(NewElement(KindText, "age", "Age"))
	f.AddElement(NewElement(KindSelect, "gender_id", "Gender", WithOptions([]Option{
		{Value: "1", Label: "male"},
		{Value: "2", Label: "female"},
	})))
	f.AddElement(NewGroup("__crosslink_user_group", "Groups", []*Element{
		NewElement(KindCheckbox, MemberName("__crosslink_user_group", "1"), "admins", WithCheckedValue("1")),
		NewElement(KindCheckbox, MemberName("__crosslink_user_group", "2"), "staff", WithCheckedValue("2")),
	}, "<br>"))
	f.AddElement(NewMatrix("__tripleLink_perm", "Permissions",
		[]Option{{Value: "1", Label: "admins"}},
		[]Option{{Value: "r", Label: "read"}, {Value: "w", Label: "write"}}))
	return f
}

func TestNewToolkit(t *testing.T) {
	for _, name := range []string{"html", "json", "yaml"} {
		tk, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, tk.Name())
	}

	_, err := New("xul")
	assert.True(t, errors.Is(err, ErrUnknownToolkit))
}

func TestElementReachesIntoGroups(t *testing.T) {
	f := sampleForm(t)

	assert.NotNil(t, f.Element("name"))
	assert.NotNil(t, f.Element("__crosslink_user_group[2]"))
	assert.NotNil(t, f.Element("__tripleLink_perm[1][w]"))
	assert.Nil(t, f.Element("missing"))
}

func TestSetDefaults(t *testing.T) {
	f := sampleForm(t)

	f.SetDefaults(map[string]any{
		"id":                        int64(7),
		"name":                      "Bob",
		"gender_id":                 "2",
		"__crosslink_user_group[2]": "2",
		"__tripleLink_perm": map[string]any{
			"1": map[string]any{"w": "w"},
		},
	})

	assert.Equal(t, int64(7), f.Element("id").Value)
	assert.Equal(t, "Bob", f.Element("name").Value)
	assert.True(t, f.Element("gender_id").Selected("2"))
	assert.False(t, f.Element("gender_id").Selected("1"))
	assert.False(t, f.Element("__crosslink_user_group[1]").Checked())
	assert.True(t, f.Element("__crosslink_user_group[2]").Checked())
	assert.True(t, f.Element("__tripleLink_perm[1][w]").Checked())
	assert.False(t, f.Element("__tripleLink_perm[1][r]").Checked())
}

func TestFreeze(t *testing.T) {
	f := sampleForm(t)

	f.Freeze("name", "__crosslink_user_group")
	assert.True(t, f.Element("name").Frozen)
	assert.True(t, f.Element("__crosslink_user_group[1]").Frozen)
	assert.False(t, f.Element("age").Frozen)

	f.Freeze()
	assert.True(t, f.Element("age").Frozen)
	assert.True(t, f.Element("__tripleLink_perm[1][r]").Frozen)
}

func TestValidateRules(t *testing.T) {
	f := sampleForm(t)
	f.AddRule(Rule{Field: "name", Validator: RuleRequired, Message: "Name is required"})
	f.AddRule(Rule{Field: "age", Validator: RuleNumeric, Message: "Age must be a number"})
	f.AddRule(Rule{Field: "__crosslink_user_group", Validator: RuleRequired, Message: "Pick a group"})
	f.AddRule(Rule{Field: "name", Validator: RuleMaxLength, Param: "5", Message: "Name is too long"})

	assert.True(t, f.Element("name").Required)

	errs := f.Validate(map[string]any{"name": "  ", "age": "ten"})
	assert.Equal(t, map[string]string{
		"name":                   "Name is required",
		"age":                    "Age must be a number",
		"__crosslink_user_group": "Pick a group",
	}, errs)

	errs = f.Validate(map[string]any{"name": "Bob", "age": "", "__crosslink_user_group[1]": "1"})
	assert.Empty(t, errs)

	errs = f.Validate(map[string]any{"name": "Roberta", "__crosslink_user_group": map[string]any{"1": "1"}})
	assert.Equal(t, map[string]string{"name": "Name is too long"}, errs)

	f.Freeze("name")
	errs = f.Validate(map[string]any{"__crosslink_user_group[1]": "1"})
	assert.Empty(t, errs)
}

func TestRegexRule(t *testing.T) {
	f := HTML{}.NewForm("f")
	f.AddElement(NewElement(KindText, "code", "Code"))
	f.AddRule(Rule{Field: "code", Validator: RuleRegex, Param: `^[A-Z]{3}$`, Message: "bad code"})

	assert.Empty(t, f.Validate(map[string]any{"code": "ABC"}))
	assert.Equal(t, "bad code", f.Validate(map[string]any{"code": "abc"})["code"])
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{name: "plain", want: []string{"plain"}},
		{name: "a[b]", want: []string{"a", "b"}},
		{name: "a[b][c]", want: []string{"a", "b", "c"}},
		{name: "a[]", want: []string{"a", ""}},
		{name: "broken[x", want: []string{"broken[x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitName(tt.name))
		})
	}
}

func TestLookup(t *testing.T) {
	values := map[string]any{
		"flat[1]": "x",
		"nested":  map[string]any{"2": map[string]any{"3": "y"}},
	}

	v, ok := Lookup(values, "flat[1]")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	v, ok = Lookup(values, "nested[2][3]")
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	_, ok = Lookup(values, "nested[9]")
	assert.False(t, ok)
}

func TestElementText(t *testing.T) {
	sel := NewElement(KindSelect, "g", "G", Multiple(), WithValue([]string{"1", "2"}), WithOptions([]Option{
		{Value: "1", Label: "a"}, {Value: "2", Label: "b"}, {Value: "3", Label: "c"},
	}))
	assert.Equal(t, "a, b", sel.Text())

	date := NewElement(KindDate, "born", "Born", WithFormat("d-m-Y"), WithValue(DateParts{"d": "15", "m": "03", "Y": "2020"}))
	assert.Equal(t, "15-03-2020", date.Text())

	box := NewElement(KindCheckbox, "ok", "Ok", WithValue("0"))
	assert.Equal(t, "1", box.CheckedValue)
	assert.Equal(t, "[ ]", box.Text())
}
