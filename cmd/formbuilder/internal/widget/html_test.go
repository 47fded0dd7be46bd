package widget

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLRender(t *testing.T) {
	f := sampleForm(t)
	f.AddElement(NewElement(KindTextarea, "bio", "Bio", WithAttributes(map[string]string{"rows": "4", "bad attr": "x"})))
	f.AddElement(NewElement(KindSubmit, "__submit__", "Save"))
	f.SetDefaults(map[string]any{
		"id":                        int64(7),
		"name":                      `Bob "the builder" <b>`,
		"gender_id":                 "2",
		"__crosslink_user_group[1]": "1",
		"bio":                       "line one\nline two",
	})
	f.AddRule(Rule{Field: "name", Validator: RuleRequired, Message: "required"})

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, `<form name="person"`)
	assert.Contains(t, out, `<input type="hidden" name="id" value="7">`)
	assert.Contains(t, out, `fb-required`)
	assert.Contains(t, out, `value="Bob &#34;the builder&#34; &lt;b&gt;"`)
	assert.Contains(t, out, `<option value="2" selected>female</option>`)
	assert.Contains(t, out, `<option value="1">male</option>`)
	assert.Contains(t, out, `name="__crosslink_user_group[1]" value="1" checked`)
	assert.Contains(t, out, `<br>`)
	assert.Contains(t, out, `<textarea name="bio" rows="4">line one`)
	assert.NotContains(t, out, "bad attr")
	assert.Contains(t, out, `<th>write</th>`)
	assert.Contains(t, out, `name="__tripleLink_perm[1][w]"`)
	assert.Contains(t, out, `<input type="submit" name="__submit__" value="Save">`)
}

func TestHTMLRenderFrozen(t *testing.T) {
	f := sampleForm(t)
	f.SetDefaults(map[string]any{"id": 7, "name": "Bob", "gender_id": "1"})
	f.Freeze("id", "name", "gender_id")

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, `<span class="fb-frozen">Bob</span>`)
	assert.Contains(t, out, `<span class="fb-frozen">male</span>`)
	assert.NotContains(t, out, `name="name"`)
	assert.Contains(t, out, `<input type="hidden" name="id" value="7">`)
}

func TestHTMLRenderDate(t *testing.T) {
	f := HTML{}.NewForm("f")
	f.AddElement(NewElement(KindDate, "born", "Born", WithFormat("d-m-Y"),
		WithAttributes(map[string]string{"minYear": "2019", "maxYear": "2021"}),
		WithValue(DateParts{"d": "15", "m": "03", "Y": "2020"})))

	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, `<select name="born[d]">`)
	assert.Contains(t, out, `<option value="15" selected>15</option>`)
	assert.Contains(t, out, `<option value="03" selected>03</option>`)
	assert.Contains(t, out, `<option value="2020" selected>2020</option>`)
	assert.NotContains(t, out, `<option value="2018"`)
	assert.Equal(t, 2, strings.Count(out, "</select>-"))
}

func TestDateFieldsWidenYearRange(t *testing.T) {
	el := NewElement(KindDate, "born", "Born", WithFormat("Y"),
		WithAttributes(map[string]string{"minYear": "2000", "maxYear": "2001"}),
		WithValue(DateParts{"Y": "1990"}))

	fields := dateFields(el)
	require.Len(t, fields, 1)
	assert.Equal(t, "1990", fields[0].Options[1].Value)
}
