package formbuilder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

func idColumn() registry.Column {
	return registry.Column{Name: "id", Flags: registry.FlagInt | registry.FlagNotNull, PrimaryKey: true, AutoIncrement: true}
}

func nameColumn() registry.Column {
	return registry.Column{Name: "name", Flags: registry.FlagString | registry.FlagNotNull}
}

func keyColumn(name string) registry.Column {
	return registry.Column{Name: name, Flags: registry.FlagInt | registry.FlagNotNull}
}

func lookupTable(name string) *registry.Table {
	return &registry.Table{
		Name:        name,
		Columns:     []registry.Column{idColumn(), nameColumn()},
		PrimaryKeys: []string{"id"},
	}
}

func personTable() *registry.Table {
	return &registry.Table{
		Name: "person",
		Columns: []registry.Column{
			idColumn(),
			nameColumn(),
			{Name: "bio", Flags: registry.FlagString | registry.FlagText, Nullable: true},
			{Name: "born", Flags: registry.FlagDate, Nullable: true},
			{Name: "gender_id", Flags: registry.FlagInt, Nullable: true},
			{Name: "mood", Flags: registry.FlagString, Nullable: true, EnumValues: []string{"happy", "sad"}},
		},
		PrimaryKeys: []string{"id"},
		Links:       []registry.Link{{Column: "gender_id", Table: "gender", TargetColumn: "id"}},
	}
}

func userGroupTable() *registry.Table {
	return &registry.Table{
		Name:    "user_group",
		Columns: []registry.Column{keyColumn("user_id"), keyColumn("group_id")},
		Links: []registry.Link{
			{Column: "user_id", Table: "user", TargetColumn: "id"},
			{Column: "group_id", Table: "group", TargetColumn: "id"},
		},
	}
}

func userGroupPermTable() *registry.Table {
	return &registry.Table{
		Name:    "user_group_perm",
		Columns: []registry.Column{keyColumn("user_id"), keyColumn("group_id"), keyColumn("perm_id")},
		Links: []registry.Link{
			{Column: "user_id", Table: "user", TargetColumn: "id"},
			{Column: "group_id", Table: "group", TargetColumn: "id"},
			{Column: "perm_id", Table: "perm", TargetColumn: "id"},
		},
	}
}

func cityTable() *registry.Table {
	return &registry.Table{
		Name:        "city",
		Columns:     []registry.Column{idColumn(), nameColumn(), keyColumn("country_id")},
		PrimaryKeys: []string{"id"},
		Links:       []registry.Link{{Column: "country_id", Table: "country", TargetColumn: "id"}},
	}
}

func logTable() *registry.Table {
	return &registry.Table{
		Name:    "log",
		Columns: []registry.Column{{Name: "message", Flags: registry.FlagString}},
	}
}

// newFixture returns a source with people, users, groups and permissions.
// User 1 belongs to groups 1 and 2 and holds permission 2 in group 1.
func newFixture() *memSource {
	src := newMemSource(
		personTable(), lookupTable("gender"),
		lookupTable("user"), lookupTable("group"), lookupTable("perm"),
		userGroupTable(), userGroupPermTable(),
		cityTable(), lookupTable("country"), logTable(),
	)

	src.seed("gender",
		map[string]any{"id": int64(1), "name": "male"},
		map[string]any{"id": int64(2), "name": "female"},
	)
	src.seed("person", map[string]any{
		"id": int64(1), "name": "Alice", "bio": "likes\ncats", "born": "2020-03-15",
		"gender_id": int64(1), "mood": "happy",
	})
	src.seed("user", map[string]any{"id": int64(1), "name": "ann"})
	src.seed("group",
		map[string]any{"id": int64(1), "name": "admins"},
		map[string]any{"id": int64(2), "name": "staff"},
		map[string]any{"id": int64(3), "name": "guests"},
	)
	src.seed("perm",
		map[string]any{"id": int64(1), "name": "read"},
		map[string]any{"id": int64(2), "name": "write"},
	)
	src.seed("user_group",
		map[string]any{"user_id": int64(1), "group_id": int64(1)},
		map[string]any{"user_id": int64(1), "group_id": int64(2)},
	)
	src.seed("user_group_perm",
		map[string]any{"user_id": int64(1), "group_id": int64(1), "perm_id": int64(2)},
	)
	src.seed("country", map[string]any{"id": int64(1), "name": "France"})
	src.seed("city", map[string]any{"id": int64(1), "name": "Paris", "country_id": int64(1)})
	return src
}

func load(t *testing.T, src *memSource, table string, id int64) record.Record {
	t.Helper()
	rows, err := src.Find(context.Background(), table, map[string]any{"id": id}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func newBuilder(t *testing.T, src *memSource, rec record.Record, opts Options, hooks Hooks) *Builder {
	t.Helper()
	b, err := New(rec, src, opts, hooks)
	require.NoError(t, err)
	return b
}

func withTable(opts Options, table string, ov Overrides) Options {
	tables := make(map[string]Overrides, len(opts.Tables)+1)
	for k, v := range opts.Tables {
		tables[k] = v
	}
	tables[table] = ov
	opts.Tables = tables
	return opts
}

func ptr[T any](v T) *T {
	return &v
}

// fieldNames lists the names of the top level elements, leaving out the
// header and the submit button
func fieldNames(form widget.Form) []string {
	var names []string
	for _, el := range form.Elements() {
		if el.Kind == widget.KindHeader || el.Kind == widget.KindSubmit {
			continue
		}
		names = append(names, el.Name)
	}
	return names
}

func validators(form widget.Form, field string) []string {
	var out []string
	for _, rule := range form.Rules() {
		if rule.Field == field {
			out = append(out, rule.Validator)
		}
	}
	return out
}

// browserValues collects what a browser would submit for the form as
// rendered: ticked checkboxes and the current value of every other input
func browserValues(form widget.Form) map[string]any {
	values := make(map[string]any)
	for _, el := range form.Elements() {
		el.Walk(func(e *widget.Element) {
			switch {
			case e.Kind.IsContainer(), e.Kind == widget.KindHeader, e.Kind == widget.KindSubmit:
			case e.Kind == widget.KindCheckbox:
				if e.Checked() {
					values[e.Name] = e.CheckedValue
				}
			case e.Value != nil:
				values[e.Name] = e.Value
			}
		})
	}
	return values
}

func opsOn(src *memSource, table string) []string {
	var out []string
	for _, op := range src.ops {
		if _, rest, ok := strings.Cut(op, " "); ok && strings.HasPrefix(rest, table+" ") {
			out = append(out, op)
		}
	}
	return out
}
