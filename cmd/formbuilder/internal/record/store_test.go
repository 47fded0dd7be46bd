package record

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/database"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/ulid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	driver, err := database.NewDriver(database.Config{
		ConnectionString: filepath.Join(t.TempDir(), "forms.db"),
	})
	require.NoError(t, err)
	require.NoError(t, driver.Connect(context.Background()))
	t.Cleanup(func() { driver.Close() })

	statements := []string{
		`CREATE TABLE gender (id INTEGER PRIMARY KEY, name VARCHAR(50) NOT NULL)`,
		`CREATE TABLE person (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			born DATE,
			active BOOLEAN,
			mood TEXT CHECK (mood IN ('happy', 'sad')),
			gender_id INTEGER REFERENCES gender(id)
		)`,
		`CREATE TABLE team (code TEXT PRIMARY KEY, label TEXT)`,
		`CREATE TABLE user_group (user_id INTEGER NOT NULL REFERENCES person(id), group_id INTEGER NOT NULL REFERENCES gender(id))`,
		`INSERT INTO gender (id, name) VALUES (1, 'male'), (2, 'female')`,
	}
	for _, stmt := range statements {
		_, err := driver.Exec(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}

	return NewStore(driver, registry.NewSchemaRegistry(), nil)
}

func TestStoreTableIsCached(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	table, err := store.Table(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, "id", table.PrimaryKey())
	assert.True(t, store.registry.Exists("person"))

	_, err = store.Table(ctx, "missing")
	assert.Error(t, err)

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gender", "person", "team", "user_group"}, tables)
}

func TestInsertAutoIncrement(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.New(ctx, "person")
	require.NoError(t, err)

	rec.Set("id", "")
	rec.Set("name", "Bob")
	rec.Set("born", "2020-03-15")
	rec.Set("gender_id", int64(2))
	rec.Set("nonsense", "ignored")
	require.NoError(t, rec.Insert(ctx))

	id, ok := rec.Get("id").(int64)
	require.True(t, ok, "expected generated int64 key, got %T", rec.Get("id"))
	assert.Positive(t, id)
	assert.Nil(t, rec.Get("nonsense"))

	loaded, err := store.Get(ctx, "person", id)
	require.NoError(t, err)
	assert.Equal(t, "Bob", loaded.Get("name"))
	assert.Equal(t, "2020-03-15", loaded.Get("born"))
	assert.Equal(t, int64(2), loaded.Get("gender_id"))
}

func TestInsertTextKeyGetsULID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.New(ctx, "team")
	require.NoError(t, err)
	rec.Set("label", "Blue")
	require.NoError(t, rec.Insert(ctx))

	code, _ := rec.Get("code").(string)
	assert.Len(t, code, ulid.Length, "expected ULID key, got %q", code)
}

func TestFindFilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows, err := store.Find(ctx, "gender", nil, []string{"name DESC"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "male", rows[0].Get("name"))
	assert.Equal(t, "female", rows[1].Get("name"))

	rows, err = store.Find(ctx, "gender", map[string]any{"name": "female"}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Get("id"))

	_, err = store.Find(ctx, "gender", map[string]any{"nope": 1}, nil)
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	_, err = store.Find(ctx, "gender", nil, []string{"nope"})
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	_, err = store.Find(ctx, "gender", nil, []string{"name; DROP TABLE gender"})
	assert.Error(t, err)
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "gender", 99)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Get(context.Background(), "user_group", 1)
	assert.True(t, errors.Is(err, ErrNoPrimaryKey))
}

func TestUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.Get(ctx, "gender", 1)
	require.NoError(t, err)

	rec.Set("name", "man")
	require.NoError(t, rec.Update(ctx))

	reloaded, err := store.Get(ctx, "gender", 1)
	require.NoError(t, err)
	assert.Equal(t, "man", reloaded.Get("name"))

	fresh, err := store.New(ctx, "gender")
	require.NoError(t, err)
	fresh.Set("name", "x")
	assert.True(t, errors.Is(fresh.Update(ctx), ErrNoPrimaryKey))
}

func TestDeleteJunctionRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, groupID := range []int64{1, 2} {
		link, err := store.New(ctx, "user_group")
		require.NoError(t, err)
		link.Set("user_id", int64(7))
		link.Set("group_id", groupID)
		require.NoError(t, link.Insert(ctx))
	}

	rows, err := store.Find(ctx, "user_group", map[string]any{"user_id": int64(7)}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, rows[0].Delete(ctx))

	rows, err = store.Find(ctx, "user_group", map[string]any{"user_id": int64(7)}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	empty, err := store.New(ctx, "user_group")
	require.NoError(t, err)
	assert.Error(t, empty.Delete(ctx))
}

func TestEnumValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	values, err := store.EnumValues(ctx, "person", "mood")
	require.NoError(t, err)
	assert.Equal(t, []string{"happy", "sad"}, values)

	_, err = store.EnumValues(ctx, "person", "name")
	assert.Error(t, err)

	_, err = store.EnumValues(ctx, "person", "nope")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestRowValidate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.New(ctx, "person")
	require.NoError(t, err)

	row := rec.(*Row)
	rec.Set("gender_id", "two")
	errs := row.Validate(ctx)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "gender_id")

	rec.Set("name", "Bob")
	rec.Set("gender_id", int64(2))
	assert.Empty(t, row.Validate(ctx))
}

func TestRowValidateDeclaredLength(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.New(ctx, "gender")
	require.NoError(t, err)

	rec.Set("name", strings.Repeat("x", 51))
	assert.Contains(t, rec.(*Row).Validate(ctx), "name")

	rec.Set("name", strings.Repeat("x", 50))
	assert.Empty(t, rec.(*Row).Validate(ctx))
}

func TestDeclaredLength(t *testing.T) {
	tests := []struct {
		dbType string
		want   int
		ok     bool
	}{
		{"VARCHAR(100)", 100, true},
		{"varchar(20) character set utf8", 20, true},
		{"CHAR( 2 )", 2, true},
		{"TEXT", 0, false},
		{"DECIMAL(10,2)", 0, false},
		{"character varying", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			n, ok := declaredLength(tt.dbType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	boolCol := registry.Column{Name: "active", Flags: registry.FlagBool}
	intCol := registry.Column{Name: "n", Flags: registry.FlagInt}

	assert.Equal(t, true, normalizeValue(int64(1), boolCol))
	assert.Equal(t, false, normalizeValue([]byte("0"), boolCol))
	assert.Equal(t, int64(42), normalizeValue([]byte("42"), intCol))
	assert.Equal(t, "abc", normalizeValue([]byte("abc"), registry.Column{Flags: registry.FlagString}))
	assert.Nil(t, normalizeValue(nil, intCol))
}
