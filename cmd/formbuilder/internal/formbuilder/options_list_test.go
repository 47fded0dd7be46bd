package formbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

func TestTableOptionsFollowsLinks(t *testing.T) {
	tests := []struct {
		name  string
		level int
		want  string
	}{
		{name: "no hops", level: 0, want: "Paris, 1"},
		{name: "one hop", level: 1, want: "Paris, (France)"},
		{name: "capped", level: 99, want: "Paris, (France)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFixture()
			opts := DefaultOptions()
			opts.LinkDisplayFields = []string{"name", "country_id"}
			opts.LinkDisplayLevel = tt.level

			b := newBuilder(t, src, load(t, src, "person", 1), opts, Hooks{})
			got := b.TableOptions(context.Background(), "city", "", nil, nil, false)
			assert.Equal(t, []widget.Option{{Value: "1", Label: tt.want}}, got)
		})
	}
}

func TestTableOptionsMissingLinkedRow(t *testing.T) {
	src := newFixture()
	src.seed("city", map[string]any{"id": int64(2), "name": "Atlantis", "country_id": int64(9)})

	opts := DefaultOptions()
	opts.LinkDisplayFields = []string{"name", "country_id"}
	opts.LinkDisplayLevel = 2

	b := newBuilder(t, src, load(t, src, "person", 1), opts, Hooks{})
	got := b.TableOptions(context.Background(), "city", "", nil, nil, false)
	assert.Equal(t, []widget.Option{
		{Value: "2", Label: "Atlantis, 9"},
		{Value: "1", Label: "Paris, (France)"},
	}, got)
}

func TestTableOptionsExplicitColumns(t *testing.T) {
	src := newFixture()
	b := newBuilder(t, src, load(t, src, "person", 1), DefaultOptions(), Hooks{})

	got := b.TableOptions(context.Background(), "group", "name", []string{"name"}, []string{"name DESC"}, true)
	assert.Equal(t, []widget.Option{
		{},
		{Value: "staff", Label: "staff"},
		{Value: "guests", Label: "guests"},
		{Value: "admins", Label: "admins"},
	}, got)

	got = b.TableOptions(context.Background(), "group", "", []string{"missing"}, nil, false)
	assert.Equal(t, []widget.Option{
		{Value: "1", Label: "1"},
		{Value: "2", Label: "2"},
		{Value: "3", Label: "3"},
	}, got, "unknown display columns fall back to the primary key")
}

func TestTableOptionsPerTableSettings(t *testing.T) {
	src := newFixture()
	opts := DefaultOptions()
	opts.LinkDisplayFields = []string{"id"}
	opts = withTable(opts, "group", Overrides{
		LinkDisplayFields: []string{"name"},
		LinkOrderFields:   []string{"id DESC"},
	})

	b := newBuilder(t, src, load(t, src, "person", 1), opts, Hooks{})
	got := b.TableOptions(context.Background(), "group", "", nil, nil, false)
	assert.Equal(t, []widget.Option{
		{Value: "3", Label: "guests"},
		{Value: "2", Label: "staff"},
		{Value: "1", Label: "admins"},
	}, got)
}

func TestTableOptionsFailures(t *testing.T) {
	src := newFixture()
	b := newBuilder(t, src, load(t, src, "person", 1), DefaultOptions(), Hooks{})
	ctx := context.Background()

	assert.Empty(t, b.TableOptions(ctx, "nowhere", "", nil, nil, false))
	assert.Equal(t, []widget.Option{{}}, b.TableOptions(ctx, "nowhere", "", nil, nil, true))
	assert.Empty(t, b.TableOptions(ctx, "log", "", nil, nil, false))

	assert.Len(t, b.Warnings(), 2)
	assert.Contains(t, b.Warnings()[0], "cannot list options of nowhere")
	assert.Contains(t, b.Warnings()[1], "cannot list options of log: no primary key")
}
