package formbuilder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

var (
	// ErrNoPrimaryKey is returned when a junction relationship is used on a
	// table without a primary key
	ErrNoPrimaryKey = errors.New("owning table has no primary key")

	// ErrInvalidRelationship is returned when a junction declaration cannot
	// be resolved against the junction table's foreign keys
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrUnsupportedJunction is returned when the foreign keys of a junction
	// table leave the missing columns ambiguous
	ErrUnsupportedJunction = errors.New("unsupported junction table")
)

// NormalizeCrossLink fills in the from and to columns of a cross link that
// were not declared, using the junction table's foreign keys
func NormalizeCrossLink(owner, junction *registry.Table, link CrossLink) (CrossLink, error) {
	cols, err := resolveJunction(owner, junction, link.FromField, []string{link.ToField})
	if err != nil {
		return link, err
	}
	link.FromField, link.ToField = cols[0], cols[1]
	if link.Type == "" {
		link.Type = CrossLinkCheckbox
	}
	return link, nil
}

// NormalizeTripleLink fills in the from and to columns of a triple link
// that were not declared, using the junction table's foreign keys
func NormalizeTripleLink(owner, junction *registry.Table, link TripleLink) (TripleLink, error) {
	cols, err := resolveJunction(owner, junction, link.FromField, []string{link.ToField1, link.ToField2})
	if err != nil {
		return link, err
	}
	link.FromField, link.ToField1, link.ToField2 = cols[0], cols[1], cols[2]
	return link, nil
}

// resolveJunction returns the from column followed by the to columns. The
// from column is the first foreign key referencing the owner; missing to
// columns take the remaining foreign keys in declaration order.
func resolveJunction(owner, junction *registry.Table, from string, to []string) ([]string, error) {
	if len(owner.PrimaryKeys) == 0 {
		return nil, fmt.Errorf("junction %s of %s: %w", junction.Name, owner.Name, ErrNoPrimaryKey)
	}

	used := make(map[string]bool)
	for _, col := range append([]string{from}, to...) {
		if col == "" {
			continue
		}
		if _, ok := junction.Link(col); !ok {
			return nil, fmt.Errorf("%w: %s.%s is not a foreign key", ErrInvalidRelationship, junction.Name, col)
		}
		if used[col] {
			return nil, fmt.Errorf("%w: %s.%s is declared twice", ErrInvalidRelationship, junction.Name, col)
		}
		used[col] = true
	}

	needed := 1 + len(to)
	if len(junction.Links) < needed {
		return nil, fmt.Errorf("%w: %s has %d foreign keys, %d required",
			ErrInvalidRelationship, junction.Name, len(junction.Links), needed)
	}

	if from == "" {
		for _, l := range junction.Links {
			if !used[l.Column] && l.Table == owner.Name {
				from = l.Column
				break
			}
		}
		if from == "" {
			return nil, fmt.Errorf("%w: no foreign key of %s references %s", ErrInvalidRelationship, junction.Name, owner.Name)
		}
		used[from] = true
	}

	var remaining []string
	for _, l := range junction.Links {
		if !used[l.Column] {
			remaining = append(remaining, l.Column)
		}
	}

	resolved := append([]string{from}, to...)
	missing := 0
	for _, col := range to {
		if col == "" {
			missing++
		}
	}
	if missing == 0 {
		return resolved, nil
	}
	if len(remaining) > missing {
		return nil, fmt.Errorf("%w: %s has %d candidate foreign keys for %d columns",
			ErrUnsupportedJunction, junction.Name, len(remaining), missing)
	}
	if len(remaining) < missing {
		return nil, fmt.Errorf("%w: %s lacks foreign keys for %d columns", ErrInvalidRelationship, junction.Name, missing)
	}

	for i := 1; i < len(resolved); i++ {
		if resolved[i] == "" {
			resolved[i], remaining = remaining[0], remaining[1:]
		}
	}
	return resolved, nil
}

// junctionRows returns the rows of junction that belong to the owner key
func junctionRows(ctx context.Context, source record.Source, junction, from string, key any) ([]record.Record, error) {
	if isEmptyKey(key) {
		return nil, nil
	}
	rows, err := source.Find(ctx, junction, map[string]any{from: key}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read junction %s: %w", junction, err)
	}
	return rows, nil
}

// SelectedKeys returns the sorted to-column values of the junction rows
// whose from column equals key
func SelectedKeys(ctx context.Context, source record.Source, link CrossLink, key any) ([]string, error) {
	rows, err := junctionRows(ctx, source, link.Table, link.FromField, key)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		if v := row.Get(link.ToField); v != nil {
			set[keyString(v)] = true
		}
	}
	return sortedKeys(set), nil
}

// SelectedPairs returns the selected to-field-2 values of a triple link,
// grouped by to-field-1 value
func SelectedPairs(ctx context.Context, source record.Source, link TripleLink, key any) (map[string][]string, error) {
	rows, err := junctionRows(ctx, source, link.Table, link.FromField, key)
	if err != nil {
		return nil, err
	}

	sets := make(map[string]map[string]bool)
	for _, row := range rows {
		first, second := row.Get(link.ToField1), row.Get(link.ToField2)
		if first == nil || second == nil {
			continue
		}
		k := keyString(first)
		if sets[k] == nil {
			sets[k] = make(map[string]bool)
		}
		sets[k][keyString(second)] = true
	}

	pairs := make(map[string][]string, len(sets))
	for k, set := range sets {
		pairs[k] = sortedKeys(set)
	}
	return pairs, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// typedKey converts a submitted key to the type of a junction column
func typedKey(table *registry.Table, column, key string) any {
	if col, ok := table.Column(column); ok && col.Flags.Has(registry.FlagInt) {
		if n, err := strconv.ParseInt(key, 10, 64); err == nil {
			return n
		}
	}
	return key
}

func isEmptyKey(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case int64:
		return t == 0
	case int:
		return t == 0
	}
	return false
}

// relationships normalizes the declared junction relationships once per
// builder. Failures abort generation and processing.
func (b *Builder) relationships(ctx context.Context) error {
	if b.normalized {
		return nil
	}

	owner := b.record.Schema()
	triples := make([]TripleLink, 0, len(b.settings.TripleLinks))
	for _, decl := range b.settings.TripleLinks {
		junction, err := b.schema(ctx, decl.Table)
		if err != nil {
			return fmt.Errorf("triple link %s: %w", decl.Table, err)
		}
		link, err := NormalizeTripleLink(owner, junction, decl)
		if err != nil {
			return err
		}
		triples = append(triples, link)
	}

	crosses := make([]CrossLink, 0, len(b.settings.CrossLinks))
	for _, decl := range b.settings.CrossLinks {
		junction, err := b.schema(ctx, decl.Table)
		if err != nil {
			return fmt.Errorf("cross link %s: %w", decl.Table, err)
		}
		link, err := NormalizeCrossLink(owner, junction, decl)
		if err != nil {
			return err
		}
		crosses = append(crosses, link)
	}

	b.tripleLinks, b.crossLinks = triples, crosses
	b.normalized = true
	return nil
}

func (b *Builder) crossLink(field string) *CrossLink {
	for i := range b.crossLinks {
		if CrossLinkName(b.crossLinks[i].Table) == field {
			return &b.crossLinks[i]
		}
	}
	return nil
}

func (b *Builder) tripleLink(field string) *TripleLink {
	for i := range b.tripleLinks {
		if TripleLinkName(b.tripleLinks[i].Table) == field {
			return &b.tripleLinks[i]
		}
	}
	return nil
}

// schema loads the schema of another table through the record source
func (b *Builder) schema(ctx context.Context, table string) (*registry.Table, error) {
	rec, err := b.source.New(ctx, table)
	if err != nil {
		return nil, err
	}
	return rec.Schema(), nil
}
