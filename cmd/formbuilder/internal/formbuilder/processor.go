package formbuilder

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
)

// Process writes submitted values to the record and reconciles its junction
// relationships. It reports whether a database write happened. Values for
// fields that are not editable, or that the table does not have, are
// ignored. When validation is enabled and fails, nothing is written and the
// errors are available from ValidationErrors.
func (b *Builder) Process(ctx context.Context, values map[string]any) (bool, error) {
	if err := b.relationships(ctx); err != nil {
		return false, err
	}

	if b.hooks.PreProcess != nil {
		if err := b.hooks.PreProcess(ctx, values, b); err != nil {
			return false, err
		}
	}

	submitted := b.unwrapValues(values, b.naturalFields())
	if err := b.assign(submitted); err != nil {
		return false, err
	}

	b.validationErrors = nil
	if b.settings.ValidateOnProcess {
		if errs := b.validate(ctx); len(errs) > 0 {
			b.validationErrors = errs
			b.logger.WithField("fields", len(errs)).Debug("validation failed, record not written")
			return false, b.postProcess(ctx, values)
		}
	}

	table := b.record.Schema()
	if table.PrimaryKey() == "" {
		b.logger.Debug("table has no primary key, record not written")
		return false, nil
	}

	written, err := b.write(ctx)
	if err != nil {
		return false, err
	}
	if !written {
		return false, b.postProcess(ctx, values)
	}

	if err := b.reconcile(ctx, submitted); err != nil {
		return true, err
	}

	return true, b.postProcess(ctx, values)
}

// assign sets the editable submitted columns on the record
func (b *Builder) assign(submitted map[string]any) error {
	table := b.record.Schema()
	for _, col := range table.Columns {
		value, ok := submitted[col.Name]
		if !ok || b.frozen(col.Name) {
			continue
		}
		// an existing row keeps its key
		if table.IsPrimaryKey(col.Name) && !isEmptyKey(b.record.Get(col.Name)) {
			continue
		}

		value = b.convertValue(col, value)
		if setter := b.hooks.Setters[col.Name]; setter != nil {
			if err := setter(b.record, value); err != nil {
				return fmt.Errorf("failed to set %s: %w", col.Name, err)
			}
			continue
		}
		b.record.Set(col.Name, value)
	}
	return nil
}

func (b *Builder) validate(ctx context.Context) map[string]string {
	if b.hooks.Validate != nil {
		return b.hooks.Validate(ctx, b.record)
	}
	if v, ok := b.record.(record.Validator); ok {
		return v.Validate(ctx)
	}
	return nil
}

// write inserts or updates the record. Without a forced query type an
// empty primary key means insert.
func (b *Builder) write(ctx context.Context) (bool, error) {
	qt := b.queryType
	if qt == QueryAuto {
		qt = QueryUpdate
		if isEmptyKey(b.record.Get(b.record.Schema().PrimaryKey())) {
			qt = QueryInsert
		}
	}

	switch qt {
	case QueryInsert:
		if err := b.record.Insert(ctx); err != nil {
			return false, err
		}
	case QueryUpdate:
		if err := b.record.Update(ctx); err != nil {
			return false, err
		}
	default:
		return false, nil
	}

	b.logger.Debugf("record written (%s)", qt)
	return true, nil
}

// reconcile brings the junction tables in line with the submitted
// selections, triple links first. Relationships that are not rendered or
// not editable are left alone.
func (b *Builder) reconcile(ctx context.Context, submitted map[string]any) error {
	rendered := b.renderFields()
	active := func(field string) bool {
		return slices.Contains(rendered, field) && !b.frozen(field)
	}
	key := b.record.Get(b.record.Schema().PrimaryKey())

	for _, link := range b.tripleLinks {
		if field := TripleLinkName(link.Table); active(field) {
			if err := b.syncTripleLink(ctx, link, submittedPairs(submitted[field]), key); err != nil {
				return err
			}
		}
	}
	for _, link := range b.crossLinks {
		if field := CrossLinkName(link.Table); active(field) {
			if err := b.syncCrossLink(ctx, link, submittedKeys(submitted[field]), key); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncCrossLink deletes the junction rows whose key was deselected and
// inserts rows for newly selected keys. Rows that stay selected are not
// touched.
func (b *Builder) syncCrossLink(ctx context.Context, link CrossLink, want map[string]bool, key any) error {
	rows, err := junctionRows(ctx, b.source, link.Table, link.FromField, key)
	if err != nil {
		return err
	}

	have := make(map[string]bool, len(rows))
	for _, row := range rows {
		k := keyString(row.Get(link.ToField))
		if want[k] && !have[k] {
			have[k] = true
			continue
		}
		if err := row.Delete(ctx); err != nil {
			return fmt.Errorf("failed to unlink %s %s: %w", link.Table, k, err)
		}
	}

	junction, err := b.schema(ctx, link.Table)
	if err != nil {
		return err
	}
	for _, k := range sortedKeys(want) {
		if have[k] {
			continue
		}
		row, err := b.source.New(ctx, link.Table)
		if err != nil {
			return err
		}
		row.Set(link.FromField, key)
		row.Set(link.ToField, typedKey(junction, link.ToField, k))
		if err := row.Insert(ctx); err != nil {
			return fmt.Errorf("failed to link %s %s: %w", link.Table, k, err)
		}
	}

	b.logger.Debugf("synchronized %s: %d selected", link.Table, len(want))
	return nil
}

func (b *Builder) syncTripleLink(ctx context.Context, link TripleLink, want map[pair]bool, key any) error {
	rows, err := junctionRows(ctx, b.source, link.Table, link.FromField, key)
	if err != nil {
		return err
	}

	have := make(map[pair]bool, len(rows))
	for _, row := range rows {
		p := pair{keyString(row.Get(link.ToField1)), keyString(row.Get(link.ToField2))}
		if want[p] && !have[p] {
			have[p] = true
			continue
		}
		if err := row.Delete(ctx); err != nil {
			return fmt.Errorf("failed to unlink %s %s/%s: %w", link.Table, p.first, p.second, err)
		}
	}

	junction, err := b.schema(ctx, link.Table)
	if err != nil {
		return err
	}

	added := make([]pair, 0, len(want))
	for p := range want {
		if !have[p] {
			added = append(added, p)
		}
	}
	slices.SortFunc(added, func(x, y pair) int {
		if x.first != y.first {
			return cmp.Compare(x.first, y.first)
		}
		return cmp.Compare(x.second, y.second)
	})

	for _, p := range added {
		row, err := b.source.New(ctx, link.Table)
		if err != nil {
			return err
		}
		row.Set(link.FromField, key)
		row.Set(link.ToField1, typedKey(junction, link.ToField1, p.first))
		row.Set(link.ToField2, typedKey(junction, link.ToField2, p.second))
		if err := row.Insert(ctx); err != nil {
			return fmt.Errorf("failed to link %s %s/%s: %w", link.Table, p.first, p.second, err)
		}
	}
	return nil
}

func (b *Builder) postProcess(ctx context.Context, values map[string]any) error {
	if b.hooks.PostProcess == nil {
		return nil
	}
	return b.hooks.PostProcess(ctx, values, b)
}
