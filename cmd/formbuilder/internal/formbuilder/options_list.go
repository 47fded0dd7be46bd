package formbuilder

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// TableOptions lists the rows of table as options. The option value is the
// row's keyColumn, or its primary key when keyColumn is empty. Display and
// order columns fall back to the table's configured link display and order
// fields when not given. Failures are reported as warnings and give an
// empty list.
func (b *Builder) TableOptions(ctx context.Context, table, keyColumn string, display, order []string, includeEmpty bool) []widget.Option {
	var options []widget.Option
	if includeEmpty {
		options = append(options, widget.Option{})
	}

	schema, err := b.schema(ctx, table)
	if err != nil {
		b.warn("cannot list options of %s: %v", table, err)
		return options
	}

	if keyColumn == "" {
		keyColumn = schema.PrimaryKey()
	}
	if keyColumn == "" {
		b.warn("cannot list options of %s: no primary key", table)
		return options
	}

	display = b.displayFields(schema, display)
	order = b.orderFields(table, display, order)

	rows, err := b.source.Find(ctx, table, nil, order)
	if err != nil {
		b.warn("cannot list options of %s: %v", table, err)
		return options
	}

	for _, row := range rows {
		options = append(options, widget.Option{
			Value: keyString(row.Get(keyColumn)),
			Label: b.displayValue(ctx, row, display, 0),
		})
	}
	return options
}

// displayFields applies the display column precedence: explicit, the
// table's own, the global default, then the primary key
func (b *Builder) displayFields(schema *registry.Table, explicit []string) []string {
	candidates := [][]string{
		explicit,
		b.opts.Tables[schema.Name].LinkDisplayFields,
		b.opts.LinkDisplayFields,
	}
	for _, fields := range candidates {
		if valid := existing(schema, fields); len(valid) > 0 {
			return valid
		}
	}
	return slices.Clone(schema.PrimaryKeys)
}

// orderFields applies the order column precedence: explicit, the table's
// own, the global default, then the display columns
func (b *Builder) orderFields(table string, display, explicit []string) []string {
	for _, fields := range [][]string{explicit, b.opts.Tables[table].LinkOrderFields, b.opts.LinkOrderFields} {
		if len(fields) > 0 {
			return fields
		}
	}
	return display
}

// displayValue joins the display columns of row. A display column that is a
// foreign key is replaced by the linked row's display value in parentheses
// while the link display level allows another hop.
func (b *Builder) displayValue(ctx context.Context, row record.Record, fields []string, level int) string {
	schema := row.Schema()
	maxLevel := min(b.settings.LinkDisplayLevel, constants.MaxLinkDisplayLevel)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		value := row.Get(field)
		if value == nil {
			parts = append(parts, "")
			continue
		}

		link, ok := schema.Link(field)
		if ok && maxLevel > level {
			if linked := b.linkedDisplay(ctx, link, value, level+1); linked != "" {
				parts = append(parts, "("+linked+")")
				continue
			}
		}
		parts = append(parts, fmt.Sprint(value))
	}
	return strings.Join(parts, b.settings.LinkDisplaySeparator)
}

func (b *Builder) linkedDisplay(ctx context.Context, link registry.Link, value any, level int) string {
	target, err := b.schema(ctx, link.Table)
	if err != nil {
		b.warn("cannot follow link %s.%s: %v", link.Table, link.TargetColumn, err)
		return ""
	}

	rows, err := b.source.Find(ctx, link.Table, map[string]any{link.TargetColumn: value}, nil)
	if err != nil || len(rows) == 0 {
		b.logger.Debugf("no %s row with %s = %v", link.Table, link.TargetColumn, value)
		return ""
	}
	return b.displayValue(ctx, rows[0], b.displayFields(target, nil), level)
}

// referenceOptions lists the options of a foreign key column
func (b *Builder) referenceOptions(ctx context.Context, field string) []widget.Option {
	link, ok := b.record.Schema().Link(field)
	if !ok {
		b.warn("no link declared for %s", field)
		return nil
	}
	return b.TableOptions(ctx, link.Table, link.TargetColumn, nil, nil, slices.Contains(b.settings.SelectAddEmpty, field))
}

// EnumOptions lists the choices of an enum field: configured options, then
// the options callback, then the values the record source reports
func (b *Builder) EnumOptions(ctx context.Context, field string) []widget.Option {
	values, err := b.enumValues(ctx, field)
	if err != nil {
		b.warn("cannot list enum values of %s: %v", field, err)
	}
	if len(values) == 0 && err == nil {
		b.warn("enum field %s has no options", field)
	}

	var options []widget.Option
	if slices.Contains(b.settings.SelectAddEmpty, field) {
		options = append(options, widget.Option{})
	}
	for _, v := range values {
		options = append(options, widget.Option{Value: v, Label: v})
	}
	return options
}

func (b *Builder) enumValues(ctx context.Context, field string) ([]string, error) {
	table := b.record.Schema()

	if values, ok := b.settings.EnumOptions[field]; ok {
		return values, nil
	}
	if b.opts.EnumOptionsCallback != nil {
		return b.opts.EnumOptionsCallback(ctx, table.Name, field)
	}
	if src, ok := b.source.(record.EnumSource); ok {
		return src.EnumValues(ctx, table.Name, field)
	}
	if col, ok := table.Column(field); ok {
		return col.EnumValues, nil
	}
	return nil, nil
}

// existing keeps the fields that are columns of table
func existing(table *registry.Table, fields []string) []string {
	var out []string
	for _, f := range fields {
		if table.HasColumn(f) {
			out = append(out, f)
		}
	}
	return out
}
