package formbuilder

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
)

// memSource is an in-memory record.Source that logs every write
type memSource struct {
	tables map[string]*registry.Table
	rows   map[string][]map[string]any
	nextID map[string]int64
	ops    []string
}

func newMemSource(tables ...*registry.Table) *memSource {
	src := &memSource{
		tables: make(map[string]*registry.Table),
		rows:   make(map[string][]map[string]any),
		nextID: make(map[string]int64),
	}
	for _, t := range tables {
		src.tables[t.Name] = t
	}
	return src
}

func (s *memSource) seed(table string, rows ...map[string]any) {
	for _, row := range rows {
		s.rows[table] = append(s.rows[table], maps.Clone(row))
		if id, ok := row["id"].(int64); ok && id > s.nextID[table] {
			s.nextID[table] = id
		}
	}
}

func (s *memSource) New(ctx context.Context, table string) (record.Record, error) {
	schema, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %s", table)
	}
	return &memRecord{src: s, table: schema, values: make(map[string]any)}, nil
}

func (s *memSource) Find(ctx context.Context, table string, filter map[string]any, orderBy []string) ([]record.Record, error) {
	schema, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %s", table)
	}

	var out []*memRecord
	for _, row := range s.rows[table] {
		if matches(row, filter) {
			out = append(out, &memRecord{src: s, table: schema, values: maps.Clone(row)})
		}
	}

	for i := len(orderBy) - 1; i >= 0; i-- {
		col, dir, _ := strings.Cut(orderBy[i], " ")
		if !schema.HasColumn(col) {
			return nil, fmt.Errorf("unknown order column %s", col)
		}
		desc := strings.EqualFold(dir, "DESC")
		slices.SortStableFunc(out, func(a, b *memRecord) int {
			c := compareValues(a.values[col], b.values[col])
			if desc {
				return -c
			}
			return c
		})
	}

	records := make([]record.Record, len(out))
	for i, r := range out {
		records[i] = r
	}
	return records, nil
}

// junction returns the rows of a junction table as sorted "a=1 b=2" strings
func (s *memSource) junction(table string) []string {
	var out []string
	for _, row := range s.rows[table] {
		out = append(out, describe(row))
	}
	slices.Sort(out)
	return out
}

func matches(row, filter map[string]any) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func compareValues(a, b any) int {
	x, errA := strconv.ParseFloat(fmt.Sprint(a), 64)
	y, errB := strconv.ParseFloat(fmt.Sprint(b), 64)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func describe(row map[string]any) string {
	parts := make([]string, 0, len(row))
	for _, k := range slices.Sorted(maps.Keys(row)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
	}
	return strings.Join(parts, " ")
}

type memRecord struct {
	src    *memSource
	table  *registry.Table
	values map[string]any
}

func (r *memRecord) Schema() *registry.Table {
	return r.table
}

func (r *memRecord) Get(column string) any {
	return r.values[column]
}

func (r *memRecord) Set(column string, value any) {
	if r.table.HasColumn(column) {
		r.values[column] = value
	}
}

func (r *memRecord) Values() map[string]any {
	return maps.Clone(r.values)
}

func (r *memRecord) Insert(ctx context.Context) error {
	pk := r.table.PrimaryKey()
	if pk != "" && isEmptyKey(r.values[pk]) {
		r.src.nextID[r.table.Name]++
		r.values[pk] = r.src.nextID[r.table.Name]
	}
	r.src.rows[r.table.Name] = append(r.src.rows[r.table.Name], maps.Clone(r.values))
	r.src.ops = append(r.src.ops, "insert "+r.table.Name+" "+describe(r.values))
	return nil
}

func (r *memRecord) Update(ctx context.Context) error {
	key := r.keyFilter()
	for i, row := range r.src.rows[r.table.Name] {
		if matches(row, key) {
			r.src.rows[r.table.Name][i] = maps.Clone(r.values)
			r.src.ops = append(r.src.ops, "update "+r.table.Name+" "+describe(r.values))
			return nil
		}
	}
	return record.ErrNotFound
}

func (r *memRecord) Delete(ctx context.Context) error {
	key := r.keyFilter()
	rows := r.src.rows[r.table.Name]
	r.src.rows[r.table.Name] = slices.DeleteFunc(rows, func(row map[string]any) bool {
		return matches(row, key)
	})
	r.src.ops = append(r.src.ops, "delete "+r.table.Name+" "+describe(key))
	return nil
}

func (r *memRecord) keyFilter() map[string]any {
	if len(r.table.PrimaryKeys) == 0 {
		return maps.Clone(r.values)
	}
	key := make(map[string]any)
	for _, pk := range r.table.PrimaryKeys {
		key[pk] = r.values[pk]
	}
	return key
}
