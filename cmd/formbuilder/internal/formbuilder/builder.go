// Package formbuilder derives editable forms from table records and writes
// submitted forms back. GetForm classifies every column, resolves option
// lists and junction relationships and emits the elements into a widget
// form. Process maps the submitted values onto the record, inserts or
// updates it and reconciles the junction tables.
package formbuilder

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/record"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// ErrNoRecord is returned by New when no record is given
var ErrNoRecord = errors.New("no record given")

// Builder generates and processes the form of one record
type Builder struct {
	record   record.Record
	source   record.Source
	opts     Options
	settings settings
	hooks    Hooks
	toolkit  widget.Toolkit
	logger   *logging.Logger

	queryType  QueryType
	form       widget.Form
	appendForm bool

	crossLinks  []CrossLink
	tripleLinks []TripleLink
	normalized  bool

	warnings         []string
	validationErrors map[string]string
}

// New creates a builder for rec. The source is used to look up linked
// tables and junction rows.
func New(rec record.Record, source record.Source, opts Options, hooks Hooks) (*Builder, error) {
	if rec == nil || rec.Schema() == nil {
		return nil, ErrNoRecord
	}
	if source == nil {
		return nil, fmt.Errorf("form for %s: no record source given", rec.Schema().Name)
	}

	if opts.Toolkit == "" {
		opts.Toolkit = DefaultOptions().Toolkit
	}
	toolkit, err := widget.New(opts.Toolkit)
	if err != nil {
		return nil, fmt.Errorf("form for %s: %w", rec.Schema().Name, err)
	}

	table := rec.Schema().Name
	return &Builder{
		record:   rec,
		source:   source,
		opts:     opts,
		settings: resolveSettings(opts, table),
		hooks:    hooks,
		toolkit:  toolkit,
		logger:   logging.GetLogger().WithComponent("formbuilder").WithField("table", table),
	}, nil
}

// Record returns the record the builder edits
func (b *Builder) Record() record.Record {
	return b.record
}

// ForceQueryType overrides the insert or update decision of Process
func (b *Builder) ForceQueryType(q QueryType) {
	b.queryType = q
}

// UseForm makes GetForm emit into form. With appendForm set, a new form is
// generated and the elements of form are appended after the generated ones.
func (b *Builder) UseForm(form widget.Form, appendForm bool) {
	b.form = form
	b.appendForm = appendForm
}

// Warnings returns the non-fatal problems met so far, such as option lists
// that could not be built
func (b *Builder) Warnings() []string {
	return b.warnings
}

// ValidationErrors returns the errors reported by the last validation run
// of Process, keyed by field
func (b *Builder) ValidationErrors() map[string]string {
	return maps.Clone(b.validationErrors)
}

// CrossLinks returns the cross links after their columns were resolved
func (b *Builder) CrossLinks() []CrossLink {
	return b.crossLinks
}

// TripleLinks returns the triple links after their columns were resolved
func (b *Builder) TripleLinks() []TripleLink {
	return b.tripleLinks
}

func (b *Builder) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if slices.Contains(b.warnings, msg) {
		return
	}
	b.warnings = append(b.warnings, msg)
	b.logger.Debug(msg)
}
