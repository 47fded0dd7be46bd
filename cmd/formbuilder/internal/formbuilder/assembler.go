package formbuilder

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/thalib/formbuilder/cmd/formbuilder/internal/constants"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/registry"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

// groupSeparator separates the members of configured field groups
const groupSeparator = "&nbsp;"

// FieldSpec is the resolved description of one field before it is emitted
type FieldSpec struct {
	Field     string
	Kind      FieldKind
	Label     string
	Options   []widget.Option
	Required  bool
	Validator string
	Frozen    bool
	Group     string

	Element *widget.Element
}

// GetForm generates the form of the record. Junction relationships that
// cannot be resolved fail the whole call.
func (b *Builder) GetForm(ctx context.Context) (widget.Form, error) {
	if b.hooks.GetForm != nil {
		return b.hooks.GetForm(ctx, b)
	}

	if b.hooks.PreGenerate != nil {
		if err := b.hooks.PreGenerate(ctx, b); err != nil {
			return nil, err
		}
	}

	specs, defaults, err := b.FieldSpecs(ctx)
	if err != nil {
		return nil, err
	}

	form := b.construct(specs, defaults)

	if b.hooks.PostGenerate != nil {
		if err := b.hooks.PostGenerate(ctx, form, b); err != nil {
			return nil, err
		}
	}

	b.logger.Debugf("generated form with %d fields", len(specs))
	return form, nil
}

// FieldSpecs resolves the fields to render, in render order, along with the
// default values keyed by element name
func (b *Builder) FieldSpecs(ctx context.Context) ([]*FieldSpec, map[string]any, error) {
	if err := b.relationships(ctx); err != nil {
		return nil, nil, err
	}

	defaults := make(map[string]any)
	var specs []*FieldSpec
	for _, field := range b.renderFields() {
		spec, err := b.fieldSpec(ctx, field, defaults)
		if err != nil {
			return nil, nil, err
		}
		specs = append(specs, spec)
	}
	return specs, defaults, nil
}

// naturalFields lists the columns in schema order followed by the junction
// pseudo-fields
func (b *Builder) naturalFields() []string {
	fields := b.record.Schema().ColumnNames()
	for _, link := range b.crossLinks {
		fields = append(fields, CrossLinkName(link.Table))
	}
	for _, link := range b.tripleLinks {
		fields = append(fields, TripleLinkName(link.Table))
	}
	return fields
}

// renderFields applies the configured order and render allow-list
func (b *Builder) renderFields() []string {
	natural := b.naturalFields()
	fields := natural

	if order := b.settings.PreDefOrder; len(order) > 0 {
		if unknown := slices.DeleteFunc(slices.Clone(order), func(f string) bool {
			return slices.Contains(natural, f)
		}); len(unknown) > 0 {
			b.warn("field order ignored, unknown fields: %s", strings.Join(unknown, ", "))
		} else {
			fields = make([]string, 0, len(natural))
			for _, f := range order {
				if !slices.Contains(fields, f) {
					fields = append(fields, f)
				}
			}
			for _, f := range natural {
				if !slices.Contains(fields, f) {
					fields = append(fields, f)
				}
			}
		}
	}

	allow := b.settings.FieldsToRender
	if len(allow) == 0 {
		return fields
	}

	table := b.record.Schema()
	var rendered []string
	matched := false
	for _, f := range fields {
		switch {
		case slices.Contains(allow, f):
			matched = true
			rendered = append(rendered, f)
		case table.IsPrimaryKey(f):
			rendered = append(rendered, f)
		}
	}
	if !matched {
		return fields
	}
	return rendered
}

// editableFields returns the fields a submission may change, falling back
// to the render allow-list. Nil means every field.
func (b *Builder) editableFields() []string {
	if b.settings.UserEditableFields != nil {
		return b.settings.UserEditableFields
	}
	allow := b.settings.FieldsToRender
	if len(allow) == 0 || !slices.ContainsFunc(b.naturalFields(), func(f string) bool {
		return slices.Contains(allow, f)
	}) {
		return nil
	}
	return allow
}

func (b *Builder) frozen(field string) bool {
	editable := b.editableFields()
	return editable != nil && !slices.Contains(editable, field)
}

func (b *Builder) fieldSpec(ctx context.Context, field string, defaults map[string]any) (*FieldSpec, error) {
	table := b.record.Schema()
	class := b.classify(field)
	name := b.FieldName(field)

	spec := &FieldSpec{
		Field:     field,
		Kind:      class.Kind,
		Label:     b.label(field, field),
		Validator: class.Validator,
		Frozen:    b.frozen(field),
		Group:     b.settings.PreDefGroups[field],
	}

	col, isColumn := table.Column(field)
	if isColumn {
		if v := b.record.Get(field); v != nil && !class.Kind.IsDate() {
			defaults[name] = v
		}
	}

	switch class.Kind {
	case FieldPredefined:
		el := *b.settings.PreDefElements[field]
		if el.Name == "" {
			el.Name = name
		}
		spec.Element = &el

	case FieldHidden:
		spec.Element = widget.NewElement(widget.KindHidden, name, spec.Label)

	case FieldInteger, FieldShortText:
		spec.Element = widget.NewElement(widget.KindText, name, spec.Label,
			widget.WithAttributes(b.attributes(field, widget.KindText)))

	case FieldLongText:
		spec.Element = widget.NewElement(widget.KindTextarea, name, spec.Label,
			widget.WithAttributes(b.attributes(field, widget.KindTextarea)))

	case FieldDate, FieldTime, FieldDateTime:
		kind, format := b.dateKind(class.Kind)
		attrs := b.attributes(field, kind)
		if b.hooks.DateOptions != nil {
			attrs = mergeAttributes(attrs, b.hooks.DateOptions(field))
		}
		spec.Element = widget.NewElement(kind, name, spec.Label, widget.WithFormat(format), widget.WithAttributes(attrs))
		if isColumn {
			defaults[name] = b.settings.DateFromStorage(b.record.Get(field), format)
		}

	case FieldEnum:
		spec.Options = b.EnumOptions(ctx, field)
		spec.Element = b.choiceElement(field, name, spec.Label, spec.Options)

	case FieldReference:
		spec.Options = b.referenceOptions(ctx, field)
		spec.Element = b.choiceElement(field, name, spec.Label, spec.Options)

	case FieldCrossLink:
		if err := b.crossLinkSpec(ctx, spec, name, defaults); err != nil {
			return nil, err
		}

	case FieldTripleLink:
		if err := b.tripleLinkSpec(ctx, spec, name, defaults); err != nil {
			return nil, err
		}
	}

	hiddenKey := table.IsPrimaryKey(field) && b.settings.HidePrimaryKey
	spec.Required = isColumn && col.Flags.Has(registry.FlagNotNull) && !hiddenKey && !spec.Frozen

	return spec, nil
}

func (b *Builder) dateKind(kind FieldKind) (widget.Kind, string) {
	switch kind {
	case FieldTime:
		return widget.KindTime, b.settings.TimeElementFormat
	case FieldDateTime:
		return widget.KindDatetime, b.settings.DateTimeElementFormat
	}
	return widget.KindDate, b.settings.DateElementFormat
}

// choiceElement builds a select, or a radio group when configured
func (b *Builder) choiceElement(field, name, label string, options []widget.Option) *widget.Element {
	kind := widget.KindSelect
	if b.settings.LinkElementTypes[field] == string(widget.KindRadio) {
		kind = widget.KindRadio
	}
	return widget.NewElement(kind, name, label, widget.WithOptions(options),
		widget.WithAttributes(b.attributes(field, kind)))
}

func (b *Builder) crossLinkSpec(ctx context.Context, spec *FieldSpec, name string, defaults map[string]any) error {
	link := b.crossLink(spec.Field)
	junction, err := b.schema(ctx, link.Table)
	if err != nil {
		return fmt.Errorf("cross link %s: %w", link.Table, err)
	}
	target, _ := junction.Link(link.ToField)

	if _, ok := b.settings.FieldLabels[spec.Field]; !ok {
		spec.Label = ucfirst(target.Table)
	}
	spec.Options = b.TableOptions(ctx, target.Table, target.TargetColumn, nil, nil, false)

	selected, err := SelectedKeys(ctx, b.source, *link, b.record.Get(b.record.Schema().PrimaryKey()))
	if err != nil {
		return err
	}

	if link.Type == CrossLinkSelect {
		spec.Element = widget.NewElement(widget.KindSelect, name, spec.Label, widget.WithOptions(spec.Options),
			widget.Multiple(), widget.WithAttributes(b.attributes(spec.Field, widget.KindSelect)))
		defaults[name] = selected
		return nil
	}

	members := make([]*widget.Element, 0, len(spec.Options))
	for _, opt := range spec.Options {
		members = append(members, widget.NewElement(widget.KindCheckbox, widget.MemberName(name, opt.Value), opt.Label,
			widget.WithCheckedValue(opt.Value), widget.WithAttributes(b.attributes(spec.Field, widget.KindCheckbox))))
	}
	spec.Element = widget.NewGroup(name, spec.Label, members, b.settings.CrossLinkSeparator)
	for _, key := range selected {
		defaults[widget.MemberName(name, key)] = key
	}
	return nil
}

func (b *Builder) tripleLinkSpec(ctx context.Context, spec *FieldSpec, name string, defaults map[string]any) error {
	link := b.tripleLink(spec.Field)
	junction, err := b.schema(ctx, link.Table)
	if err != nil {
		return fmt.Errorf("triple link %s: %w", link.Table, err)
	}
	rowLink, _ := junction.Link(link.ToField1)
	colLink, _ := junction.Link(link.ToField2)

	if _, ok := b.settings.FieldLabels[spec.Field]; !ok {
		spec.Label = ucfirst(link.Table)
	}
	rows := b.TableOptions(ctx, rowLink.Table, rowLink.TargetColumn, nil, nil, false)
	cols := b.TableOptions(ctx, colLink.Table, colLink.TargetColumn, nil, nil, false)
	spec.Options = cols

	pairs, err := SelectedPairs(ctx, b.source, *link, b.record.Get(b.record.Schema().PrimaryKey()))
	if err != nil {
		return err
	}

	spec.Element = widget.NewMatrix(name, spec.Label, rows, cols)
	for row, selected := range pairs {
		for _, col := range selected {
			defaults[widget.MatrixCellName(name, row, col)] = col
		}
	}
	return nil
}

// attributes merges the attributes configured for the element kind with
// those configured for the field
func (b *Builder) attributes(field string, kind widget.Kind) map[string]string {
	return mergeAttributes(b.opts.ElementTypeAttributes[kind], b.settings.FieldAttributes[field])
}

func mergeAttributes(sets ...map[string]string) map[string]string {
	var out map[string]string
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		maps.Copy(out, set)
	}
	return out
}

// construct emits the field specs into a form in one pass: header, fields
// and groups, submit, rules, appended elements, defaults and finally the
// freeze pass
func (b *Builder) construct(specs []*FieldSpec, defaults map[string]any) widget.Form {
	table := b.record.Schema().Name
	s := b.settings

	form := b.form
	var appended []*widget.Element
	switch {
	case form == nil:
		form = b.toolkit.NewForm(table)
	case b.appendForm:
		appended = form.Elements()
		form = b.toolkit.NewForm(form.Name())
	}

	if s.AddFormHeader {
		text := s.FormHeaderText
		if text == "" {
			text = ucfirst(table)
		}
		form.AddElement(widget.NewElement(widget.KindHeader, constants.HeaderElementName, text))
	}

	groups := make(map[string][]*widget.Element)
	for _, spec := range specs {
		if spec.Group != "" {
			groups[spec.Group] = append(groups[spec.Group], spec.Element)
		}
	}

	submit := widget.NewElement(widget.KindSubmit, constants.SubmitElementName, "", widget.WithValue(s.SubmitText))
	submitGroup, submitGrouped := s.PreDefGroups[constants.SubmitGroupName]
	submitGrouped = submitGrouped && s.CreateSubmit && len(groups[submitGroup]) > 0
	if submitGrouped {
		groups[submitGroup] = append(groups[submitGroup], submit)
	}

	emitted := make(map[string]bool)
	for _, spec := range specs {
		if spec.Group == "" {
			form.AddElement(spec.Element)
			continue
		}
		if emitted[spec.Group] {
			continue
		}
		emitted[spec.Group] = true

		members := groups[spec.Group]
		if len(members) == 1 {
			form.AddElement(members[0])
			continue
		}
		form.AddElement(widget.NewGroup(b.FieldName(spec.Group), b.label(spec.Group, spec.Group), members, groupSeparator))
	}

	if s.CreateSubmit && !submitGrouped {
		form.AddElement(submit)
	}

	var frozen []string
	for _, spec := range specs {
		name := spec.Element.Name
		if spec.Required {
			form.AddRule(widget.Rule{Field: name, Validator: widget.RuleRequired, Message: message(s.RequiredRuleMessage, spec.Label)})
		}
		if spec.Validator != "" {
			form.AddRule(widget.Rule{Field: name, Validator: spec.Validator, Message: message(s.RuleViolationMessage, spec.Label)})
		}
		if spec.Frozen {
			frozen = append(frozen, name)
		}
	}

	for _, el := range appended {
		form.AddElement(el)
	}

	form.SetDefaults(defaults)

	if len(frozen) > 0 {
		form.Freeze(frozen...)
	}
	return form
}

func message(template, label string) string {
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, label)
	}
	return template
}
