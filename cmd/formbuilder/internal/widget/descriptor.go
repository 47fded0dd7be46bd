package widget

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Descriptor output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Descriptor renders forms as a JSON or YAML document listing elements and
// rules, for clients that draw the form themselves
type Descriptor struct {
	Format string
}

// Name returns the output format
func (d Descriptor) Name() string {
	return d.Format
}

// NewForm creates an empty descriptor form
func (d Descriptor) NewForm(name string) Form {
	return &descriptorForm{baseForm: baseForm{name: name}, format: d.Format}
}

// Document is the serialized shape of a form
type Document struct {
	Name     string     `json:"name" yaml:"name"`
	Elements []*Element `json:"elements" yaml:"elements"`
	Rules    []Rule     `json:"rules,omitempty" yaml:"rules,omitempty"`
}

type descriptorForm struct {
	baseForm
	format string
}

// Render encodes the form document
func (f *descriptorForm) Render(w io.Writer) error {
	doc := Document{Name: f.name, Elements: f.elements, Rules: f.rules}

	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: descriptor format %q", ErrUnknownToolkit, f.format)
}
