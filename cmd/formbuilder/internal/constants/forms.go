package constants

// Form generation limits and reserved names.
const (
	// MaxLinkDisplayLevel caps how many foreign-key hops an option label may
	// follow, whatever the configured link display level is. Link cycles
	// between tables would otherwise recurse without bound.
	// Used in: formbuilder/options_list.go
	MaxLinkDisplayLevel = 5

	// SubmitGroupName is the field group key naming the group the submit
	// button joins.
	// Used in: formbuilder/assembler.go
	SubmitGroupName = "__submit__"

	// SubmitElementName is the name of the generated submit button.
	SubmitElementName = "__submit__"

	// HeaderElementName is the name of the generated form header.
	HeaderElementName = "__header__"

	// MaxFormMemory is the multipart memory limit used when parsing
	// submitted forms that carry file uploads.
	// Used in: handlers/forms.go
	MaxFormMemory = 32 << 20
)
