package constants

// DefaultFormatName is the render format used when a request does not ask for one.
// Used in: handlers/forms.go, cmd/formbuilder/commands.go
const DefaultFormatName = "html"

// RenderFormats lists the output formats a form can be rendered to and the
// content type each is served with.
var RenderFormats = map[string]string{
	"html": MIMETextHTML,
	"json": MIMEApplicationJSON,
	"yaml": MIMEApplicationYAML,
}
