package swatch

import (
	"bytes"
	_ "embed"
	"html/template"
	"io"

	"github.com/go-playground/validator/v10"
)

//go:embed swatch.html.tmpl
var groupTemplateText string

var (
	groupTemplate = template.Must(template.New("swatch").Parse(groupTemplateText))
	validate      = validator.New()
)

type controlView struct {
	Control
	Background interface{}
	Outline    interface{}
}

// cssColor marks value safe for a style attribute when it is a color the
// validator recognizes. Anything else is left to html/template, which
// replaces unsafe CSS with a placeholder.
func cssColor(value string) interface{} {
	if value != "" && validate.Var(value, "iscolor") == nil {
		return template.CSS(value)
	}
	return value
}

// IsColor reports whether value is a hex, rgb(a) or hsl(a) color.
func IsColor(value string) bool {
	return validate.Var(value, "iscolor") == nil
}

// Render writes the group as an HTML list of radio inputs. It has no side
// effects on the group.
func (g *Group) Render(w io.Writer) error {
	controls := g.Controls()
	views := make([]controlView, len(controls))
	for i, c := range controls {
		views[i] = controlView{Control: c, Background: cssColor(c.Background), Outline: cssColor(c.Outline)}
	}
	return groupTemplate.Execute(w, views)
}

// HTML renders the group into a template.HTML value for embedding in
// other templates.
func (g *Group) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := g.Render(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
