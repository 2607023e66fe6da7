package palette

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"shopfront/api"
	"shopfront/metrics"
	"shopfront/swatch"
)

//go:embed page.html.tmpl
var pageTemplateText string

var pageTemplate = template.Must(template.New("page").Parse(pageTemplateText))

type pageView struct {
	Title    string
	Action   string
	Selected string
	Group    template.HTML
}

// renderSwatches answers with an HTML form holding the palette's radio
// group. ?control= preselects a control; an unknown one leaves the first
// selected.
func (p *Routes) renderSwatches(w http.ResponseWriter, r *http.Request) error {
	palette, err := p.load(r)
	if err != nil {
		return err
	}

	var selected string
	group := swatch.NewGroup(palette.Colors, func(color string) { selected = color })
	group.Mount()
	if control := r.URL.Query().Get("control"); control != "" {
		if _, ok := group.Select(control); !ok {
			selected = group.Value()
		}
	}

	groupHTML, err := group.HTML()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageView{
		Title:    palette.Name,
		Action:   r.URL.Path,
		Selected: selected,
		Group:    groupHTML,
	}); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err = buf.WriteTo(w)
	return err
}

type selectionRequest struct {
	Control string `json:"control"`
}

type selectionResponse struct {
	Control string `json:"control"`
	Color   string `json:"color"`
}

// selectSwatch applies one selection to a freshly mounted group and
// answers with the color the group reported last.
func (p *Routes) selectSwatch(w http.ResponseWriter, r *http.Request) error {
	var control string
	if api.IsJSON(r) {
		var req selectionRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			return err
		}
		control = req.Control
	} else {
		control = r.PostFormValue(swatch.GroupName)
		if control == "" {
			control = r.PostFormValue("control")
		}
	}
	if control == "" {
		return api.NewHTTPError(http.StatusBadRequest, "control is required", nil)
	}

	palette, err := p.load(r)
	if err != nil {
		return err
	}

	var reported string
	group := swatch.NewGroup(palette.Colors, func(color string) { reported = color })
	group.Mount()
	_, matched := group.Select(control)

	result := "matched"
	if !matched {
		result = "unmatched"
		p.logger.Warnw("Unknown swatch control",
			"palette_id", palette.ID,
			"control", control,
			"request_id", api.GetRequestIDOrDefault(r.Context()))
	}
	metrics.SwatchSelections.WithLabelValues(result).Inc()

	return api.WriteJSON(w, http.StatusOK, selectionResponse{Control: control, Color: reported})
}
