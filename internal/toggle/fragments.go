package toggle

import (
	"bytes"
	"html/template"
)

// Fragment keys the page script swaps by.
const (
	IndicatorAttr = "data-redirect-active-indicator"
	ButtonAttr    = "data-redirect-toggle-button"

	PermanentIndicatorAttr = "data-redirect-permanent-indicator"
	PermanentButtonAttr    = "data-redirect-permanent-button"

	FallbackIndicatorAttr = "data-redirect-fallback-indicator"
	FallbackButtonAttr    = "data-redirect-fallback-button"
)

var fragments = template.Must(template.New("toggle").Parse(`
{{- define "active-badge" -}}
<span class="badge {{if .On}}badge-success{{else}}badge-secondary{{end}}" data-redirect-active-indicator="{{.ID}}">
{{- if .On}}Active{{else}}Inactive{{end -}}
</span>
{{- end -}}
{{- define "active-button" -}}
<button type="button" class="btn btn-sm {{if .On}}btn-outline-secondary{{else}}btn-outline-success{{end}}" data-redirect-toggle-button="{{.ID}}" data-url="/admin/redirects/{{.ID}}/toggle-active" aria-pressed="{{.On}}">
{{- if .On}}Deactivate{{else}}Activate{{end -}}
</button>
{{- end -}}
{{- define "permanent-badge" -}}
<span class="badge {{if .On}}badge-primary{{else}}badge-info{{end}}" data-redirect-permanent-indicator="{{.ID}}">
{{- if .On}}301 Permanent{{else}}302 Temporary{{end -}}
</span>
{{- end -}}
{{- define "permanent-button" -}}
<button type="button" class="btn btn-sm btn-outline-primary" data-redirect-permanent-button="{{.ID}}" data-url="/admin/redirects/{{.ID}}/toggle-permanent" aria-pressed="{{.On}}">
{{- if .On}}Make temporary{{else}}Make permanent{{end -}}
</button>
{{- end -}}
{{- define "fallback-badge" -}}
<span class="badge {{if .On}}badge-warning{{else}}badge-light{{end}}" data-redirect-fallback-indicator="{{.ID}}">
{{- if .On}}Fallback{{else}}Primary{{end -}}
</span>
{{- end -}}
{{- define "fallback-button" -}}
<button type="button" class="btn btn-sm btn-outline-warning" data-redirect-fallback-button="{{.ID}}" data-url="/admin/redirects/{{.ID}}/toggle-fallback" aria-pressed="{{.On}}">
{{- if .On}}Unset fallback{{else}}Set fallback{{end -}}
</button>
{{- end -}}`))

type state struct {
	ID uint64
	On bool
}

// render returns the indicator and control named by prefix for entry id in
// the given state.
func render(prefix string, id uint64, on bool) (badge, button template.HTML, err error) {
	var b bytes.Buffer
	s := state{ID: id, On: on}
	if err = fragments.ExecuteTemplate(&b, prefix+"-badge", s); err != nil {
		return "", "", err
	}
	badge = template.HTML(b.String())
	b.Reset()
	if err = fragments.ExecuteTemplate(&b, prefix+"-button", s); err != nil {
		return "", "", err
	}
	return badge, template.HTML(b.String()), nil
}
