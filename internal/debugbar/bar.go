// Package debugbar is a minimal developer debug bar. Panels contribute a
// short tab label and a detail view; the bar renders them into a fragment
// that the Inject middleware places at the end of HTML pages.
package debugbar

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
)

// Panel supplies markup to the bar. Either method may fail; the bar renders
// the failure in place of the panel.
type Panel interface {
	Tab() (template.HTML, error)
	Panel() (template.HTML, error)
}

type namedPanel struct {
	id    string
	panel Panel
}

// Bar holds the panels for one request.
type Bar struct {
	panels []namedPanel
}

// NewBar returns an empty bar.
func NewBar() *Bar {
	return &Bar{}
}

// AddPanel appends p under id. Adding an existing id replaces that panel in
// place.
func (b *Bar) AddPanel(id string, p Panel) {
	for i := range b.panels {
		if b.panels[i].id == id {
			b.panels[i].panel = p
			return
		}
	}
	b.panels = append(b.panels, namedPanel{id: id, panel: p})
}

// Panel returns the panel registered under id.
func (b *Bar) Panel(id string) (Panel, bool) {
	for _, np := range b.panels {
		if np.id == id {
			return np.panel, true
		}
	}
	return nil, false
}

// IDs returns the registered panel ids in order.
func (b *Bar) IDs() []string {
	ids := make([]string, len(b.panels))
	for i, np := range b.panels {
		ids[i] = np.id
	}
	return ids
}

type renderedPanel struct {
	ID    string
	Tab   template.HTML
	Body  template.HTML
	Error string
}

var barTmpl = template.Must(template.New("bar").Parse(`<div id="qb-debugbar">
<style>
#qb-debugbar { position: fixed; right: 0; bottom: 0; z-index: 20000; font: 13px/1.4 sans-serif; color: #333; }
#qb-debugbar ul.qb-tabs { margin: 0; padding: 2px 4px; list-style: none; background: #f0eee6; border: 1px solid #c9c9c9; display: flex; gap: 8px; }
#qb-debugbar ul.qb-tabs a { color: #333; text-decoration: none; }
#qb-debugbar ul.qb-tabs img { vertical-align: middle; margin-right: 3px; }
#qb-debugbar .qb-panel { display: none; position: fixed; right: 4px; bottom: 28px; max-height: 80vh; max-width: 90vw; overflow: auto; background: #fdf5ce; border: 1px solid #c9c9c9; padding: 8px; }
#qb-debugbar .qb-panel:target { display: block; }
#qb-debugbar .qb-panel table { border-collapse: collapse; }
#qb-debugbar .qb-panel td, #qb-debugbar .qb-panel th { border: 1px solid #e6dfbf; padding: 2px 4px; vertical-align: top; }
#qb-debugbar .qb-error { color: #b00; }
</style>
<ul class="qb-tabs">
{{range .}}<li><a href="#qb-panel-{{.ID}}">{{if .Error}}<span class="qb-error">{{.ID}}: error</span>{{else}}{{.Tab}}{{end}}</a></li>
{{end}}<li><a href="#">&times;</a></li>
</ul>
{{range .}}<div class="qb-panel" id="qb-panel-{{.ID}}">{{if .Error}}<h1>{{.ID}}</h1><pre class="qb-error">{{.Error}}</pre>{{else}}{{.Body}}{{end}}</div>
{{end}}</div>
`))

// Render produces the bar markup. Panel failures, including panics, are
// logged and shown inside the bar instead of aborting the caller.
func (b *Bar) Render() template.HTML {
	rendered := make([]renderedPanel, 0, len(b.panels))
	for _, np := range b.panels {
		rendered = append(rendered, renderPanel(np))
	}
	var buf bytes.Buffer
	if err := barTmpl.Execute(&buf, rendered); err != nil {
		log.Printf("debugbar: render: %v", err)
		return ""
	}
	return template.HTML(buf.String())
}

func renderPanel(np namedPanel) (rp renderedPanel) {
	rp.ID = np.id
	defer func() {
		if r := recover(); r != nil {
			rp.Tab, rp.Body = "", ""
			rp.Error = fmt.Sprintf("panic: %v", r)
			log.Printf("debugbar: panel %s: %s", np.id, rp.Error)
		}
	}()

	tab, err := np.panel.Tab()
	if err == nil {
		rp.Body, err = np.panel.Panel()
	}
	if err != nil {
		rp.Error = err.Error()
		log.Printf("debugbar: panel %s: %v", np.id, err)
		return rp
	}
	rp.Tab = tab
	return rp
}
