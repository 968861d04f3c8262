package querylog

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultEditorURL opens a file in the developer's editor. %file and %line
// are substituted.
const DefaultEditorURL = "editor://open/?file=%file&line=%line"

const tabIcon = "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHdpZHRoPSIxNiIgaGVpZ2h0PSIxNiIgdmlld0JveD0iMCAwIDE2IDE2Ij48ZWxsaXBzZSBjeD0iOCIgY3k9IjMuNSIgcng9IjYiIHJ5PSIyLjUiIGZpbGw9IiMzYzZlOWYiLz48cGF0aCBkPSJNMiAzLjV2OWMwIDEuNCAyLjcgMi41IDYgMi41czYtMS4xIDYtMi41di05YzAgMS40LTIuNyAyLjUtNiAyLjVTMiA0LjkgMiAzLjV6IiBmaWxsPSIjNWI4ZmM3Ii8+PC9zdmc+"

var tabTmpl = template.Must(template.New("tab").Parse(
	`<span title="SQL queries"><img src="{{.Icon}}" alt="">{{.Count}}{{if .Count}} queries / {{.Total}} ms{{end}}</span>`))

var panelTmpl = template.Must(template.New("panel").Funcs(template.FuncMap{
	"num": FormatNumber,
}).Parse(`<style>
.qb-querylog td.sql { background-color: white; }
.qb-querylog td.time, .qb-querylog td.mem { text-align: right; }
.qb-querylog code.qb-sql { background: none; white-space: pre-wrap; }
{{.SQLStyle}}.qb-querylog a.qb-source { margin-left: .5em; font-size: 90%; color: #777; }
.qb-querylog tr.severity-error td, .qb-querylog tr.severity-warning td { background-color: #fde8e6; }
</style>
<h1>Queries: {{.Count}}, time: {{num .TotalMs}} ms</h1>
<div class="qb-inner qb-querylog">
<table>
<tr>
	<th class="time">Time&nbsp;ms</th>
	<th class="sql">SQL</th>
	<th class="mem">Mem&nbsp;MB</th>
	<th class="method">Method</th>
</tr>
{{range .Rows}}<tr class="severity-{{.Severity}}"><td class="time">{{num .TimeMs}}</td><td class="sql">{{.SQLHTML}}{{with .Link}}<a href="{{.URL}}" class="qb-source" title="{{.Title}}">{{.Label}}</a>{{end}}</td><td class="mem">{{num .Mem}}</td><td class="method">{{.Method}}</td></tr>
{{end}}</table>
</div>
`))

// Row is one rendered query.
type Row struct {
	TimeMs   float64
	SQL      string
	Mem      float64
	Method   string
	Severity Severity
	Source   *Source
}

// BuildRows extracts a Row from every entry. A malformed entry fails the
// whole build.
func BuildRows(format Format, entries []Entry) ([]Row, error) {
	rows := make([]Row, 0, len(entries))
	for i, e := range entries {
		pairs, err := format.Split(e.Message)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		value := func(f Field) string {
			if idx, ok := format.Index(f); ok {
				return pairs[idx].Value
			}
			return ""
		}
		rows = append(rows, Row{
			TimeMs:   1000 * parseNumber(value(FieldTime)),
			SQL:      value(FieldSQL),
			Mem:      parseNumber(value(FieldMem)),
			Method:   value(FieldMethod),
			Severity: e.Severity,
			Source:   e.Source,
		})
	}
	return rows, nil
}

// PanelData is everything RenderPanel needs.
type PanelData struct {
	Count     int
	TotalMs   float64
	Rows      []Row
	EditorURL string
}

type editorLink struct {
	URL   template.URL
	Title string
	Label string
}

type panelRow struct {
	Row
	SQLHTML template.HTML
	Link    *editorLink
}

// RenderTab renders the short bar label.
func RenderTab(count int, totalMs float64) (template.HTML, error) {
	var buf bytes.Buffer
	err := tabTmpl.Execute(&buf, struct {
		Icon  template.URL
		Count int
		Total string
	}{template.URL(tabIcon), count, FormatMs(totalMs)})
	if err != nil {
		return "", fmt.Errorf("querylog: render tab: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// RenderPanel renders the detail table.
func RenderPanel(data PanelData) (template.HTML, error) {
	editor := data.EditorURL
	if editor == "" {
		editor = DefaultEditorURL
	}
	rows := make([]panelRow, len(data.Rows))
	for i, r := range data.Rows {
		rows[i] = panelRow{Row: r, SQLHTML: HighlightSQL(r.SQL), Link: newEditorLink(editor, r.Source)}
	}

	var buf bytes.Buffer
	err := panelTmpl.Execute(&buf, struct {
		Count    int
		TotalMs  float64
		Rows     []panelRow
		SQLStyle template.CSS
	}{data.Count, data.TotalMs, rows, sqlCSS})
	if err != nil {
		return "", fmt.Errorf("querylog: render panel: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Tab renders "N queries / T ms" for the debug bar.
func (c *Collector) Tab() (template.HTML, error) {
	total, err := c.TotalTime()
	if err != nil {
		return "", fmt.Errorf("querylog: tab: %w", err)
	}
	return RenderTab(c.QueryCount(), total)
}

// Panel renders the query table for the debug bar.
func (c *Collector) Panel() (template.HTML, error) {
	rows, err := BuildRows(c.format, c.entries)
	if err != nil {
		return "", fmt.Errorf("querylog: panel: %w", err)
	}
	total, err := c.TotalTime()
	if err != nil {
		return "", fmt.Errorf("querylog: panel: %w", err)
	}
	return RenderPanel(PanelData{
		Count:     c.QueryCount(),
		TotalMs:   total,
		Rows:      rows,
		EditorURL: c.editorURL,
	})
}

func newEditorLink(pattern string, src *Source) *editorLink {
	if src == nil {
		return nil
	}
	line := strconv.Itoa(src.Line)
	file := filepath.ToSlash(src.File)
	// Placeholders after '?' sit in a query parameter and need query
	// escaping; before it they are part of the path.
	path, query, hasQuery := strings.Cut(pattern, "?")
	u := strings.NewReplacer(
		"%file", (&url.URL{Path: file}).EscapedPath(),
		"%line", line,
	).Replace(path)
	if hasQuery {
		u += "?" + strings.NewReplacer(
			"%file", url.QueryEscape(file),
			"%line", line,
		).Replace(query)
	}
	return &editorLink{
		URL:   template.URL(u),
		Title: src.File + ":" + line,
		Label: filepath.Base(src.File) + ":" + line,
	}
}

// FormatMs formats milliseconds with one decimal and space-grouped
// thousands, e.g. 12345.67 -> "12 345.7".
func FormatMs(ms float64) string {
	s := strconv.FormatFloat(ms, 'f', 1, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(whole, ' ') + "." + frac
}

// FormatNumber prints v with at most three decimals and no trailing zeros.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func groupThousands(digits string, sep byte) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
