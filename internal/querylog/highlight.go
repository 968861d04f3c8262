package querylog

import (
	"bytes"
	"html"
	"html/template"
	"log"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// sqlClassPrefix keeps highlighter classes from colliding with the host
// page's stylesheet.
const sqlClassPrefix = "qb-"

var (
	sqlLexer     = newSQLLexer()
	sqlStyle     = styles.Get("github")
	sqlFormatter = chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.PreventSurroundingPre(true),
		chromahtml.ClassPrefix(sqlClassPrefix),
	)
	sqlCSS = newSQLCSS()
)

func newSQLLexer() chroma.Lexer {
	lexer := lexers.Get("sql")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func newSQLCSS() template.CSS {
	var buf bytes.Buffer
	if err := sqlFormatter.WriteCSS(&buf, sqlStyle); err != nil {
		log.Printf("querylog: sql stylesheet: %v", err)
		return ""
	}
	return template.CSS(buf.String())
}

// HighlightSQL escapes sql for HTML and wraps its tokens in classed spans.
// If tokenising fails the SQL is shown escaped but unstyled.
func HighlightSQL(sql string) template.HTML {
	var buf bytes.Buffer
	buf.WriteString(`<code class="qb-sql ` + sqlClassPrefix + `chroma">`)
	it, err := sqlLexer.Tokenise(nil, sql)
	if err == nil {
		err = sqlFormatter.Format(&buf, sqlStyle, it)
	}
	if err != nil {
		log.Printf("querylog: highlight sql: %v", err)
		buf.Reset()
		buf.WriteString(`<code class="qb-sql">`)
		buf.WriteString(html.EscapeString(sql))
	}
	buf.WriteString(`</code>`)
	return template.HTML(buf.String())
}
