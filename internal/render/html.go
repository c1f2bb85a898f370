// Package render turns a parsed csvparse.Table into markup.
//
// Two renderers are provided:
//
//   - HTMLRenderer produces a plain <table> element, optionally with a class
//     name and a header row.
//   - BlockRenderer produces a WordPress block-editor table: the table is
//     wrapped in a <figure> and framed by "wp:table" marker comments.
//
// Renderers are pure: they take a table and options and return a string. All
// cell text is HTML-escaped. Hosts connect renderers to their input and
// output through a Binding instead of discovering them at runtime.
package render

import (
	"errors"
	"io"
	"strings"

	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/a-h/templ"
)

// ErrNoData is returned when a renderer is given an empty table.
var ErrNoData = errors.New("no data to render")

// TableOptions controls the generic HTML table.
type TableOptions struct {
	// HasHeader promotes the first row to <th> cells inside <thead>.
	HasHeader bool

	// ClassName is written to the class attribute of <table> when non-empty.
	ClassName string
}

// TableNode is a neutral description of an HTML table. It carries raw,
// unescaped cell text; escaping happens when the node is serialized.
type TableNode struct {
	ClassName string     `json:"className,omitempty"`
	Head      []string   `json:"head,omitempty"`
	Body      [][]string `json:"body"`
}

// BuildTable arranges a table into header and body sections.
func BuildTable(t csvparse.Table, opts TableOptions) (*TableNode, error) {
	if t.Empty() {
		return nil, ErrNoData
	}

	node := &TableNode{
		ClassName: strings.TrimSpace(opts.ClassName),
		Body:      make([][]string, 0, len(t)),
	}
	if opts.HasHeader {
		node.Head = append([]string(nil), t.Header()...)
	}
	for _, row := range t.Body(opts.HasHeader) {
		node.Body = append(node.Body, append([]string(nil), row...))
	}
	return node, nil
}

// HasHead reports whether the node has a header row.
func (n *TableNode) HasHead() bool {
	return len(n.Head) > 0
}

// WriteHTML writes the node as a <table> element.
func (n *TableNode) WriteHTML(w io.Writer) error {
	var b strings.Builder
	n.writeTable(&b, n.ClassName)
	_, err := io.WriteString(w, b.String())
	return err
}

// HTML returns the node as a <table> element.
func (n *TableNode) HTML() string {
	var b strings.Builder
	n.writeTable(&b, n.ClassName)
	return b.String()
}

func (n *TableNode) writeTable(b *strings.Builder, class string) {
	b.WriteString("<table")
	if class != "" {
		b.WriteString(` class="`)
		b.WriteString(templ.EscapeString(class))
		b.WriteString(`"`)
	}
	b.WriteString(">")

	if n.HasHead() {
		b.WriteString("<thead>")
		writeRow(b, n.Head, "th")
		b.WriteString("</thead>")
	}

	b.WriteString("<tbody>")
	for _, row := range n.Body {
		writeRow(b, row, "td")
	}
	b.WriteString("</tbody></table>")
}

func writeRow(b *strings.Builder, cells []string, tag string) {
	b.WriteString("<tr>")
	for _, cell := range cells {
		b.WriteString("<" + tag + ">")
		b.WriteString(templ.EscapeString(cell))
		b.WriteString("</" + tag + ">")
	}
	b.WriteString("</tr>")
}

// HTMLRenderer renders the generic HTML table.
type HTMLRenderer struct {
	Options TableOptions
}

// Format implements Renderer.
func (HTMLRenderer) Format() Format { return FormatHTML }

// Render implements Renderer.
func (r HTMLRenderer) Render(t csvparse.Table) (string, error) {
	node, err := BuildTable(t, r.Options)
	if err != nil {
		return "", err
	}
	return node.HTML(), nil
}
