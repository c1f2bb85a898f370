// Package templates holds the HTML components served by the web package.
//
// Components live in page.templ; run `templ generate` after editing it.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvtable/internal/core"
	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/JonMunkholm/csvtable/internal/render"
)

// PageData is everything the converter page shows.
type PageData struct {
	Input    string
	Format   render.Format
	Options  render.Options
	Result   *core.ConvertResult
	Error    *core.UserMessage
	Snippets []core.Snippet
}

// PreviewTable renders t as an HTML table for on-page preview. It shares
// the HTML renderer's tree so the preview matches the converted output.
func PreviewTable(t csvparse.Table, hasHeader bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		node, err := render.BuildTable(t, render.TableOptions{HasHeader: hasHeader, ClassName: "preview"})
		if err != nil {
			_, werr := io.WriteString(w, `<p>Nothing to preview.</p>`)
			return werr
		}
		return node.WriteHTML(w)
	})
}

func snippetURL(id string) templ.SafeURL {
	return templ.URL("/api/snippets/" + id)
}

func pluralRows(n int) string {
	if n == 1 {
		return "1 row"
	}
	return strconv.Itoa(n) + " rows"
}
