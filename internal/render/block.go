package render

import (
	"encoding/json"
	"strings"

	"github.com/JonMunkholm/csvtable/internal/csvparse"
)

// Block editor class names.
const (
	blockName        = "wp:table"
	figureClass      = "wp-block-table"
	fixedLayoutClass = "has-fixed-layout"
	stripesClass     = "is-style-stripes"
)

// BlockOptions controls the block-editor table.
type BlockOptions struct {
	HasHeader      bool
	HasFixedLayout bool
	HasStripes     bool
}

// blockAttrs is the JSON object stored in the opening marker comment.
// Field order matches what the block editor writes.
type blockAttrs struct {
	HasFixedLayout bool   `json:"hasFixedLayout,omitempty"`
	ClassName      string `json:"className,omitempty"`
}

// BlockRenderer renders a table as block-editor markup.
type BlockRenderer struct {
	Options BlockOptions
}

// Format implements Renderer.
func (BlockRenderer) Format() Format { return FormatBlock }

// Render implements Renderer. The result has three lines: the opening marker,
// the figure, and the closing marker.
func (r BlockRenderer) Render(t csvparse.Table) (string, error) {
	node, err := BuildTable(t, TableOptions{HasHeader: r.Options.HasHeader})
	if err != nil {
		return "", err
	}

	attrs := blockAttrs{HasFixedLayout: r.Options.HasFixedLayout}
	figure := []string{figureClass}
	if r.Options.HasStripes {
		attrs.ClassName = stripesClass
		figure = append(figure, stripesClass)
	}

	var tableClass string
	if r.Options.HasFixedLayout {
		tableClass = fixedLayoutClass
	}

	var b strings.Builder
	b.WriteString("<!-- " + blockName)
	if attrs != (blockAttrs{}) {
		raw, err := json.Marshal(attrs)
		if err != nil {
			return "", err
		}
		b.WriteString(" ")
		b.Write(raw)
	}
	b.WriteString(" -->\n")

	b.WriteString(`<figure class="` + strings.Join(figure, " ") + `">`)
	node.writeTable(&b, tableClass)
	b.WriteString("</figure>\n")

	b.WriteString("<!-- /" + blockName + " -->")
	return b.String(), nil
}
