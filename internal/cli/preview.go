package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvtable/internal/csvparse"
	"github.com/JonMunkholm/csvtable/internal/render"
)

const formatPreview render.Format = "preview"

var previewHeader bool

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Show the parsed table in the terminal",
	Long: `Draw the parsed CSV as a bordered table in the terminal.

Colors are only used when stdout is a terminal.

Examples:
  csvtable preview data.csv
  csvtable preview --header data.csv`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runPreview,
	SilenceUsage: true,
}

func init() {
	previewCmd.Flags().BoolVar(&previewHeader, "header", false, "Treat the first row as a header")
	RootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	renderer := previewRenderer{
		styles:    newPreviewStyles(isTerminal(cmd.OutOrStdout())),
		hasHeader: previewHeader,
	}

	binding := render.Bind(sourceFor(cmd, args), renderer, render.WriterSink{W: cmd.OutOrStdout()})
	if _, err := binding.Run(cmd.Context()); err != nil {
		return userFacing(err)
	}
	return nil
}

// previewStyles are empty when colour is disabled, so output is plain text.
type previewStyles struct {
	header lipgloss.Style
	cell   lipgloss.Style
	border lipgloss.Style
}

func newPreviewStyles(enabled bool) previewStyles {
	s := previewStyles{
		header: lipgloss.NewStyle().Padding(0, 1),
		cell:   lipgloss.NewStyle().Padding(0, 1),
		border: lipgloss.NewStyle(),
	}
	if enabled {
		s.header = s.header.Bold(true).Foreground(lipgloss.Color("15")) // White bold
		s.border = s.border.Foreground(lipgloss.Color("8"))             // Gray
	}
	return s
}

type previewRenderer struct {
	styles    previewStyles
	hasHeader bool
}

func (previewRenderer) Format() render.Format { return formatPreview }

func (r previewRenderer) Render(t csvparse.Table) (string, error) {
	if t.Empty() {
		return "", render.ErrNoData
	}

	width := t.Width()
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.styles.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.header
			}
			return r.styles.cell
		})

	if r.hasHeader {
		tbl = tbl.Headers(padRow(t.Header(), width)...)
	}
	for _, row := range t.Body(r.hasHeader) {
		tbl = tbl.Row(padRow(row, width)...)
	}
	return tbl.String(), nil
}

// padRow fills short rows so every terminal column lines up.
func padRow(row csvparse.Row, width int) []string {
	cells := make([]string, width)
	copy(cells, row)
	return cells
}
