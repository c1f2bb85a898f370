package cli

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvtable/internal/render"
)

var (
	outputFormat string
	outputPath   string
	renderOpts   render.Options
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert CSV to an HTML table or a WordPress table block",
	Long: `Convert CSV text into table markup.

Reads the given file, or standard input when no file is given.

Examples:
  csvtable convert prices.csv
  csvtable convert --header --class pricing prices.csv
  csvtable convert --format block --stripes --out table.html prices.csv
  pbpaste | csvtable convert --header`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runConvert,
	SilenceUsage: true,
}

func init() {
	addRenderFlags(convertCmd)
	RootCmd.AddCommand(convertCmd)
}

// addRenderFlags registers the flags shared by convert and watch.
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "html", "Output format (html, block)")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write markup to a file instead of stdout")
	cmd.Flags().BoolVar(&renderOpts.HasHeader, "header", false, "Treat the first row as a header")
	cmd.Flags().StringVar(&renderOpts.ClassName, "class", "", "CSS class for the HTML table")
	cmd.Flags().BoolVar(&renderOpts.HasFixedLayout, "fixed-layout", false, "Fixed-width columns (block format)")
	cmd.Flags().BoolVar(&renderOpts.HasStripes, "stripes", false, "Striped rows (block format)")
}

// newRenderBinding builds the binding described by the render flags.
func newRenderBinding(cmd *cobra.Command, source render.Source) (*render.Binding, error) {
	format, err := render.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	renderer, err := render.NewRenderer(format, renderOpts)
	if err != nil {
		return nil, err
	}
	return render.Bind(source, renderer, sinkFor(cmd, outputPath)), nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := commandLogger(cmd)

	binding, err := newRenderBinding(cmd, sourceFor(cmd, args))
	if err != nil {
		return userFacing(err)
	}

	out, err := binding.Run(cmd.Context())
	if err != nil {
		logger.Debug("convert failed", "error", err)
		return userFacing(err)
	}

	logger.Debug("converted",
		"format", out.Format,
		"rows", len(out.Table),
		"columns", out.Table.Width(),
		"bytes", len(out.Markup),
	)
	return nil
}
