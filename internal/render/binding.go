package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/csvtable/internal/csvparse"
)

// Format names an output representation.
type Format string

const (
	FormatHTML  Format = "html"
	FormatBlock Format = "block"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat converts a user-supplied name into a Format. Matching is
// case-insensitive and an empty name selects FormatHTML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "html", "table":
		return FormatHTML, nil
	case "block", "wp", "wordpress", "gutenberg":
		return FormatBlock, nil
	default:
		return "", fmt.Errorf("%w: %q (expected html or block)", ErrUnknownFormat, name)
	}
}

// Options is the union of every renderer's settings, as collected from a
// form, a JSON request or command-line flags.
type Options struct {
	HasHeader      bool   `json:"hasHeader" yaml:"has_header"`
	ClassName      string `json:"className,omitempty" yaml:"class_name,omitempty"`
	HasFixedLayout bool   `json:"hasFixedLayout,omitempty" yaml:"has_fixed_layout,omitempty"`
	HasStripes     bool   `json:"hasStripes,omitempty" yaml:"has_stripes,omitempty"`
}

// Renderer converts a table into markup.
type Renderer interface {
	Format() Format
	Render(t csvparse.Table) (string, error)
}

// NewRenderer returns the renderer for format configured from opts.
func NewRenderer(format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatHTML:
		return HTMLRenderer{Options: TableOptions{
			HasHeader: opts.HasHeader,
			ClassName: opts.ClassName,
		}}, nil
	case FormatBlock:
		return BlockRenderer{Options: BlockOptions{
			HasHeader:      opts.HasHeader,
			HasFixedLayout: opts.HasFixedLayout,
			HasStripes:     opts.HasStripes,
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Output is what a Binding hands to its Sink.
type Output struct {
	Format Format
	Table  csvparse.Table
	Markup string
}

// Source supplies raw CSV text.
type Source interface {
	ReadInput(ctx context.Context) (string, error)
}

// Sink receives rendered output.
type Sink interface {
	WriteOutput(ctx context.Context, out Output) error
}

// Binding connects one Source, one Renderer and one Sink. The host builds it
// with explicit references and calls Run whenever a conversion is wanted.
type Binding struct {
	source   Source
	renderer Renderer
	sink     Sink
}

// Bind creates a Binding.
func Bind(source Source, renderer Renderer, sink Sink) *Binding {
	return &Binding{source: source, renderer: renderer, sink: sink}
}

// Run reads the source, parses and renders it, and writes the result to the
// sink. An empty table yields ErrNoData and nothing is written.
func (b *Binding) Run(ctx context.Context) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	text, err := b.source.ReadInput(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("read source: %w", err)
	}

	table := csvparse.Parse(text)
	markup, err := b.renderer.Render(table)
	if err != nil {
		return Output{Format: b.renderer.Format(), Table: table}, err
	}

	out := Output{Format: b.renderer.Format(), Table: table, Markup: markup}
	if err := b.sink.WriteOutput(ctx, out); err != nil {
		return out, fmt.Errorf("write sink: %w", err)
	}
	return out, nil
}

// StringSource is a fixed piece of text.
type StringSource string

// ReadInput implements Source.
func (s StringSource) ReadInput(context.Context) (string, error) {
	return string(s), nil
}

// ReaderSource reads everything from R, stripping a BOM and invalid UTF-8.
// MaxBytes of zero means no limit.
type ReaderSource struct {
	R        io.Reader
	MaxBytes int64
}

// ReadInput implements Source.
func (s ReaderSource) ReadInput(context.Context) (string, error) {
	return csvparse.ReadLimited(s.R, s.MaxBytes)
}

// FileSource reads a file from disk on every call, so a Binding built on it
// can be re-run after the file changes.
type FileSource struct {
	Path     string
	MaxBytes int64
}

// ReadInput implements Source.
func (s FileSource) ReadInput(context.Context) (string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return csvparse.ReadLimited(f, s.MaxBytes)
}

// WriterSink writes the markup followed by a newline.
type WriterSink struct {
	W io.Writer
}

// WriteOutput implements Sink.
func (s WriterSink) WriteOutput(_ context.Context, out Output) error {
	_, err := io.WriteString(s.W, out.Markup+"\n")
	return err
}

// FuncSink adapts a function to Sink.
type FuncSink func(ctx context.Context, out Output) error

// WriteOutput implements Sink.
func (f FuncSink) WriteOutput(ctx context.Context, out Output) error {
	return f(ctx, out)
}
