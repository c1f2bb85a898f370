package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JonMunkholm/csvtable/internal/core"
	"github.com/JonMunkholm/csvtable/internal/render"
)

// sourceFor reads the named file, or stdin when no file is given or the
// name is "-".
func sourceFor(cmd *cobra.Command, args []string) render.Source {
	if len(args) == 0 || args[0] == "-" {
		return render.ReaderSource{R: cmd.InOrStdin(), MaxBytes: maxSize}
	}
	return render.FileSource{Path: args[0], MaxBytes: maxSize}
}

// sinkFor writes to path, or to the command's stdout when path is empty.
func sinkFor(cmd *cobra.Command, path string) render.Sink {
	if path == "" || path == "-" {
		return render.WriterSink{W: cmd.OutOrStdout()}
	}
	return fileSink{path: path}
}

// fileSink replaces the file's contents on every write.
type fileSink struct {
	path string
}

func (s fileSink) WriteOutput(_ context.Context, out render.Output) error {
	if err := os.WriteFile(s.path, []byte(out.Markup+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// userFacing swaps errors with a known user message for that message, so
// the CLI prints "No data found in the CSV input (Code: CNV001)..." instead
// of a wrapped chain. Other errors pass through.
func userFacing(err error) error {
	if err == nil || !core.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("%s", core.FormatUserError(err))
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
