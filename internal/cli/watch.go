package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvtable/internal/render"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-convert a CSV file every time it changes",
	Long: `Convert a file, then keep converting it whenever it is saved.

Press Ctrl+C to stop.

Examples:
  csvtable watch --header --out table.html prices.csv
  csvtable watch --format block --debounce 500ms prices.csv`,
	Args:         cobra.ExactArgs(1),
	RunE:         runWatch,
	SilenceUsage: true,
}

func init() {
	addRenderFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 250*time.Millisecond, "Quiet period before re-converting")
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := commandLogger(cmd)
	path := args[0]

	if _, err := os.Stat(path); err != nil {
		return err
	}

	binding, err := newRenderBinding(cmd, render.FileSource{Path: path, MaxBytes: maxSize})
	if err != nil {
		return userFacing(err)
	}

	ctx := cmd.Context()
	runOnce := func() {
		out, err := binding.Run(ctx)
		if err != nil {
			logger.Warn("convert failed", "file", path, "error", userFacing(err))
			return
		}
		logger.Info("converted", "file", path, "rows", len(out.Table))
	}

	runOnce()
	return watchFile(ctx, path, watchDebounce, logger, runOnce)
}

// watchFile calls onChange after path is written, created or replaced and
// then stays quiet for the debounce period. The parent directory is watched
// so editors that save by rename are still seen. It returns nil when ctx is
// done.
func watchFile(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	target = filepath.Clean(target)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("file event", "op", event.Op.String())
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			pending = true

		case <-timer.C:
			if pending {
				pending = false
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Warn("file events dropped", "error", err)
				continue
			}
			return err
		}
	}
}
