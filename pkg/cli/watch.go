package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Validate manifests under DIR and re-validate them whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				w := &manifestWatcher{
					app:   a,
					root:  args[0],
					delay: delay,
					report: func(results []validateResult) {
						// Failures are part of the report, not a reason to stop watching.
						_ = reportValidation(out, results)
					},
				}
				return w.run(ctx)
			})
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "Wait this long after the last change before validating")

	return cmd
}

// manifestWatcher validates the manifests under root, then again each time
// one of them is written. Changes are batched until delay passes without
// another event.
type manifestWatcher struct {
	app    *app
	root   string
	delay  time.Duration
	report func([]validateResult)
}

func (w *manifestWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := setupWatcher(watcher, w.root); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	existing, err := findManifests(w.root)
	if err != nil {
		return err
	}
	if err := w.validate(ctx, existing); err != nil {
		return err
	}

	log := w.app.log.WithField("dir", w.root)
	log.Info("watching for manifest changes")

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.WithError(err).WithField("path", event.Name).Warn("failed to watch new directory")
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isManifestFile(event.Name) {
				log.WithField("path", event.Name).Debug("manifest changed")
				pending[event.Name] = struct{}{}
				timer.Reset(w.delay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			if err := w.validate(ctx, paths); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (w *manifestWatcher) validate(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	results, err := validateManifests(ctx, w.app, paths, w.app.cfg.Validation.Concurrency)
	if err != nil {
		return err
	}
	w.report(results)
	return nil
}

// setupWatcher recursively adds all directories to the watcher
func setupWatcher(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// findManifests lists every manifest file under root in lexical order.
func findManifests(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isManifestFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find manifests: %w", err)
	}
	return paths, nil
}

func isManifestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

