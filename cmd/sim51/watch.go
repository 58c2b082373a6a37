package main

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// watch reports changes to the given file until ctx is done. Bursts of
// events collapse into a single pending notification.
func watch(ctx context.Context, log hclog.Logger, file string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "watch")
	}

	// Replaced files only show up as events on their directory.
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watch %s", file)
	}

	name := filepath.Clean(file)
	changed := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				log.Debug("program changed", "file", file, "op", event.Op)
				select {
				case changed <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watch failed", "file", file, "error", err)
			}
		}
	}()

	return changed, nil
}
