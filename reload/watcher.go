package reload

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const errPref = "reload"

// Watcher calls CheckForReloading of a controller when a file is written,
// created or renamed. The directory of the file is watched, so replacing the
// file is noticed too. Detectors used with a watcher should have a short
// refresh delay.
type Watcher struct {
	controller *Controller
	path       string
}

// NewWatcher method creates new watcher for the file.
func NewWatcher(controller *Controller, path string) *Watcher {
	return &Watcher{
		controller: controller,
		path:       path,
	}
}

// Run method watches the file until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	path, err := filepath.Abs(w.path)

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	watcher, err := fsnotify.NewWatcher()

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	defer watcher.Close()

	dir := filepath.Dir(path)

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	log.WithField("dir", dir).Debug("Started watching directory")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("%s: events channel is closed", errPref)
			}

			if filepath.Clean(event.Name) != path ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) {

				continue
			}

			log.WithFields(log.Fields{
				"file": event.Name,
				"op":   event.Op,
			}).Debug("Received file event")

			w.controller.CheckForReloading(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("%s: errors channel is closed", errPref)
			}

			log.WithError(err).Warn("File watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}
