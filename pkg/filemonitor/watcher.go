package filemonitor

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

type watcher struct {
	notify   *fsnotify.Watcher
	files    map[string]struct{}
	logger   logrus.FieldLogger
	onUpdate func(path string)
}

// NewWatch monitors problem files and calls onUpdate with the cleaned path
// of every file that is written or replaced. The parent directories are
// watched so that editors replacing a file by rename are noticed.
func NewWatch(logger logrus.FieldLogger, paths []string, onUpdate func(path string)) (*watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	files := make(map[string]struct{}, len(paths))
	dirs := map[string]struct{}{}
	for _, p := range paths {
		p = filepath.Clean(p)
		files[p] = struct{}{}
		dir := filepath.Dir(p)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err := notify.Add(dir); err != nil {
			notify.Close()
			return nil, err
		}
		dirs[dir] = struct{}{}
		logger.Debugf("monitoring directory '%v'", dir)
	}

	return &watcher{
		notify:   notify,
		files:    files,
		logger:   logger,
		onUpdate: onUpdate,
	}, nil
}

// Run processes events until ctx is done.
func (w *watcher) Run(ctx context.Context) {
	go func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				w.notify.Close() // always returns nil for the error
				w.logger.Debug("terminating watcher")
				return
			case event, ok := <-w.notify.Events:
				if !ok {
					return
				}
				w.handle(event)
			case err, ok := <-w.notify.Errors:
				if !ok {
					return
				}
				w.logger.Warnf("watcher got error: %v", err)
			}
		}
	}(ctx)
}

func (w *watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path := filepath.Clean(event.Name)
	if _, ok := w.files[path]; !ok {
		return
	}
	w.logger.Debugf("watcher got event: %v", event)
	if w.onUpdate != nil {
		w.onUpdate(path)
	}
}
