package eform

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of events a single save produces.
const watchDebounce = 100 * time.Millisecond

// WatchTemplates re-extracts a template's variables whenever its file in the
// upload directory is written or replaced by something other than the
// editor callback, such as an operator copying a new revision in place. It
// blocks until ctx is done.
func (s *Service) WatchTemplates(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return wrap("starting template watcher", err)
	}
	defer w.Close()

	if err := w.Add(s.uploadDir); err != nil {
		return wrap("starting template watcher", fmt.Errorf("watching %s: %w", s.uploadDir, err))
	}
	s.logger.Info("watching templates", "path", s.uploadDir)

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(ev.Name)

			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Reset(watchDebounce)
			} else {
				timers[path] = time.AfterFunc(watchDebounce, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					s.fileChanged(ctx, path)
				})
			}
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("template watcher error", "error", err)
		}
	}
}

// fileChanged refreshes the template stored at path, if any.
func (s *Service) fileChanged(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	tpls, err := s.store.Templates(ctx)
	if err != nil {
		s.logger.Warn("listing templates for watcher", "error", err)
		return
	}
	for _, tpl := range tpls {
		if filepath.Clean(tpl.FilePath) == path {
			s.logger.Debug("template file changed", "template_id", tpl.ID, "path", path)
			s.refreshVariables(ctx, tpl.ID, path)
			return
		}
	}
}
