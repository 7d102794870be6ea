package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gemchat/gemchat/internal/logging"
)

// watchDebounce coalesces the bursts of write events editors emit when
// saving a file.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the settings file whenever it changes and invokes
// onChange with the fresh settings. It blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(Settings)) error {
	if path == "" {
		path = findSettingsFile()
		if path == "" {
			// Nothing to watch; wait for cancellation so callers can
			// treat Watch uniformly.
			<-ctx.Done()
			return ctx.Err()
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	var timer *time.Timer
	reload := func() {
		s, err := Load(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("settings reload failed")
			return
		}
		onChange(s)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Err(err).Msg("settings watcher error")
		}
	}
}
