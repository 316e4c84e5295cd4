// internal/common/config/watcher.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher rebuilds the merged Config whenever the base file or its overlay
// changes on disk.
type Watcher struct {
	sources  Sources
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(*Config)
	onError  func(error)

	done      chan struct{}
	closeOnce sync.Once
}

// Watch follows the files the last Load read.
func Watch(onChange func(*Config), onError func(error)) (*Watcher, error) {
	activeMu.Lock()
	src := active
	activeMu.Unlock()
	return WatchSources(src, onChange, onError)
}

// WatchSources watches the parent directories of src so editors that replace
// files by rename are still seen.
func WatchSources(src Sources, onChange func(*Config), onError func(error)) (*Watcher, error) {
	if src.Base == "" {
		return nil, errors.New("no config file to watch")
	}
	if onChange == nil {
		return nil, errors.New("onChange callback is required")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	dirs := map[string]struct{}{filepath.Dir(src.Base): {}}
	if src.Overlay != "" {
		dirs[filepath.Dir(src.Overlay)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w := &Watcher{
		sources:  src,
		watcher:  fw,
		debounce: reloadDebounce,
		onChange: onChange,
		onError:  onError,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.tracks(event) {
				continue
			}
			// Writes arrive in bursts; reload once they settle.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)

		case <-fire:
			fire = nil
			cfg, err := LoadSources(w.sources)
			if err != nil {
				w.report(fmt.Errorf("reload config: %w", err))
				continue
			}
			w.onChange(cfg)
		}
	}
}

func (w *Watcher) tracks(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := absPath(event.Name)
	return name == w.sources.Base || (w.sources.Overlay != "" && name == w.sources.Overlay)
}

func (w *Watcher) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
