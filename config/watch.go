package config

import (
	"context"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/spiffcs/devpulse/internal/log"
)

// Current holds the active configuration and is safe for concurrent use.
type Current struct {
	p atomic.Pointer[Config]
}

// NewCurrent returns a holder initialised with cfg.
func NewCurrent(cfg *Config) *Current {
	c := &Current{}
	c.p.Store(cfg)
	return c
}

// Load returns the active configuration.
func (c *Current) Load() *Config {
	return c.p.Load()
}

// Store replaces the active configuration.
func (c *Current) Store(cfg *Config) {
	c.p.Store(cfg)
}

// Watch reloads the global and local files whenever either is written and
// calls onChange with the merged result. It runs until ctx is cancelled.
//
// A reload that fails keeps the previous config and does not call onChange.
func Watch(ctx context.Context, globalPath, localPath string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := 0
	for _, path := range []string{globalPath, localPath} {
		if err := watcher.Add(path); err != nil {
			log.Debug("config: not watching", "path", path, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		<-ctx.Done()
		return nil
	}

	log.Info("config: watching for changes", "global", globalPath, "local", localPath)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so also catch Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadFrom(globalPath, localPath)
			if err != nil {
				log.Error("config: reload failed, keeping previous config", "path", event.Name, "error", err)
				continue
			}

			log.Info("config: reloaded", "path", event.Name)
			onChange(cfg)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config: watcher error", "error", err)
		}
	}
}
