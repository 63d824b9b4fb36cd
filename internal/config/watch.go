package config

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Load resolves the merged configuration for the repository at root.
func Load(root string) (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject(root)
	if err != nil {
		return Config{}, err
	}
	return Merge(global, project), nil
}

// Watch reloads the configuration whenever a project config file in root
// changes and passes each new valid configuration to onChange. Files that
// fail to parse or validate are logged and ignored, so the previous settings
// stay in effect. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, root string, current Config, log zerolog.Logger, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors often save by
	// renaming a temp file over the original.
	if err := watcher.Add(root); err != nil {
		return err
	}

	last, _ := current.YAML()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !slices.Contains(projectFileNames, filepath.Base(ev.Name)) {
				continue
			}
			cfg, err := Load(root)
			if err != nil {
				log.Warn().Err(err).Str("path", ev.Name).Msg("ignoring unreadable config")
				continue
			}
			if err := cfg.Validate(); err != nil {
				log.Warn().Err(err).Str("path", ev.Name).Msg("ignoring invalid config")
				continue
			}
			// Editors emit several events per save; only publish real changes.
			b, _ := cfg.YAML()
			if bytes.Equal(b, last) {
				continue
			}
			last = b
			log.Info().Str("path", ev.Name).Msg("config reloaded")
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
