package stealth

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// PresetOverrides is the YAML shape for an operator-tunable preset file:
// curated pools the fingerprint generator draws from, in place of the
// built-in defaults.
type PresetOverrides struct {
	UserAgents map[string][]string `yaml:"user_agents"`
	Locales    []string            `yaml:"locales"`
}

// PresetStore holds the currently active overrides and optionally
// hot-reloads them from disk via fsnotify.
type PresetStore struct {
	mu      sync.RWMutex
	current PresetOverrides
	path    string
	watcher *fsnotify.Watcher
}

// LoadPresetStore reads path (if non-empty) as YAML and starts watching it
// for changes. An empty path yields an always-empty PresetStore (built-in
// defaults only).
func LoadPresetStore(path string) (*PresetStore, error) {
	s := &PresetStore{path: path}
	if path == "" {
		return s, nil
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("stealth: could not start preset file watcher, hot-reload disabled")
		return s, nil
	}
	if err := w.Add(path); err != nil {
		log.Warn().Err(err).Msg("stealth: could not watch preset file, hot-reload disabled")
		_ = w.Close()
		return s, nil
	}
	s.watcher = w
	go s.watchLoop()
	return s, nil
}

func (s *PresetStore) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var overrides PresetOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = overrides
	s.mu.Unlock()
	return nil
}

func (s *PresetStore) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := s.reload(); err != nil {
					log.Warn().Err(err).Msg("stealth: failed to reload preset file")
				} else {
					log.Debug().Str("path", s.path).Msg("stealth: preset file reloaded")
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("stealth: preset watcher error")
		}
	}
}

// Overrides returns a snapshot of the currently loaded overrides.
func (s *PresetStore) Overrides() PresetOverrides {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

var (
	presetMu      sync.RWMutex
	activePresets *PresetStore
)

// UsePresets installs store as the generator's source of pool overrides.
// Generate consults it on every call, so a hot-reloaded preset file takes
// effect without restarting the daemon. Passing nil reverts to the built-in
// pools.
func UsePresets(store *PresetStore) {
	presetMu.Lock()
	activePresets = store
	presetMu.Unlock()
}

func presetOverrides() PresetOverrides {
	presetMu.RLock()
	s := activePresets
	presetMu.RUnlock()
	if s == nil {
		return PresetOverrides{}
	}
	return s.Overrides()
}

// Close stops the file watcher, if any.
func (s *PresetStore) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
