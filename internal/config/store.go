package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Store holds the current configuration snapshot. Readers get an immutable
// *Config; reloads replace the pointer, so in-flight requests keep the
// snapshot they started with.
type Store struct {
	current atomic.Pointer[Config]

	mu          sync.Mutex
	subscribers []func(*Config)
}

func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Load returns the current snapshot. Callers must not modify it.
func (s *Store) Load() *Config { return s.current.Load() }

// Swap installs cfg and notifies subscribers. It returns the previous snapshot.
func (s *Store) Swap(cfg *Config) *Config {
	old := s.current.Swap(cfg)

	s.mu.Lock()
	subs := append([]func(*Config){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}
	return old
}

// Subscribe registers fn to run after every Swap.
func (s *Store) Subscribe(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Reload re-reads v, validates, and swaps the result in. Invalid configs
// are logged and the current snapshot is kept.
func (s *Store) Reload(v *viper.Viper) error {
	cfg, err := Unmarshal(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.Swap(cfg)
	return nil
}

// Watch reloads the store whenever v's config file changes.
func Watch(v *viper.Viper, s *Store) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := s.Reload(v); err != nil {
			log.Errorf("Ignoring config change from %s: %v", e.Name, err)
			return
		}
		log.Infof("Configuration reloaded from %s", e.Name)
	})
	v.WatchConfig()
}
