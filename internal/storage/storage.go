package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/eugenenazirov/site-settings/internal/settings"
)

var (
	// ErrSiteNotFound indicates no resolved settings are stored for a site.
	ErrSiteNotFound = errors.New("site not found")
	// ErrNilSettings is returned when Put receives nil.
	ErrNilSettings = errors.New("settings must not be nil")
)

// Storage provides access to resolved site settings.
type Storage interface {
	Put(resolved *settings.Settings) error
	Get(site string) (*settings.Settings, error)
	Sites() []string
}

// MemoryStorage keeps resolved settings in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu    sync.RWMutex
	sites map[string]*settings.Settings
}

// NewMemoryStorage initialises an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sites: make(map[string]*settings.Settings),
	}
}

// Put stores resolved settings under their site identifier, replacing any
// previous entry.
func (s *MemoryStorage) Put(resolved *settings.Settings) error {
	if resolved == nil {
		return ErrNilSettings
	}

	s.mu.Lock()
	s.sites[resolved.Site()] = resolved
	s.mu.Unlock()

	return nil
}

// Get returns the settings resolved for site. Settings are immutable and safe to share.
func (s *MemoryStorage) Get(site string) (*settings.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resolved, ok := s.sites[site]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, site)
	}
	return resolved, nil
}

// Sites returns the stored site identifiers in sorted order.
func (s *MemoryStorage) Sites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sites))
	for site := range s.sites {
		out = append(out, site)
	}
	sort.Strings(out)
	return out
}
