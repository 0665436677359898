package profile

import "sync"

// MemoryStore is an in-process Store for tests and dry runs
type MemoryStore struct {
	mu      sync.Mutex
	profile Profile
	saves   int

	// Error injection for testing
	LoadError error
	SaveError error
}

// NewMemoryStore creates a store pre-populated with p (may be nil)
func NewMemoryStore(p *Profile) *MemoryStore {
	m := &MemoryStore{}
	if p != nil {
		m.profile = *p
	}
	return m
}

func (m *MemoryStore) Location() string { return "memory" }

func (m *MemoryStore) Load() (*Profile, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profile
	return &p, nil
}

func (m *MemoryStore) Save(p *Profile) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if err := validate(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = *p
	m.saves++
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = Profile{}
	return nil
}

// Saves returns how many successful Save calls were made
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
