package identity

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store with mutex-guarded maps. Suitable for tests
// and for embedding where the host application has no relational store of
// its own.
type MemoryStore struct {
	mu         sync.RWMutex
	providers  map[int64]*IdentityProvider
	identities map[int64]*Identity
	nextID     int64
}

// NewMemoryStore creates an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers:  make(map[int64]*IdentityProvider),
		identities: make(map[int64]*Identity),
		nextID:     1,
	}
}

func (m *MemoryStore) ProviderByIdentifier(ctx context.Context, identifier string) (*IdentityProvider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.providers {
		if p.Identifier == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProviderNotFound
}

func (m *MemoryStore) InsertProvider(ctx context.Context, provider *IdentityProvider) (*IdentityProvider, error) {
	if provider == nil || provider.Identifier == "" {
		return nil, ErrInvalidIdentity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.providers {
		if p.Identifier == provider.Identifier {
			cp := *p
			return &cp, nil
		}
	}

	cp := *provider
	cp.ID = m.nextID
	m.nextID++
	m.providers[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MemoryStore) IdentityByIdentifier(ctx context.Context, identifier string, providerID int64) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.identities {
		if id.Identifier == identifier && id.ProviderID == providerID {
			cp := *id
			return &cp, nil
		}
	}
	return nil, ErrIdentityNotFound
}

func (m *MemoryStore) IdentitiesByProvider(ctx context.Context, providerID int64) ([]*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Identity
	for _, id := range m.identities {
		if id.ProviderID == providerID {
			cp := *id
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortIndex < out[j].SortIndex })
	return out, nil
}

func (m *MemoryStore) InsertIdentity(ctx context.Context, id *Identity) (*Identity, error) {
	if id == nil || id.Identifier == "" {
		return nil, ErrInvalidIdentity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.identities {
		if existing.Identifier == id.Identifier && existing.ProviderID == id.ProviderID {
			return nil, ErrDuplicateIdentity
		}
	}

	cp := *id
	cp.ID = m.nextID
	m.nextID++
	m.identities[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *MemoryStore) UpdateIdentity(ctx context.Context, id *Identity) error {
	if id == nil || id.ID == UnsavedID {
		return ErrInvalidIdentity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[id.ID]; !ok {
		return ErrIdentityNotFound
	}
	cp := *id
	m.identities[id.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteIdentity(ctx context.Context, identityID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.identities, identityID)
	return nil
}

func (m *MemoryStore) SetBlocked(ctx context.Context, identityID int64, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.identities[identityID]
	if !ok {
		return ErrIdentityNotFound
	}
	id.Blocked = blocked
	return nil
}

func (m *MemoryStore) BlockAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.identities {
		id.Blocked = true
	}
	return nil
}
