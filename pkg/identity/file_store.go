package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore implements Store over a single JSON file, for tooling and
// hosts without a relational store. Every mutation rewrites the file via
// a temp file and rename so a crash never leaves a half-written store.
type FileStore struct {
	mu    sync.Mutex
	path  string
	state fileState
}

type fileState struct {
	NextID     int64               `json:"next_id"`
	Providers  []*IdentityProvider `json:"providers"`
	Identities []*Identity         `json:"identities"`
}

// OpenFileStore loads the store at path, treating a missing file as an
// empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, state: fileState{NextID: 1}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity store: %w", err)
	}
	if err := json.Unmarshal(raw, &s.state); err != nil {
		return nil, fmt.Errorf("parse identity store: %w", err)
	}
	if s.state.NextID < 1 {
		s.state.NextID = 1
	}
	return s, nil
}

func (s *FileStore) ProviderByIdentifier(ctx context.Context, identifier string) (*IdentityProvider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.state.Providers {
		if p.Identifier == identifier {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProviderNotFound
}

func (s *FileStore) InsertProvider(ctx context.Context, provider *IdentityProvider) (*IdentityProvider, error) {
	if provider == nil || provider.Identifier == "" {
		return nil, ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.state.Providers {
		if p.Identifier == provider.Identifier {
			cp := *p
			return &cp, nil
		}
	}

	cp := *provider
	cp.ID = s.state.NextID
	s.state.NextID++
	s.state.Providers = append(s.state.Providers, &cp)

	if err := s.flush(); err != nil {
		s.state.Providers = s.state.Providers[:len(s.state.Providers)-1]
		return nil, err
	}
	out := cp
	return &out, nil
}

func (s *FileStore) IdentityByIdentifier(ctx context.Context, identifier string, providerID int64) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.state.Identities {
		if id.Identifier == identifier && id.ProviderID == providerID {
			cp := *id
			return &cp, nil
		}
	}
	return nil, ErrIdentityNotFound
}

func (s *FileStore) IdentitiesByProvider(ctx context.Context, providerID int64) ([]*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Identity
	for _, id := range s.state.Identities {
		if id.ProviderID == providerID {
			cp := *id
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortIndex < out[j].SortIndex })
	return out, nil
}

func (s *FileStore) InsertIdentity(ctx context.Context, id *Identity) (*Identity, error) {
	if id == nil || id.Identifier == "" {
		return nil, ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.Identities {
		if existing.Identifier == id.Identifier && existing.ProviderID == id.ProviderID {
			return nil, ErrDuplicateIdentity
		}
	}

	cp := *id
	cp.ID = s.state.NextID
	s.state.NextID++
	s.state.Identities = append(s.state.Identities, &cp)

	if err := s.flush(); err != nil {
		s.state.Identities = s.state.Identities[:len(s.state.Identities)-1]
		return nil, err
	}
	out := cp
	return &out, nil
}

func (s *FileStore) UpdateIdentity(ctx context.Context, id *Identity) error {
	if id == nil || id.ID == UnsavedID {
		return ErrInvalidIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.state.Identities {
		if existing.ID == id.ID {
			cp := *id
			s.state.Identities[i] = &cp
			return s.flush()
		}
	}
	return ErrIdentityNotFound
}

func (s *FileStore) DeleteIdentity(ctx context.Context, identityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.state.Identities {
		if existing.ID == identityID {
			s.state.Identities = append(s.state.Identities[:i], s.state.Identities[i+1:]...)
			return s.flush()
		}
	}
	return nil
}

func (s *FileStore) SetBlocked(ctx context.Context, identityID int64, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.Identities {
		if existing.ID == identityID {
			existing.Blocked = blocked
			return s.flush()
		}
	}
	return ErrIdentityNotFound
}

func (s *FileStore) BlockAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.Identities {
		existing.Blocked = true
	}
	return s.flush()
}

// flush writes the whole state atomically. Caller holds the mutex.
func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".identities-*")
	if err != nil {
		return fmt.Errorf("write identity store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write identity store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write identity store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace identity store: %w", err)
	}
	return nil
}
