package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// PrincipalStore keeps user accounts in a map.
type PrincipalStore struct {
	mu         sync.RWMutex
	principals map[string]security.Principal
}

// NewPrincipalStore returns a store holding the given principals.
func NewPrincipalStore(initial ...security.Principal) *PrincipalStore {
	s := &PrincipalStore{principals: make(map[string]security.Principal)}
	for _, p := range initial {
		s.principals[p.Name] = p
	}
	return s
}

func (s *PrincipalStore) Get(_ context.Context, name string) (*security.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[name]
	if !ok {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("principal %s", name))
	}
	p.Groups = append([]string(nil), p.Groups...)
	return &p, nil
}

// List returns all principals sorted by name.
func (s *PrincipalStore) List(_ context.Context) ([]*security.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*security.Principal, 0, len(s.principals))
	for _, p := range s.principals {
		p := p
		p.Groups = append([]string(nil), p.Groups...)
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *PrincipalStore) Save(_ context.Context, p *security.Principal) error {
	if p == nil || p.Name == "" {
		return pkgerrors.NewValidationError("principal name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Groups = append([]string(nil), p.Groups...)
	s.principals[p.Name] = cp
	return nil
}
