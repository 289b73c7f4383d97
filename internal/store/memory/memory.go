package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/knockknock/internal/openid/association"
)

// Store guarda asociaciones in-process. El TTL de cada entrada es la vida
// restante de la asociación, así el cache nunca sirve una expirada.
type Store struct{ c *gocache.Cache }

// New crea un store en memoria.
func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (s *Store) Get(_ context.Context, endpointURL string) (*association.Association, error) {
	v, ok := s.c.Get(endpointURL)
	if !ok {
		return nil, nil
	}
	a, _ := v.(*association.Association)
	return a, nil
}

func (s *Store) Put(_ context.Context, endpointURL string, assoc *association.Association) error {
	ttl := assoc.TTL()
	if ttl <= 0 {
		s.c.Delete(endpointURL)
		return nil
	}
	s.c.Set(endpointURL, assoc, ttl)
	return nil
}
