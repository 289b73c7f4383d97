package redis

import (
	"context"
	"encoding/json"
	"errors"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/knockknock/internal/openid/association"
)

// Store guarda asociaciones en Redis, serializadas como JSON y con TTL igual
// a la vida restante. Varias instancias del relying party pueden compartirlo;
// last-writer-wins ante puts concurrentes es aceptable.
type Store struct {
	c      *rdb.Client
	prefix string
}

// New crea un store sobre Redis.
func New(addr string, db int, prefix string) *Store {
	if prefix == "" {
		prefix = "openid:assoc:"
	}
	return &Store{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix: prefix}
}

func (s *Store) Get(ctx context.Context, endpointURL string) (*association.Association, error) {
	b, err := s.c.Get(ctx, s.prefix+endpointURL).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a association.Association
	if err := json.Unmarshal(b, &a); err != nil {
		// Entrada corrupta: tratarla como miss en vez de romper el login.
		_ = s.c.Del(ctx, s.prefix+endpointURL).Err()
		return nil, nil
	}
	return &a, nil
}

func (s *Store) Put(ctx context.Context, endpointURL string, assoc *association.Association) error {
	ttl := assoc.TTL()
	if ttl <= 0 {
		return s.c.Del(ctx, s.prefix+endpointURL).Err()
	}
	b, err := json.Marshal(assoc)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, s.prefix+endpointURL, b, ttl).Err()
}

// Close cierra la conexión.
func (s *Store) Close() error { return s.c.Close() }
