package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/security/secretbox"
	migrations "github.com/dropDatabas3/knockknock/migrations/postgres"
)

// Store guarda asociaciones en Postgres (tabla rp_associations, ver
// migrations/postgres). Las MAC keys van cifradas con secretbox; las
// expiradas se filtran en el SELECT y se purgan de forma oportunista en
// cada Put.
type Store struct{ pool *pgxpool.Pool }

// New abre el pool contra dsn. Requiere SECRETBOX_MASTER_KEY: el store
// durable no persiste secretos en claro.
func New(ctx context.Context, dsn string) (*Store, error) {
	if !secretbox.Ready() {
		return nil, fmt.Errorf("pg: SECRETBOX_MASTER_KEY is required for the durable association store")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := ApplyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// ApplyMigrations ejecuta las migraciones embebidas del schema de
// asociaciones. Son idempotentes, así que correrlas en cada arranque es
// seguro; cmd/knockknock migrate las aplica explícitamente.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	ms, err := migrations.Assoc()
	if err != nil {
		return err
	}
	for _, m := range ms {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("pg: migration %s: %w", m.Name, err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, endpointURL string) (*association.Association, error) {
	const q = `
		SELECT handle, assoc_type, secret, expires_at
		FROM rp_associations
		WHERE endpoint_url = $1 AND expires_at > NOW()`

	var a association.Association
	var sealed []byte
	err := s.pool.QueryRow(ctx, q, endpointURL).Scan(&a.Handle, &a.Type, &sealed, &a.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if a.Secret, err = secretbox.Open(sealed); err != nil {
		// Clave rotada o fila corrupta: tratar como miss.
		return nil, nil
	}
	return &a, nil
}

func (s *Store) Put(ctx context.Context, endpointURL string, assoc *association.Association) error {
	const q = `
		INSERT INTO rp_associations (endpoint_url, handle, assoc_type, secret, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (endpoint_url)
		DO UPDATE SET handle = EXCLUDED.handle, assoc_type = EXCLUDED.assoc_type,
		              secret = EXCLUDED.secret, expires_at = EXCLUDED.expires_at`

	sealed, err := secretbox.Seal(assoc.Secret)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, q, endpointURL, assoc.Handle, assoc.Type, sealed, assoc.Expires); err != nil {
		return err
	}
	// Purga oportunista; ignorar errores, es solo limpieza.
	_, _ = s.pool.Exec(ctx, `DELETE FROM rp_associations WHERE expires_at <= NOW() - interval '1 hour'`)
	return nil
}

// Close cierra el pool.
func (s *Store) Close() { s.pool.Close() }
