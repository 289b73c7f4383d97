// Package store provee los backends de persistencia de asociaciones.
//
// Soporta:
//   - memory (in-process, para desarrollo/testing y single-instance)
//   - redis  (compartido entre instancias del relying party)
//   - pg     (compartido y durable)
//
// Todos implementan association.Store; el driver se elige por configuración.
package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/store/memory"
	"github.com/dropDatabas3/knockknock/internal/store/pg"
	"github.com/dropDatabas3/knockknock/internal/store/redis"
)

// Config selecciona y parametriza el backend.
type Config struct {
	Driver string // "memory" | "redis" | "pg" | "" (sin store: modo stateless)

	Redis struct {
		Addr   string
		DB     int
		Prefix string
	}

	PG struct {
		DSN string
	}
}

// Open construye el store según cfg.Driver. Un driver vacío devuelve
// (nil, nil): configuración legal que deshabilita cache y liveness probing.
func Open(ctx context.Context, cfg Config) (association.Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "memory":
		return memory.New(), nil
	case "redis":
		return redis.New(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Prefix), nil
	case "pg":
		return pg.New(ctx, cfg.PG.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
