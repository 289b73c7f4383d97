package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	// Identidad del relying party hacia los providers.
	RP struct {
		// Realm es el patrón URI que representa a este sitio
		// (ej: "https://example.com/").
		Realm string `yaml:"realm"`

		// ReturnTo es la URL de callback; debe estar contenida en Realm.
		ReturnTo string `yaml:"return_to"`

		// StateSecret firma la cookie de estado (JWT) que ata el nonce
		// al endpoint seleccionado. Obligatorio para el servidor demo.
		StateSecret string `yaml:"state_secret"`

		// Providers fija la tabla estática identificador → endpoints
		// cuando no hay discovery dinámico.
		Providers []Provider `yaml:"providers"`

		// LoginRateMax limita POST /login por IP por minuto; 0 deshabilita.
		LoginRateMax int `yaml:"login_rate_max"`
	} `yaml:"rp"`

	Store struct {
		// "" (stateless) | memory | redis | pg
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		PG struct {
			DSN string `yaml:"dsn"`
		} `yaml:"pg"`
	} `yaml:"store"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Provider es una entrada de la tabla estática de discovery.
type Provider struct {
	Identifier string `yaml:"identifier"`
	URL        string `yaml:"url"`
	LocalID    string `yaml:"local_id"`
	Version    int    `yaml:"version"`
	Directed   bool   `yaml:"directed"`
}

// Load lee el YAML, aplica defaults y overrides de entorno. Un path vacío
// arranca solo con defaults + entorno.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Driver == "redis" && c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}

	c.applyEnvOverrides()
	return &c, nil
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func getEnvInt(key string) (int, bool) {
	v, ok := getEnvStr(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("RP_REALM"); ok {
		c.RP.Realm = v
	}
	if v, ok := getEnvStr("RP_RETURN_TO"); ok {
		c.RP.ReturnTo = v
	}
	if v, ok := getEnvStr("RP_STATE_SECRET"); ok {
		c.RP.StateSecret = v
	}
	if v, ok := getEnvInt("RP_LOGIN_RATE_MAX"); ok {
		c.RP.LoginRateMax = v
	}
	if v, ok := getEnvStr("STORE_DRIVER"); ok {
		c.Store.Driver = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Store.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Store.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Store.Redis.Prefix = v
	}
	if v, ok := getEnvStr("PG_DSN"); ok {
		c.Store.PG.DSN = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// Validate chequea lo mínimo para arrancar el servidor demo.
func (c *Config) Validate() error {
	if c.RP.Realm == "" {
		return fmt.Errorf("config: rp.realm is required")
	}
	if c.RP.ReturnTo == "" {
		return fmt.Errorf("config: rp.return_to is required")
	}
	if c.RP.StateSecret == "" {
		return fmt.Errorf("config: rp.state_secret is required")
	}
	switch c.Store.Driver {
	case "", "memory", "redis", "pg":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}
