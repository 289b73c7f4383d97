package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/knockknock/internal/config"
	"github.com/dropDatabas3/knockknock/internal/http/handlers"
	"github.com/dropDatabas3/knockknock/internal/http/router"
	"github.com/dropDatabas3/knockknock/internal/metrics"
	"github.com/dropDatabas3/knockknock/internal/observability/logger"
	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/consumer"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
	"github.com/dropDatabas3/knockknock/internal/rate"
	"github.com/dropDatabas3/knockknock/internal/store"
	"github.com/dropDatabas3/knockknock/internal/store/pg"
)

var version = "dev"

func main() {
	// .env primero, si existe; el YAML y el entorno mandan después.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "knockknock",
		Short:         "OpenID relying party (consumer) service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta al YAML de configuración")

	root.AddCommand(serveCmd(&cfgPath), discoverCmd(&cfgPath), migrateCmd(&cfgPath), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor demo del relying party",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "knockknock",
				Version:     version,
			})
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			if err := metrics.Register(nil); err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			ctx := cmd.Context()
			scfg := store.Config{Driver: cfg.Store.Driver}
			scfg.Redis.Addr = cfg.Store.Redis.Addr
			scfg.Redis.DB = cfg.Store.Redis.DB
			scfg.Redis.Prefix = cfg.Store.Redis.Prefix
			scfg.PG.DSN = cfg.Store.PG.DSN
			assocStore, err := store.Open(ctx, scfg)
			if err != nil {
				return fmt.Errorf("store: %w", err)
			}

			cons := &consumer.Consumer{
				Discovery: staticDiscovery(cfg.RP.Providers),
				Assoc:     association.NewManager(association.NewHTTPClient()),
				Store:     assocStore,
			}

			var limiter rate.Limiter
			if cfg.RP.LoginRateMax > 0 {
				// Con Redis a mano el límite es global entre réplicas; si
				// no, cada proceso cuenta lo suyo.
				if cfg.Store.Redis.Addr != "" {
					client := rdb.NewClient(&rdb.Options{Addr: cfg.Store.Redis.Addr, DB: cfg.Store.Redis.DB})
					limiter = rate.NewRedisLimiter(client, "", cfg.RP.LoginRateMax, time.Minute)
				} else {
					limiter = rate.NewMemoryLimiter(cfg.RP.LoginRateMax, time.Minute)
				}
			}

			h := router.New(router.Deps{
				LoginLimiter: limiter,
				Login: &handlers.LoginHandler{
					Consumer:     cons,
					Realm:        openid.Realm(cfg.RP.Realm),
					ReturnTo:     cfg.RP.ReturnTo,
					StateSecret:  []byte(cfg.RP.StateSecret),
					RequestEmail: true,
				},
				Callback: &handlers.CallbackHandler{
					Verifier:    handlers.ModeVerifier{},
					StateSecret: []byte(cfg.RP.StateSecret),
				},
			})

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           h,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("relying party listening", logger.String("addr", cfg.Server.Addr), logger.Realm(cfg.RP.Realm))
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-stop:
				log.Info("shutting down")
				shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutCtx)
			}
		},
	}
}

func discoverCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <identifier>",
		Short: "Muestra los endpoints configurados para un identificador",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			id, err := openid.Normalize(args[0])
			if err != nil {
				return err
			}
			eps, err := staticDiscovery(cfg.RP.Providers).Discover(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(eps) == 0 {
				return fmt.Errorf("no endpoints for %s", id)
			}
			for _, ep := range eps {
				fmt.Printf("%s\t%s\tdirected=%v\n", ep.URL, ep.Version.String(), ep.DirectedIdentity)
			}
			return nil
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones del store de asociaciones (driver pg)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Store.PG.DSN == "" {
				return fmt.Errorf("migrate: store.pg.dsn is required")
			}
			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.Store.PG.DSN)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer pool.Close()
			if err := pg.ApplyMigrations(ctx, pool); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(*cobra.Command, []string) {
			fmt.Println("knockknock", version)
		},
	}
}

// staticDiscovery arma la tabla estática identificador → endpoints desde la
// configuración. El discovery dinámico (Yadis/HTML) se inyecta por fuera.
func staticDiscovery(providers []config.Provider) discovery.Discoverer {
	table := make(discovery.Static)
	for _, p := range providers {
		id, err := openid.Normalize(p.Identifier)
		if err != nil {
			continue
		}
		table[id] = append(table[id], discovery.Endpoint{
			ClaimedID:        id,
			LocalID:          p.LocalID,
			URL:              p.URL,
			Version:          openid.Version(p.Version),
			DirectedIdentity: p.Directed,
		})
	}
	return table
}
