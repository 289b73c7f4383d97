package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/knockknock/internal/http/handlers"
	mw "github.com/dropDatabas3/knockknock/internal/http/middlewares"
	"github.com/dropDatabas3/knockknock/internal/rate"
)

// Deps contiene las dependencias del router del relying party.
type Deps struct {
	Login    *handlers.LoginHandler
	Callback *handlers.CallbackHandler

	// LoginLimiter limita POST /login por IP; nil deshabilita.
	LoginLimiter rate.Limiter
}

// New arma el router demo: login, callback, health y métricas.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Method(http.MethodPost, "/login", mw.Chain(rpHandler(deps.Login), mw.WithRateLimit(deps.LoginLimiter)))
	r.Method(http.MethodGet, "/callback", rpHandler(deps.Callback))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rpHandler crea el middleware chain para los endpoints del flujo OpenID.
func rpHandler(h http.Handler) http.Handler {
	return mw.Chain(h,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
	)
}
