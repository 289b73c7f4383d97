// Package handlers exposes the demo relying-party HTTP surface: a login
// endpoint that kicks the browser to the user's provider and a callback that
// resolves the provider's answer into a status.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/knockknock/internal/observability/logger"
	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/consumer"
	"github.com/dropDatabas3/knockknock/internal/openid/extension"
	tokens "github.com/dropDatabas3/knockknock/internal/security/token"
)

// LoginHandler starts an authentication attempt from a posted identifier.
type LoginHandler struct {
	Consumer *consumer.Consumer

	Realm    openid.Realm
	ReturnTo string

	// StateSecret signs the state cookie binding nonce→endpoint.
	StateSecret []byte

	// StateTTL bounds how long a login round trip may take. Zero means
	// 15 minutes.
	StateTTL time.Duration

	// RequestEmail attaches an sreg request for the user's email.
	RequestEmail bool
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	identifier := r.PostFormValue("openid_identifier")
	log := logger.From(r.Context())

	req, err := h.Consumer.Create(r.Context(), identifier, h.Realm, h.ReturnTo)
	if err != nil {
		switch {
		case openid.IsConfigError(err):
			log.Error("relying party misconfigured", logger.Err(err))
			http.Error(w, "relying party misconfigured", http.StatusInternalServerError)
		case errors.Is(err, openid.ErrNoEndpoint):
			http.Error(w, "no OpenID provider found for that identifier", http.StatusUnprocessableEntity)
		default:
			log.Warn("auth request failed", logger.ClaimedID(identifier), logger.Err(err))
			http.Error(w, "could not contact provider", http.StatusBadGateway)
		}
		return
	}

	if h.RequestEmail {
		if err := req.AddExtension(&extension.SReg{Optional: []string{"email", "nickname"}}); err != nil {
			log.Warn("sreg attach failed", logger.Err(err))
		}
	}
	// Round-trip the nonce through the return_to as well; the callback
	// cross-checks it against the cookie.
	if err := req.AddCallbackArg("knock.nonce", req.Nonce); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ttl := h.StateTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	state, err := signState(h.StateSecret, LoginState{
		NonceHash:  tokens.SHA256Base64URL(req.Nonce),
		OPEndpoint: req.Endpoint.URL,
		ClaimedID:  req.Endpoint.ClaimedID,
	}, ttl)
	if err != nil {
		log.Error("state signing failed", logger.Err(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	redirect, err := req.Redirect(nil)
	if err != nil {
		log.Error("redirect encoding failed", logger.OPEndpoint(req.Endpoint.URL), logger.Err(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Info("redirecting to provider",
		logger.OPEndpoint(req.Endpoint.URL),
		logger.ProtoVersion(req.Endpoint.Version.String()))
	http.Redirect(w, r, redirect.URL, http.StatusFound)
}
