package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/knockknock/internal/observability/logger"
	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/consumer"
	"github.com/dropDatabas3/knockknock/internal/openid/extension"
	tokens "github.com/dropDatabas3/knockknock/internal/security/token"
	"github.com/dropDatabas3/knockknock/internal/util"
)

// CallbackHandler resolves the provider's indirect response. The heavy
// verification (signature, endpoint match, replay) is delegated to the
// injected Verifier; this handler only enforces the state-cookie binding and
// shapes the output.
type CallbackHandler struct {
	Verifier    consumer.Verifier
	StateSecret []byte
}

type callbackResult struct {
	Status    string            `json:"status"`
	Identity  string            `json:"identity,omitempty"`
	SRegAttrs map[string]string `json:"sreg,omitempty"`
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	cookie, err := r.Cookie(stateCookie)
	if err != nil {
		http.Error(w, "missing login state", http.StatusBadRequest)
		return
	}
	st, err := parseState(h.StateSecret, cookie.Value)
	if err != nil {
		log.Warn("bad state cookie", logger.Err(err))
		http.Error(w, "invalid login state", http.StatusBadRequest)
		return
	}

	values := r.URL.Query()
	// The nonce must round-trip through return_to AND hash to what the
	// cookie holds; either missing means this callback wasn't started by us.
	if nonce := values.Get("knock.nonce"); nonce == "" || tokens.SHA256Base64URL(nonce) != st.NonceHash {
		http.Error(w, "correlation mismatch", http.StatusBadRequest)
		return
	}

	resp, err := h.Verifier.Verify(values)
	if err != nil {
		log.Warn("callback verification failed", logger.OPEndpoint(st.OPEndpoint), logger.Err(err))
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	// Clear the one-shot state cookie.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	out := callbackResult{Status: resp.Status.String()}
	if resp.Status == consumer.StatusAuthenticated {
		out.Identity = resp.IdentityURL
		if attrs := resp.ExtensionArgs(extension.SRegNamespace); len(attrs) > 0 {
			out.SRegAttrs = attrs
		}
		log.Info("authenticated",
			logger.ClaimedID(resp.IdentityURL),
			logger.OPEndpoint(st.OPEndpoint),
			logger.String("email", util.MaskEmail(out.SRegAttrs["email"])))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// ModeVerifier maps the callback's openid.mode to a status WITHOUT any
// cryptographic verification. It exists so the demo server works against
// test providers; production deployments must inject a real Verifier
// (signature check + discovered-endpoint match + nonce replay).
type ModeVerifier struct{}

func (ModeVerifier) Verify(values url.Values) (*consumer.Response, error) {
	msg := openid.FromValues(values)
	switch msg.Get(openid.KeyMode) {
	case "id_res":
		identity := msg.Get(openid.KeyClaimedID)
		if identity == "" {
			identity = msg.Get(openid.KeyIdentity)
		}
		return consumer.NewResponse(consumer.StatusAuthenticated, identity, msg), nil
	case "cancel":
		return consumer.NewResponse(consumer.StatusCanceled, "", msg), nil
	case "setup_needed", "user_setup_needed":
		return consumer.NewResponse(consumer.StatusSetupRequired, "", msg), nil
	default:
		return consumer.NewResponse(consumer.StatusFailed, "", msg), nil
	}
}
