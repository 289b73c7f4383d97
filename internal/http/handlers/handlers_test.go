package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/consumer"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
	tokens "github.com/dropDatabas3/knockknock/internal/security/token"
)

var testSecret = []byte("unit-test-state-secret")

type deadClient struct{}

func (deadClient) Handshake(context.Context, discovery.Endpoint, association.Params) association.Result {
	return association.Result{Err: context.DeadlineExceeded}
}

func testConsumer(d discovery.Discoverer) *consumer.Consumer {
	return &consumer.Consumer{
		Discovery: d,
		Assoc:     association.NewManager(deadClient{}),
	}
}

func loginHandler(d discovery.Discoverer) *LoginHandler {
	return &LoginHandler{
		Consumer:    testConsumer(d),
		Realm:       openid.Realm("https://rp.test/"),
		ReturnTo:    "https://rp.test/callback",
		StateSecret: testSecret,
	}
}

func postLogin(h http.Handler, identifier string) *httptest.ResponseRecorder {
	form := url.Values{"openid_identifier": {identifier}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestLoginRedirectsToProvider(t *testing.T) {
	d := discovery.Static{
		"http://example.com/alice": {{
			ClaimedID: "http://example.com/alice",
			URL:       "https://op.test/auth",
			Version:   openid.V2,
		}},
	}
	w := postLogin(loginHandler(d), "example.com/alice")

	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "op.test", loc.Host)

	q := loc.Query()
	assert.Equal(t, openid.ModeSetup, q.Get(openid.KeyMode))
	assert.Equal(t, "http://example.com/alice", q.Get(openid.KeyClaimedID))

	rt, err := url.Parse(q.Get(openid.KeyReturnTo))
	require.NoError(t, err)
	nonce := rt.Query().Get("knock.nonce")
	require.NotEmpty(t, nonce, "nonce must ride the return_to")

	// The state cookie must bind that same nonce to the chosen endpoint.
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "state cookie missing")
	st, err := parseState(testSecret, cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, tokens.SHA256Base64URL(nonce), st.NonceHash)
	assert.Equal(t, "https://op.test/auth", st.OPEndpoint)
}

func TestLoginUnknownIdentifier(t *testing.T) {
	w := postLogin(loginHandler(discovery.Static{}), "example.com/nobody")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLoginMisconfiguredRealm(t *testing.T) {
	h := loginHandler(discovery.Static{})
	h.ReturnTo = "https://elsewhere.test/callback" // outside the realm
	w := postLogin(h, "example.com/alice")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func callbackRequest(t *testing.T, secret []byte, st LoginState, query url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/callback?"+query.Encode(), nil)
	if secret != nil {
		signed, err := signState(secret, st, time.Minute)
		require.NoError(t, err)
		r.AddCookie(&http.Cookie{Name: stateCookie, Value: signed})
	}
	return r
}

func TestCallbackAuthenticated(t *testing.T) {
	h := &CallbackHandler{Verifier: ModeVerifier{}, StateSecret: testSecret}
	st := LoginState{NonceHash: tokens.SHA256Base64URL("n-1"), OPEndpoint: "https://op.test/auth", ClaimedID: "http://example.com/alice"}
	q := url.Values{
		"knock.nonce":       {"n-1"},
		"openid.mode":       {"id_res"},
		"openid.claimed_id": {"http://example.com/alice"},
		"openid.ns.sreg":    {"http://openid.net/extensions/sreg/1.1"},
		"openid.sreg.email": {"alice@example.com"},
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, callbackRequest(t, testSecret, st, q))
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Status   string            `json:"status"`
		Identity string            `json:"identity"`
		SReg     map[string]string `json:"sreg"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "authenticated", out.Status)
	assert.Equal(t, "http://example.com/alice", out.Identity)
	assert.Equal(t, "alice@example.com", out.SReg["email"])

	// One-shot cookie must be cleared.
	for _, c := range w.Result().Cookies() {
		if c.Name == stateCookie {
			assert.Less(t, c.MaxAge, 0, "state cookie not cleared")
		}
	}
}

func TestCallbackCanceled(t *testing.T) {
	h := &CallbackHandler{Verifier: ModeVerifier{}, StateSecret: testSecret}
	st := LoginState{NonceHash: tokens.SHA256Base64URL("n-1")}
	q := url.Values{"knock.nonce": {"n-1"}, "openid.mode": {"cancel"}}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, callbackRequest(t, testSecret, st, q))
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "canceled", out["status"])
}

func TestCallbackRejectsBadState(t *testing.T) {
	h := &CallbackHandler{Verifier: ModeVerifier{}, StateSecret: testSecret}

	// No cookie at all.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, callbackRequest(t, nil, LoginState{}, url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Cookie signed with a different secret.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, callbackRequest(t, []byte("other"), LoginState{NonceHash: tokens.SHA256Base64URL("n")}, url.Values{"knock.nonce": {"n"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nonce in the query does not hash to what the cookie holds.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, callbackRequest(t, testSecret, LoginState{NonceHash: tokens.SHA256Base64URL("n-1")}, url.Values{"knock.nonce": {"stolen"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModeVerifierMapping(t *testing.T) {
	cases := map[string]consumer.Status{
		"id_res":       consumer.StatusAuthenticated,
		"cancel":       consumer.StatusCanceled,
		"setup_needed": consumer.StatusSetupRequired,
		"error":        consumer.StatusFailed,
	}
	for mode, want := range cases {
		resp, err := (ModeVerifier{}).Verify(url.Values{"openid.mode": {mode}})
		require.NoError(t, err, mode)
		assert.Equal(t, want, resp.Status, mode)
	}
}

func TestStateExpiry(t *testing.T) {
	signed, err := signState(testSecret, LoginState{NonceHash: tokens.SHA256Base64URL("n")}, -time.Minute)
	require.NoError(t, err)
	_, err = parseState(testSecret, signed)
	assert.Error(t, err, "expired state accepted")
}
