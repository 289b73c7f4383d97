package handlers

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// stateCookie is the cookie carrying the signed login state between /login
// and /callback.
const stateCookie = "knock_state"

// LoginState binds the per-request correlation nonce to the endpoint that
// was selected for it, so the callback can check the provider answering is
// the one we sent the user to. Only the nonce's hash travels in the cookie;
// the raw value rides the return_to query.
type LoginState struct {
	NonceHash  string `json:"nonce_sha256"`
	OPEndpoint string `json:"op_endpoint"`
	ClaimedID  string `json:"claimed_id"`
	jwtv5.RegisteredClaims
}

// signState mints the JWT for the state cookie.
func signState(secret []byte, st LoginState, ttl time.Duration) (string, error) {
	st.ExpiresAt = jwtv5.NewNumericDate(time.Now().Add(ttl))
	st.IssuedAt = jwtv5.NewNumericDate(time.Now())
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, st)
	return tok.SignedString(secret)
}

// parseState verifies and decodes the state cookie value.
func parseState(secret []byte, raw string) (*LoginState, error) {
	var st LoginState
	tok, err := jwtv5.ParseWithClaims(raw, &st, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid state token")
	}
	return &st, nil
}
