package consumer

import (
	"net/url"

	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/extension"
)

// Status is the outcome a verified provider callback resolves to. It is a
// closed enumeration: new outcomes get a new constant, never a free-form
// string.
type Status int

const (
	// StatusFailed means verification failed or the provider reported an
	// error.
	StatusFailed Status = iota

	// StatusAuthenticated means the provider vouched for the identity.
	StatusAuthenticated

	// StatusCanceled means the user declined at the provider.
	StatusCanceled

	// StatusSetupRequired answers an Immediate request the provider could
	// not satisfy silently.
	StatusSetupRequired
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusCanceled:
		return "canceled"
	case StatusSetupRequired:
		return "setup_required"
	default:
		return "failed"
	}
}

// Response is the receiving-side contract: the verified outcome of a
// provider callback. Verification itself (signature check, nonce replay,
// discovered-endpoint match) happens in the Verifier capability; this type
// only exposes what verified responses carry.
type Response struct {
	// Status is the verified outcome.
	Status Status

	// IdentityURL is the identity the provider asserted; empty unless
	// Status is StatusAuthenticated.
	IdentityURL string

	msg *openid.Message
}

// NewResponse builds a response around the callback's wire arguments.
// Intended for Verifier implementations and tests.
func NewResponse(status Status, identityURL string, msg *openid.Message) *Response {
	if msg == nil {
		msg = openid.NewMessage()
	}
	return &Response{Status: status, IdentityURL: identityURL, msg: msg}
}

// ExtensionArgs returns the callback arguments the given extension namespace
// carried, keys normalized without the protocol prefix or alias. Empty map
// when the extension is absent.
func (r *Response) ExtensionArgs(namespace string) map[string]string {
	return extension.ResponseArgs(r.msg, namespace)
}

// Arg exposes a raw callback argument (prefixed key) for callers that need
// protocol fields the contract doesn't model.
func (r *Response) Arg(key string) string { return r.msg.Get(key) }

// Verifier validates a raw provider callback and resolves it to a Response.
// The cryptographic and replay checks live behind this capability.
type Verifier interface {
	Verify(values url.Values) (*Response, error)
}
