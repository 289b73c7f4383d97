package consumer

import (
	"net/url"
	"strings"

	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
	"github.com/dropDatabas3/knockknock/internal/openid/extension"
)

// Mode is the authentication mode requested from the provider.
type Mode string

const (
	// Setup lets the provider interact with the user (login page, consent).
	// This is the default.
	Setup Mode = openid.ModeSetup

	// Immediate forbids provider/user interaction; the provider answers
	// setup_needed when it can't authenticate silently.
	Immediate Mode = openid.ModeImmediate
)

// Request is the staged authentication request. It is mutable until the
// first render (Message or Redirect), frozen afterwards: every mutator
// returns ErrFrozen once rendered.
type Request struct {
	// Endpoint is the selected provider endpoint.
	Endpoint discovery.Endpoint

	// Assoc is the association in effect, nil in stateless mode.
	Assoc *association.Association

	// Nonce is the correlation token minted for this request, bound to
	// Endpoint; callers stash it (session, signed cookie) and check it
	// against the provider's callback.
	Nonce string

	realm    openid.Realm
	returnTo string

	mode         Mode
	callbackArgs *openid.Message
	extensions   *extension.Multiplexer
	frozen       bool
}

// newRequest is called by Consumer.Create once endpoint selection and
// association acquisition are done.
func newRequest(ep discovery.Endpoint, assoc *association.Association, realm openid.Realm, returnTo, nonce string) *Request {
	return &Request{
		Endpoint:     ep,
		Assoc:        assoc,
		Nonce:        nonce,
		realm:        realm,
		returnTo:     returnTo,
		mode:         Setup,
		callbackArgs: openid.NewMessage(),
		extensions:   extension.NewMultiplexer(),
	}
}

// SetMode switches between Setup and Immediate.
func (r *Request) SetMode(m Mode) error {
	if r.frozen {
		return openid.ErrFrozen
	}
	if m != Setup && m != Immediate {
		return openid.NewConfigError("unknown mode %q", string(m))
	}
	r.mode = m
	return nil
}

// AddCallbackArg registers an extra argument to round-trip through the
// return_to query. Duplicate keys are a configuration error and leave the
// existing set untouched.
func (r *Request) AddCallbackArg(key, value string) error {
	if r.frozen {
		return openid.ErrFrozen
	}
	if key == "" {
		return openid.NewConfigError("empty callback argument key")
	}
	if r.callbackArgs.Has(key) {
		return openid.NewConfigError("duplicate callback argument %q", key)
	}
	r.callbackArgs.Set(key, value)
	return nil
}

// AddExtension attaches ext's outgoing arguments under its namespace.
func (r *Request) AddExtension(ext extension.Extension) error {
	if r.frozen {
		return openid.ErrFrozen
	}
	return r.extensions.Add(ext)
}

// ReturnTo renders the fully-qualified return location with every callback
// argument appended to its query component.
func (r *Request) ReturnTo() string {
	if r.callbackArgs.Len() == 0 {
		return r.returnTo
	}
	sep := "?"
	if strings.Contains(r.returnTo, "?") {
		sep = "&"
	}
	return r.returnTo + sep + r.callbackArgs.Query()
}

// Message assembles the outgoing wire arguments and freezes the request.
//
// Field presence is version-exact: v1 endpoints get trust_root and neither
// the ns declaration nor claimed_id; v2 endpoints get ns, claimed_id and
// realm. Getting this wrong is an interop bug, so the gate lives in one
// place.
func (r *Request) Message() *openid.Message {
	r.frozen = true

	v2 := r.Endpoint.Version.Major() >= 2
	msg := openid.NewMessage()
	msg.Set(openid.KeyMode, string(r.mode))
	msg.Set(openid.KeyIdentity, r.Endpoint.EffectiveLocalID())
	if v2 {
		msg.Set(openid.KeyNS, openid.NamespaceV2)
		msg.Set(openid.KeyClaimedID, r.Endpoint.EffectiveClaimedID())
		msg.Set(openid.KeyRealm, string(r.realm))
	} else {
		msg.Set(openid.KeyTrustRoot, string(r.realm))
	}
	msg.Set(openid.KeyReturnTo, r.ReturnTo())
	if r.Assoc.Valid() {
		msg.Set(openid.KeyAssocHandle, r.Assoc.Handle)
	}
	r.extensions.AppendTo(msg)
	return msg
}

// Redirect hands the assembled message to enc (the default query encoder
// when nil) and returns the deliverable redirect.
func (r *Request) Redirect(enc Encoder) (*Redirect, error) {
	if enc == nil {
		enc = QueryEncoder{}
	}
	return enc.Encode(r.Endpoint.URL, r.Message())
}

// Encoder turns an assembled argument set into a deliverable response
// object. The engine only ever calls it with the selected endpoint address.
type Encoder interface {
	Encode(endpointURL string, msg *openid.Message) (*Redirect, error)
}

// Redirect is the deliverable: send the browser to URL with 302/303.
type Redirect struct {
	URL string
}

// QueryEncoder renders the message onto the endpoint URL's query string,
// which is how indirect requests travel in both protocol versions.
type QueryEncoder struct{}

func (QueryEncoder) Encode(endpointURL string, msg *openid.Message) (*Redirect, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return nil, openid.NewConfigError("invalid endpoint URL %q: %v", endpointURL, err)
	}
	q := msg.Query()
	if u.RawQuery != "" {
		u.RawQuery = u.RawQuery + "&" + q
	} else {
		u.RawQuery = q
	}
	return &Redirect{URL: u.String()}, nil
}
