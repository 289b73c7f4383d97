package consumer

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
	"github.com/dropDatabas3/knockknock/internal/openid/extension"
)

func v2Endpoint() discovery.Endpoint {
	return discovery.Endpoint{
		ClaimedID: "https://example.com/alice",
		URL:       "https://op.test/auth",
		Version:   openid.V2,
	}
}

func v1Endpoint() discovery.Endpoint {
	ep := v2Endpoint()
	ep.Version = openid.V1
	return ep
}

func stage(ep discovery.Endpoint, assoc *association.Association) *Request {
	return newRequest(ep, assoc, openid.Realm("https://example.com/"), "https://example.com/cb", "nonce-1")
}

func TestMessageVersionGatingV2(t *testing.T) {
	msg := stage(v2Endpoint(), nil).Message()

	if msg.Get(openid.KeyMode) != openid.ModeSetup {
		t.Fatalf("default mode = %q, want checkid_setup", msg.Get(openid.KeyMode))
	}
	if msg.Get(openid.KeyNS) != openid.NamespaceV2 {
		t.Fatal("v2 message missing ns declaration")
	}
	if msg.Get(openid.KeyClaimedID) != "https://example.com/alice" {
		t.Fatal("v2 message missing claimed_id")
	}
	if msg.Get(openid.KeyRealm) != "https://example.com/" {
		t.Fatal("v2 message missing realm")
	}
	if msg.Has(openid.KeyTrustRoot) {
		t.Fatal("v2 message carries v1 trust_root")
	}
	if msg.Has(openid.KeyAssocHandle) {
		t.Fatal("assoc_handle present without an association")
	}
}

func TestMessageVersionGatingV1(t *testing.T) {
	msg := stage(v1Endpoint(), nil).Message()

	if msg.Has(openid.KeyNS) {
		t.Fatal("v1 message carries ns declaration")
	}
	if msg.Has(openid.KeyClaimedID) {
		t.Fatal("v1 message carries claimed_id")
	}
	if msg.Get(openid.KeyTrustRoot) != "https://example.com/" {
		t.Fatal("v1 message missing trust_root")
	}
	if msg.Has(openid.KeyRealm) {
		t.Fatal("v1 message carries v2 realm key")
	}
}

func TestMessageIncludesValidAssociationHandle(t *testing.T) {
	assoc := &association.Association{
		Handle: "h-77", Type: association.TypeHMACSHA256,
		Secret: []byte("k"), Expires: time.Now().Add(time.Hour),
	}
	msg := stage(v2Endpoint(), assoc).Message()
	if msg.Get(openid.KeyAssocHandle) != "h-77" {
		t.Fatal("assoc_handle missing")
	}

	expired := &association.Association{Handle: "dead", Expires: time.Now().Add(-time.Minute)}
	msg = stage(v2Endpoint(), expired).Message()
	if msg.Has(openid.KeyAssocHandle) {
		t.Fatal("expired association leaked into the message")
	}
}

func TestCallbackArgsRoundTrip(t *testing.T) {
	req := stage(v2Endpoint(), nil)
	if err := req.AddCallbackArg("janrain_nonce", "abc 123"); err != nil {
		t.Fatalf("AddCallbackArg: %v", err)
	}
	if err := req.AddCallbackArg("next", "/dashboard"); err != nil {
		t.Fatalf("AddCallbackArg: %v", err)
	}

	msg := req.Message()
	rt, err := url.Parse(msg.Get(openid.KeyReturnTo))
	if err != nil {
		t.Fatalf("return_to does not parse: %v", err)
	}
	q := rt.Query()
	if q.Get("janrain_nonce") != "abc 123" || q.Get("next") != "/dashboard" {
		t.Fatalf("callback args mangled: %v", q)
	}
}

func TestDuplicateCallbackArgRejectedWithoutMutation(t *testing.T) {
	req := stage(v2Endpoint(), nil)
	if err := req.AddCallbackArg("k", "first"); err != nil {
		t.Fatalf("AddCallbackArg: %v", err)
	}
	err := req.AddCallbackArg("k", "second")
	if !openid.IsConfigError(err) {
		t.Fatalf("duplicate key error = %v, want ConfigError", err)
	}
	if got := url.QueryEscape("first"); !strings.Contains(req.ReturnTo(), "k="+got) {
		t.Fatalf("original value lost: %s", req.ReturnTo())
	}
}

func TestMutatorsRejectedAfterRender(t *testing.T) {
	req := stage(v2Endpoint(), nil)
	_ = req.Message()

	if err := req.AddCallbackArg("late", "x"); !errors.Is(err, openid.ErrFrozen) {
		t.Fatalf("AddCallbackArg after render = %v", err)
	}
	if err := req.SetMode(Immediate); !errors.Is(err, openid.ErrFrozen) {
		t.Fatalf("SetMode after render = %v", err)
	}
	if err := req.AddExtension(&extension.SReg{Optional: []string{"email"}}); !errors.Is(err, openid.ErrFrozen) {
		t.Fatalf("AddExtension after render = %v", err)
	}
}

func TestImmediateModeAndDirectedIdentity(t *testing.T) {
	ep := v2Endpoint()
	ep.DirectedIdentity = true
	req := stage(ep, nil)
	if err := req.SetMode(Immediate); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	msg := req.Message()
	if msg.Get(openid.KeyMode) != openid.ModeImmediate {
		t.Fatal("mode not switched")
	}
	if msg.Get(openid.KeyIdentity) != openid.IdentifierSelect || msg.Get(openid.KeyClaimedID) != openid.IdentifierSelect {
		t.Fatal("directed identity must send identifier_select")
	}
}

func TestRedirectEncodesOntoEndpoint(t *testing.T) {
	req := stage(v2Endpoint(), nil)
	red, err := req.Redirect(nil)
	if err != nil {
		t.Fatalf("Redirect: %v", err)
	}
	u, err := url.Parse(red.URL)
	if err != nil {
		t.Fatalf("redirect URL does not parse: %v", err)
	}
	if u.Host != "op.test" || u.Path != "/auth" {
		t.Fatalf("redirect target wrong: %s", red.URL)
	}
	if u.Query().Get(openid.KeyMode) != openid.ModeSetup {
		t.Fatal("mode missing from redirect query")
	}
}

func TestExtensionArgsAppendedToMessage(t *testing.T) {
	req := stage(v2Endpoint(), nil)
	if err := req.AddExtension(&extension.SReg{Required: []string{"email"}, Optional: []string{"nickname"}}); err != nil {
		t.Fatalf("AddExtension: %v", err)
	}
	msg := req.Message()
	if msg.Get("openid.ns.sreg") != extension.SRegNamespace {
		t.Fatal("sreg ns declaration missing")
	}
	if msg.Get("openid.sreg.required") != "email" {
		t.Fatalf("sreg.required = %q", msg.Get("openid.sreg.required"))
	}
	if msg.Get("openid.sreg.optional") != "nickname" {
		t.Fatalf("sreg.optional = %q", msg.Get("openid.sreg.optional"))
	}
}
