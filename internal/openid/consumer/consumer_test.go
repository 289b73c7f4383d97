package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
)

func newTestConsumer(d discovery.Discoverer, store association.Store, client association.Client) *Consumer {
	if client == nil {
		client = &scriptedClient{up: map[string]bool{}}
	}
	return &Consumer{
		Discovery: d,
		Assoc:     association.NewManager(client),
		Store:     store,
	}
}

func TestCreateChecksRealmBeforeDiscovery(t *testing.T) {
	d := discovery.DiscovererFunc(func(context.Context, string) ([]discovery.Endpoint, error) {
		t.Fatal("discovery invoked despite realm violation")
		return nil, nil
	})
	c := newTestConsumer(d, nil, nil)

	_, err := c.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), "https://evil.com/cb")
	if !openid.IsConfigError(err) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestCreateRejectsMissingInputs(t *testing.T) {
	c := newTestConsumer(discovery.Static{}, nil, nil)
	if _, err := c.Create(context.Background(), "", openid.Realm("https://example.com/"), "https://example.com/cb"); !openid.IsConfigError(err) {
		t.Fatalf("empty identifier: %v", err)
	}
	if _, err := c.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), ""); !openid.IsConfigError(err) {
		t.Fatalf("empty return_to: %v", err)
	}
	// A fragment would swallow callback args appended to the query.
	if _, err := c.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), "https://example.com/cb#frag"); !openid.IsConfigError(err) {
		t.Fatalf("return_to with fragment: %v", err)
	}
	bare := &Consumer{}
	if _, err := bare.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), "https://example.com/cb"); !openid.IsConfigError(err) {
		t.Fatalf("missing collaborators: %v", err)
	}
}

func TestCreateNoEndpoints(t *testing.T) {
	c := newTestConsumer(discovery.Static{}, nil, nil)
	_, err := c.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), "https://example.com/cb")
	if !errors.Is(err, openid.ErrNoEndpoint) {
		t.Fatalf("err = %v, want ErrNoEndpoint", err)
	}
}

// Scenario from the protocol docs: one v2 endpoint, no store. The rendered
// message must carry mode/claimed_id and no assoc_handle.
func TestCreateStatelessV2Scenario(t *testing.T) {
	d := discovery.Static{
		"http://example.com/alice": {{
			ClaimedID: "http://example.com/alice",
			URL:       "https://op.test/auth",
			Version:   openid.V2,
		}},
	}
	c := newTestConsumer(d, nil, nil)

	req, err := c.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), "https://example.com/cb")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Nonce == "" {
		t.Fatal("no correlation nonce minted")
	}
	if req.Assoc != nil {
		t.Fatal("stateless mode produced an association")
	}

	msg := req.Message()
	if msg.Get(openid.KeyMode) != "checkid_setup" {
		t.Fatalf("mode = %q", msg.Get(openid.KeyMode))
	}
	if msg.Get(openid.KeyClaimedID) != "http://example.com/alice" {
		t.Fatalf("claimed_id = %q", msg.Get(openid.KeyClaimedID))
	}
	if msg.Has(openid.KeyAssocHandle) {
		t.Fatal("assoc_handle present without store")
	}
}

// Scenario: two endpoints, store present, first endpoint down with no retry
// hint, second alive. The second must be selected and its handle rendered.
func TestCreateSelectsLiveEndpointAndRendersItsHandle(t *testing.T) {
	d := discovery.Static{
		"http://example.com/alice": {
			{ClaimedID: "http://example.com/alice", URL: "https://down.test/auth", Version: openid.V2},
			{ClaimedID: "http://example.com/alice", URL: "https://up.test/auth", Version: openid.V2},
		},
	}
	client := &scriptedClient{up: map[string]bool{"https://up.test/auth": true}}
	store := newMemStore()
	c := newTestConsumer(d, store, client)

	req, err := c.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), "https://example.com/cb")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Endpoint.URL != "https://up.test/auth" {
		t.Fatalf("selected %q, want the live endpoint", req.Endpoint.URL)
	}

	msg := req.Message()
	if msg.Get(openid.KeyAssocHandle) != "h-https://up.test/auth" {
		t.Fatalf("assoc_handle = %q", msg.Get(openid.KeyAssocHandle))
	}

	// Selection already handshook once; Create must not handshake again.
	if n := len(client.calls); n != 2 {
		t.Fatalf("handshake calls = %d (%v), want 2 liveness checks only", n, client.calls)
	}
}

func TestCreateStripsFragmentBeforeDiscovery(t *testing.T) {
	var asked string
	d := discovery.DiscovererFunc(func(_ context.Context, id string) ([]discovery.Endpoint, error) {
		asked = id
		return []discovery.Endpoint{{ClaimedID: id, URL: "https://op.test/auth", Version: openid.V2}}, nil
	})
	c := newTestConsumer(d, nil, nil)

	_, err := c.Create(context.Background(), "https://example.com/alice#me", openid.Realm("https://example.com/"), "https://example.com/cb")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if asked != "https://example.com/alice" {
		t.Fatalf("discovery asked for %q, fragment not stripped", asked)
	}
}

func TestCreateDiscoveryFailureIsProtocolError(t *testing.T) {
	d := discovery.DiscovererFunc(func(context.Context, string) ([]discovery.Endpoint, error) {
		return nil, errors.New("yadis timeout")
	})
	c := newTestConsumer(d, nil, nil)
	_, err := c.Create(context.Background(), "example.com/alice", openid.Realm("https://example.com/"), "https://example.com/cb")
	var pe *openid.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}
