package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/association"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
)

// scriptedClient answers the associate handshake per endpoint URL.
type scriptedClient struct {
	mu    sync.Mutex
	up    map[string]bool
	calls []string
}

func (c *scriptedClient) Handshake(_ context.Context, ep discovery.Endpoint, _ association.Params) association.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, ep.URL)
	if c.up[ep.URL] {
		return association.Result{Assoc: &association.Association{
			Handle:  "h-" + ep.URL,
			Type:    association.TypeHMACSHA256,
			Secret:  []byte("k"),
			Expires: time.Now().Add(time.Hour),
		}}
	}
	return association.Result{Err: context.DeadlineExceeded}
}

type memStore struct {
	mu sync.Mutex
	m  map[string]*association.Association
}

func newMemStore() *memStore { return &memStore{m: make(map[string]*association.Association)} }

func (s *memStore) Get(_ context.Context, k string) (*association.Association, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[k], nil
}

func (s *memStore) Put(_ context.Context, k string, a *association.Association) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[k] = a
	return nil
}

func eps(urls ...string) []discovery.Endpoint {
	out := make([]discovery.Endpoint, len(urls))
	for i, u := range urls {
		out[i] = discovery.Endpoint{ClaimedID: "https://example.com/alice", URL: u, Version: openid.V2}
	}
	return out
}

func byURLDesc(a, b discovery.Endpoint) bool { return a.URL > b.URL }
func byURLAsc(a, b discovery.Endpoint) bool  { return a.URL < b.URL }

func TestSelectNoStoreReturnsBestSorted(t *testing.T) {
	candidates := eps("https://b.test/op", "https://a.test/op", "https://c.test/op")

	got := SelectEndpoint(context.Background(), candidates, nil, byURLDesc, nil, nil)
	if got == nil || got.URL != "https://c.test/op" {
		t.Fatalf("got %+v, want maximal element under order", got)
	}

	// Input must not be reordered.
	if candidates[0].URL != "https://b.test/op" {
		t.Fatal("selection mutated the input slice")
	}
}

func TestSelectEmptyAndFilteredOut(t *testing.T) {
	if got := SelectEndpoint(context.Background(), nil, nil, nil, nil, nil); got != nil {
		t.Fatalf("empty input selected %+v", got)
	}
	none := func(discovery.Endpoint) bool { return false }
	if got := SelectEndpoint(context.Background(), eps("https://a.test/op"), none, nil, nil, nil); got != nil {
		t.Fatalf("all-rejecting filter selected %+v", got)
	}
}

func TestSelectPicksFirstLiveCandidate(t *testing.T) {
	candidates := eps("https://a.test/op", "https://b.test/op", "https://c.test/op")
	client := &scriptedClient{up: map[string]bool{"https://b.test/op": true}}
	store := newMemStore()

	got := SelectEndpoint(context.Background(), candidates, nil, byURLAsc, store, association.NewManager(client))
	if got == nil || got.URL != "https://b.test/op" {
		t.Fatalf("got %+v, want the one live endpoint", got)
	}
	// Probing must run in sorted order and stop at first success.
	want := []string{"https://a.test/op", "https://b.test/op"}
	if len(client.calls) != len(want) {
		t.Fatalf("probe calls = %v", client.calls)
	}
	for i := range want {
		if client.calls[i] != want[i] {
			t.Fatalf("probe order = %v, want %v", client.calls, want)
		}
	}
}

func TestSelectLiveCandidateWinsRegardlessOfSortPosition(t *testing.T) {
	candidates := eps("https://a.test/op", "https://z.test/op")
	client := &scriptedClient{up: map[string]bool{"https://a.test/op": true}}
	store := newMemStore()

	// Sorted descending, z first; but only a is alive.
	got := SelectEndpoint(context.Background(), candidates, nil, byURLDesc, store, association.NewManager(client))
	if got == nil || got.URL != "https://a.test/op" {
		t.Fatalf("got %+v, want the live endpoint", got)
	}
}

func TestSelectFallsBackToFirstRawCandidate(t *testing.T) {
	// Filter removes the raw-first candidate, sort favors c; nothing is
	// reachable, so the fallback is the raw first — not the filtered or
	// sorted first.
	candidates := eps("https://raw-first.test/op", "https://b.test/op", "https://c.test/op")
	filter := func(ep discovery.Endpoint) bool { return ep.URL != "https://raw-first.test/op" }
	client := &scriptedClient{up: map[string]bool{}}
	store := newMemStore()

	got := SelectEndpoint(context.Background(), candidates, filter, byURLDesc, store, association.NewManager(client))
	if got == nil || got.URL != "https://raw-first.test/op" {
		t.Fatalf("got %+v, want degraded fallback to raw first", got)
	}
}

func TestSelectDeterministicStableSort(t *testing.T) {
	// Equal under the comparator: stable sort must keep discovery order.
	candidates := []discovery.Endpoint{
		{ClaimedID: "a", URL: "https://x.test/op", Version: openid.V2},
		{ClaimedID: "b", URL: "https://x.test/op", Version: openid.V2},
	}
	same := func(a, b discovery.Endpoint) bool { return false }
	got := SelectEndpoint(context.Background(), candidates, nil, same, nil, nil)
	if got == nil || got.ClaimedID != "a" {
		t.Fatalf("stable order broken: %+v", got)
	}
}
