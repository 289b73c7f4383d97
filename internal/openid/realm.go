package openid

import (
	"fmt"
	"net/url"
	"strings"
)

// Realm is the URI pattern the relying party presents to the provider as its
// identity. Every return_to used in a request must be contained within it;
// a return_to outside the realm is a configuration error caught before any
// network traffic happens.
type Realm string

// Validate rejects realms the protocol forbids outright.
func (r Realm) Validate() error {
	u, err := url.Parse(string(r))
	if err != nil {
		return fmt.Errorf("openid: invalid realm %q: %w", string(r), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("openid: realm %q must be http or https", string(r))
	}
	if u.Fragment != "" {
		return fmt.Errorf("openid: realm %q must not contain a fragment", string(r))
	}
	if u.Host == "" {
		return fmt.Errorf("openid: realm %q has no host", string(r))
	}
	return nil
}

// Contains reports whether returnTo sits inside the realm: same scheme, a
// host matched literally or by a "*." wildcard, same port, and a path that
// extends the realm's path.
func (r Realm) Contains(returnTo string) bool {
	ru, err := url.Parse(string(r))
	if err != nil {
		return false
	}
	tu, err := url.Parse(returnTo)
	if err != nil {
		return false
	}
	if ru.Scheme != tu.Scheme {
		return false
	}
	if !hostMatches(ru.Host, tu.Host) {
		return false
	}
	rp := ru.Path
	if rp == "" {
		rp = "/"
	}
	tp := tu.Path
	if tp == "" {
		tp = "/"
	}
	if tp == rp {
		return true
	}
	if !strings.HasSuffix(rp, "/") {
		rp += "/"
	}
	return strings.HasPrefix(tp, rp)
}

// hostMatches compares host:port pairs, honoring a "*." wildcard on the
// realm side. "*.example.com" matches "example.com" and any subdomain.
func hostMatches(realmHost, targetHost string) bool {
	rh, rport := splitHostPort(realmHost)
	th, tport := splitHostPort(targetHost)
	if rport != tport {
		return false
	}
	if wild, ok := strings.CutPrefix(rh, "*."); ok {
		return th == wild || strings.HasSuffix(th, "."+wild)
	}
	return rh == th
}

func splitHostPort(h string) (host, port string) {
	if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.Contains(h[i+1:], "]") {
		return h[:i], h[i+1:]
	}
	return h, ""
}
