package association

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/knockknock/internal/metrics"
	"github.com/dropDatabas3/knockknock/internal/openid"
	"github.com/dropDatabas3/knockknock/internal/openid/discovery"
)

// Result is the outcome of one handshake attempt: exactly one of the three
// branches is populated. RetryWith carries provider-suggested parameters for
// a single follow-up attempt; the manager performs that retry once, never
// recursively.
type Result struct {
	// Assoc is set on success.
	Assoc *Association

	// RetryWith is set when the provider rejected our parameters but told
	// us which ones it would accept.
	RetryWith *Params

	// Err is set on definitive failure.
	Err error
}

// Params are the negotiable handshake parameters.
type Params struct {
	AssocType   string
	SessionType string
}

// DefaultParams is the opening bid for v2 endpoints.
var DefaultParams = Params{AssocType: TypeHMACSHA256, SessionType: SessionNone}

// Client performs one associate exchange against a provider endpoint.
// Implementations doing DH sessions plug in behind this interface.
type Client interface {
	Handshake(ctx context.Context, ep discovery.Endpoint, p Params) Result
}

// HTTPClient is the default handshake client. It POSTs a direct associate
// message and parses the kv-form response, including the unsupported-type
// error that carries retry hints. It only speaks the no-encryption session:
// it refuses to send the MAC key request over plain http, and a retry hint
// naming a DH session type fails instead of producing a malformed request.
type HTTPClient struct {
	HTTP *http.Client
}

// NewHTTPClient returns a handshake client with a sane request timeout.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{HTTP: &http.Client{Timeout: 10 * time.Second}}
}

func (c *HTTPClient) Handshake(ctx context.Context, ep discovery.Endpoint, p Params) Result {
	start := time.Now()
	res := c.handshake(ctx, ep, p)
	metrics.ObserveHandshake(time.Since(start), res.Err == nil && res.Assoc != nil)
	return res
}

func (c *HTTPClient) handshake(ctx context.Context, ep discovery.Endpoint, p Params) Result {
	// This client only speaks no-encryption. A DH session type (including
	// one hinted by the provider) fails definitively here instead of going
	// out on the wire without the DH public key.
	if p.SessionType != SessionNone {
		return Result{Err: fmt.Errorf("association: session type %q not supported by this client", p.SessionType)}
	}
	if !strings.HasPrefix(ep.URL, "https://") {
		return Result{Err: fmt.Errorf("association: refusing no-encryption session over insecure endpoint %s", ep.URL)}
	}

	form := url.Values{}
	form.Set(openid.KeyMode, openid.ModeAssociate)
	if ep.Version.Major() >= 2 {
		form.Set(openid.KeyNS, openid.NamespaceV2)
	}
	form.Set(openid.KeyAssocType, p.AssocType)
	form.Set(openid.KeySessionType, p.SessionType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{Err: fmt.Errorf("association: build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("association: associate call to %s: %w", ep.URL, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Result{Err: fmt.Errorf("association: read associate response: %w", err)}
	}
	msg, err := openid.ParseKVForm(string(body))
	if err != nil {
		return Result{Err: fmt.Errorf("association: %w", err)}
	}

	// Error responses come back with HTTP 400 on v2; v1 providers answer
	// 200 with an error field. Handle both through the kv body.
	if ec := msg.Get("error_code"); ec != "" || msg.Get("error") != "" {
		if ec == "unsupported-type" {
			hint := Params{AssocType: msg.Get("assoc_type"), SessionType: msg.Get("session_type")}
			if hint.AssocType != "" || hint.SessionType != "" {
				return Result{
					RetryWith: &hint,
					Err:       fmt.Errorf("association: provider rejected %s/%s", p.AssocType, p.SessionType),
				}
			}
		}
		return Result{Err: &openid.ProtocolError{Message: "associate refused: " + msg.Get("error")}}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{Err: fmt.Errorf("association: associate returned status %d", resp.StatusCode)}
	}

	assoc, err := parseSuccess(msg, p)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Assoc: assoc}
}

func parseSuccess(msg *openid.Message, p Params) (*Association, error) {
	handle := msg.Get("assoc_handle")
	if handle == "" {
		return nil, fmt.Errorf("association: response missing assoc_handle")
	}
	assocType := msg.Get("assoc_type")
	if assocType == "" {
		assocType = p.AssocType
	}
	expiresIn, err := strconv.ParseInt(msg.Get("expires_in"), 10, 64)
	if err != nil || expiresIn <= 0 {
		return nil, fmt.Errorf("association: bad expires_in %q", msg.Get("expires_in"))
	}
	mac, err := base64.StdEncoding.DecodeString(msg.Get("mac_key"))
	if err != nil || len(mac) == 0 {
		return nil, fmt.Errorf("association: bad mac_key in response")
	}
	return &Association{
		Handle:  handle,
		Type:    assocType,
		Secret:  mac,
		Expires: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
