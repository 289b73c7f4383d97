// Package openid holds the protocol-level building blocks shared by the
// relying-party engine: wire constants, the key/value message form, realm
// containment and identifier normalization.
//
// Wire keys are defined by the OpenID Authentication specs (1.1 and 2.0) and
// must match them byte for byte; a wrong literal here is an interop bug, not
// a style choice.
package openid

// Protocol namespaces.
const (
	NamespaceV2 = "http://specs.openid.net/auth/2.0"

	// IdentifierSelect is sent as identity/claimed_id when the provider,
	// not the user, picks the identifier (directed identity).
	IdentifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"
)

// Request modes.
const (
	ModeSetup     = "checkid_setup"
	ModeImmediate = "checkid_immediate"
	ModeAssociate = "associate"
)

// Argument keys. All indirect-message arguments travel under the "openid."
// prefix; extension arguments add their own alias segment after it.
const (
	Prefix = "openid."

	KeyNS          = "openid.ns"
	KeyMode        = "openid.mode"
	KeyIdentity    = "openid.identity"
	KeyClaimedID   = "openid.claimed_id"
	KeyRealm       = "openid.realm"      // protocol v2
	KeyTrustRoot   = "openid.trust_root" // protocol v1
	KeyReturnTo    = "openid.return_to"
	KeyAssocHandle = "openid.assoc_handle"
)

// Associate-exchange keys (direct messages, no "openid." prefix on responses).
const (
	KeyAssocType   = "openid.assoc_type"
	KeySessionType = "openid.session_type"
)

// Version identifies the protocol generation of a provider endpoint.
// Only the major number drives wire-format decisions.
type Version int

const (
	// V1 covers OpenID 1.0/1.1 endpoints: no ns declaration, no claimed_id,
	// trust_root instead of realm.
	V1 Version = 1

	// V2 is OpenID Authentication 2.0.
	V2 Version = 2
)

// Major reports the protocol major version; a zero Version counts as V2,
// which is what discovery yields for modern endpoints.
func (v Version) Major() int {
	if v <= 0 {
		return int(V2)
	}
	return int(v)
}

func (v Version) String() string {
	if v.Major() == 1 {
		return "openid1"
	}
	return "openid2"
}
