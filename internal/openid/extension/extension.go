// Package extension implements the pluggable extension-argument layer: any
// type exposing a namespace URI and a flat key/value payload can attach
// arguments to an outgoing authentication request, and response arguments
// can be read back per namespace.
package extension

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dropDatabas3/knockknock/internal/openid"
)

// Extension is the capability every pluggable extension implements. The
// engine never depends on concrete extension types, only on this pair.
type Extension interface {
	// Namespace returns the extension's type URI (goes into
	// openid.ns.<alias>).
	Namespace() string

	// Serialize produces the extension's outgoing arguments, keyed without
	// any prefix ("email", not "openid.sreg.email").
	Serialize() (map[string]string, error)
}

// Multiplexer collects per-extension argument sets and merges them into one
// namespaced outgoing set at render time. Aliases are assigned in
// registration order (ext1, ext2, ...) unless the namespace has a well-known
// alias registered via KnownAlias.
type Multiplexer struct {
	namespaces []string
	args       map[string]map[string]string
	aliases    map[string]string
}

// NewMultiplexer returns an empty multiplexer.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		args:    make(map[string]map[string]string),
		aliases: make(map[string]string),
	}
}

// wellKnownAliases maps namespace URIs to the alias the ecosystem expects.
// Anything not listed gets a positional ext<N> alias.
var wellKnownAliases = map[string]string{
	SRegNamespace: "sreg",
	AXNamespace:   "ax",
}

// Add registers ext's serialized arguments. Registering the same namespace
// twice is a configuration error.
func (m *Multiplexer) Add(ext Extension) error {
	ns := ext.Namespace()
	if ns == "" {
		return openid.NewConfigError("extension with empty namespace")
	}
	if _, dup := m.args[ns]; dup {
		return openid.NewConfigError("extension namespace %q already registered", ns)
	}
	payload, err := ext.Serialize()
	if err != nil {
		return err
	}
	m.namespaces = append(m.namespaces, ns)
	m.args[ns] = payload
	return nil
}

// Empty reports whether no extension has been registered.
func (m *Multiplexer) Empty() bool { return len(m.namespaces) == 0 }

// AppendTo writes every registered extension into msg: the ns.<alias>
// declaration followed by the namespaced arguments, extensions in
// registration order, arguments in sorted order within each extension.
func (m *Multiplexer) AppendTo(msg *openid.Message) {
	next := 1
	for _, ns := range m.namespaces {
		alias, ok := wellKnownAliases[ns]
		if !ok {
			alias = "ext" + strconv.Itoa(next)
			next++
		}
		msg.Set(openid.Prefix+"ns."+alias, ns)
		payload := m.args[ns]
		for _, k := range sortedKeys(payload) {
			msg.Set(openid.Prefix+alias+"."+k, payload[k])
		}
	}
}

// ResponseArgs extracts the arguments a provider response carries for the
// given namespace, with the protocol prefix and alias stripped. Returns an
// empty map when the namespace is absent.
func ResponseArgs(msg *openid.Message, namespace string) map[string]string {
	alias := ""
	for _, k := range msg.Keys() {
		rest, ok := strings.CutPrefix(k, openid.Prefix+"ns.")
		if ok && msg.Get(k) == namespace {
			alias = rest
			break
		}
	}
	out := make(map[string]string)
	if alias == "" {
		return out
	}
	p := openid.Prefix + alias + "."
	for _, k := range msg.Keys() {
		if name, ok := strings.CutPrefix(k, p); ok {
			out[name] = msg.Get(k)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
