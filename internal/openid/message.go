package openid

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Message is an ordered set of wire arguments. Order matters for rendering
// (the outgoing redirect lists core args before extension args) even though
// the protocol itself treats the set as unordered.
type Message struct {
	keys   []string
	values map[string]string
}

// NewMessage returns an empty argument set.
func NewMessage() *Message {
	return &Message{values: make(map[string]string)}
}

// Set adds or replaces an argument, keeping first-insertion order.
func (m *Message) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key, or "" when absent.
func (m *Message) Get(key string) string { return m.values[key] }

// Has reports whether key is present.
func (m *Message) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of arguments.
func (m *Message) Len() int { return len(m.keys) }

// Keys returns the argument keys in insertion order. The returned slice is a
// copy; mutating it does not affect the message.
func (m *Message) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Query renders the message as a URL query string in insertion order.
func (m *Message) Query() string {
	var b strings.Builder
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(m.values[k]))
	}
	return b.String()
}

// KVForm renders the message in the key:value\n direct-message encoding used
// by the associate exchange. Keys must not contain ':' or newlines.
func (m *Message) KVForm() (string, error) {
	var b strings.Builder
	for _, k := range m.keys {
		v := m.values[k]
		if strings.ContainsAny(k, ":\n") || strings.Contains(v, "\n") {
			return "", fmt.Errorf("openid: key/value not representable in kv-form: %q", k)
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ParseKVForm decodes a key:value\n direct-message body. Lines without a
// colon are rejected; blank trailing lines are tolerated.
func ParseKVForm(body string) (*Message, error) {
	m := NewMessage()
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("openid: malformed kv-form line %q", line)
		}
		m.Set(k, v)
	}
	return m, nil
}

// FromValues builds a message from parsed URL values, sorted by key so the
// result is deterministic (url.Values has no order).
func FromValues(vals url.Values) *Message {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m := NewMessage()
	for _, k := range keys {
		m.Set(k, vals.Get(k))
	}
	return m
}
