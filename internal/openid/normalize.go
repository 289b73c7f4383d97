package openid

import (
	"fmt"
	"strings"
)

// Normalize turns a user-typed identifier into its protocol form: add a
// scheme when missing, lowercase scheme/host, drop the fragment (fragments
// never take part in identity comparison), and keep a trailing "/" on bare
// hosts so "example.com" and "example.com/" compare equal.
func Normalize(identifier string) (string, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return "", fmt.Errorf("openid: empty identifier")
	}

	// XRI identifiers keep their global context symbol; everything else is
	// treated as a URL.
	if strings.HasPrefix(id, "xri://") {
		return id[len("xri://"):], nil
	}
	switch id[0] {
	case '=', '@', '+', '$', '!':
		return id, nil
	}

	// Scheme comparison is case-insensitive.
	if low := strings.ToLower(id); !strings.HasPrefix(low, "http://") && !strings.HasPrefix(low, "https://") {
		id = "http://" + id
	}

	// Fragments are not part of protocol identity.
	if i := strings.IndexByte(id, '#'); i >= 0 {
		id = id[:i]
	}

	// Lowercase scheme and host, leave the path alone.
	rest := id[strings.Index(id, "://")+3:]
	scheme := strings.ToLower(id[:strings.Index(id, "://")])
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return scheme + "://" + strings.ToLower(rest) + "/", nil
	}
	return scheme + "://" + strings.ToLower(rest[:slash]) + rest[slash:], nil
}
