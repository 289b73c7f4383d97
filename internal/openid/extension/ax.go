package extension

import (
	"fmt"
	"strconv"
	"strings"
)

// AXNamespace is the Attribute Exchange 1.0 type URI.
const AXNamespace = "http://openid.net/srv/ax/1.0"

// Common axschema attribute type URIs.
const (
	AXEmail     = "http://axschema.org/contact/email"
	AXFirstName = "http://axschema.org/namePerson/first"
	AXLastName  = "http://axschema.org/namePerson/last"
	AXFullName  = "http://axschema.org/namePerson"
	AXCountry   = "http://axschema.org/contact/country/home"
	AXLanguage  = "http://axschema.org/pref/language"
)

// AXAttribute is one attribute requested through an AX fetch.
type AXAttribute struct {
	// Alias names the attribute inside the message (e.g. "email").
	Alias string

	// TypeURI identifies the attribute (axschema URI).
	TypeURI string

	// Required marks the attribute as required rather than if_available.
	Required bool

	// Count asks for up to N values; zero means one.
	Count int
}

// AXFetch requests attributes via the Attribute Exchange fetch_request mode.
type AXFetch struct {
	Attributes []AXAttribute
}

func (a *AXFetch) Namespace() string { return AXNamespace }

func (a *AXFetch) Serialize() (map[string]string, error) {
	out := map[string]string{"mode": "fetch_request"}
	var required, available []string
	for _, attr := range a.Attributes {
		if attr.Alias == "" || attr.TypeURI == "" {
			return nil, fmt.Errorf("extension: ax attribute needs alias and type URI")
		}
		out["type."+attr.Alias] = attr.TypeURI
		if attr.Required {
			required = append(required, attr.Alias)
		} else {
			available = append(available, attr.Alias)
		}
		if attr.Count > 1 {
			out["count."+attr.Alias] = strconv.Itoa(attr.Count)
		}
	}
	if len(required) > 0 {
		out["required"] = strings.Join(required, ",")
	}
	if len(available) > 0 {
		out["if_available"] = strings.Join(available, ",")
	}
	return out, nil
}
