package extension

import (
	"strings"
)

// SRegNamespace is the Simple Registration 1.1 type URI.
const SRegNamespace = "http://openid.net/extensions/sreg/1.1"

// Valid sreg field names.
var sregFields = map[string]bool{
	"nickname": true, "email": true, "fullname": true, "dob": true,
	"gender": true, "postcode": true, "country": true, "language": true,
	"timezone": true,
}

// SReg requests profile fields via the Simple Registration extension.
type SReg struct {
	// Required fields; the provider should not complete the flow without
	// them (it still might — treat as a hint).
	Required []string

	// Optional fields.
	Optional []string

	// PolicyURL points at the relying party's data-usage policy.
	PolicyURL string
}

func (s *SReg) Namespace() string { return SRegNamespace }

func (s *SReg) Serialize() (map[string]string, error) {
	out := make(map[string]string)
	if len(s.Required) > 0 {
		out["required"] = strings.Join(s.Required, ",")
	}
	if len(s.Optional) > 0 {
		out["optional"] = strings.Join(s.Optional, ",")
	}
	if s.PolicyURL != "" {
		out["policy_url"] = s.PolicyURL
	}
	return out, nil
}

// IsSRegField reports whether name is a field sreg 1.1 defines.
func IsSRegField(name string) bool { return sregFields[name] }
