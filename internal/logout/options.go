package logout

import (
	"fmt"
)

const (
	DefaultElementID = "logout"
	DefaultSentinel  = "x-pdisk-logout"
	DefaultEndpoint  = "https://localhost:8445/pswd/"
	DefaultUsername  = "invalid"
)

type Variant int

const (
	// VariantSentinel re-requests the current page with a sentinel user-info segment.
	VariantSentinel Variant = iota
	// VariantBasic sends a known-bad Basic Authorization header to a fixed endpoint.
	VariantBasic
)

func (v Variant) String() string {
	switch v {
	case VariantSentinel:
		return "sentinel"
	case VariantBasic:
		return "basic"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

func ParseVariant(s string) (Variant, error) {
	switch s {
	case "sentinel", "":
		return VariantSentinel, nil
	case "basic":
		return VariantBasic, nil
	default:
		return 0, fmt.Errorf("unknown logout variant %q", s)
	}
}

func (v Variant) MarshalText() ([]byte, error) {
	if v != VariantSentinel && v != VariantBasic {
		return nil, fmt.Errorf("bad variant %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

type Options struct {
	ElementID string  `toml:"element-id"`
	Variant   Variant `toml:"variant"`
	Sentinel  string  `toml:"sentinel"`
	Endpoint  string  `toml:"endpoint"`
	Username  string  `toml:"username"`
	// Empty password is intended: the token must never match a real account.
	Password string `toml:"password"`
}

func (o *Options) FillDefaults() {
	if o.ElementID == "" {
		o.ElementID = DefaultElementID
	}
	if o.Sentinel == "" {
		o.Sentinel = DefaultSentinel
	}
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.Username == "" {
		o.Username = DefaultUsername
	}
}
