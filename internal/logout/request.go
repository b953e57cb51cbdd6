package logout

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// SentinelURL turns scheme://host/... into scheme://sentinel@host/... by rewriting the first
// scheme separator. Locations without a separator are returned as is.
func SentinelURL(location, sentinel string) string {
	return strings.Replace(location, "://", "://"+sentinel+"@", 1)
}

func BasicAuthorization(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Target returns the address the logout request goes to. location is the address of the page
// the logout control lives on and only matters for VariantSentinel.
func Target(o Options, location string) (string, error) {
	o.FillDefaults()
	switch o.Variant {
	case VariantSentinel:
		if !strings.Contains(location, "://") {
			return "", fmt.Errorf("location %q has no scheme", location)
		}
		return SentinelURL(location, o.Sentinel), nil
	case VariantBasic:
		return o.Endpoint, nil
	default:
		return "", fmt.Errorf("bad variant %v", o.Variant)
	}
}

func NewRequest(ctx context.Context, o Options, location string) (*http.Request, error) {
	o.FillDefaults()
	target, err := Target(o, location)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if o.Variant == VariantBasic {
		req.Header.Set("Authorization", BasicAuthorization(o.Username, o.Password))
	}
	return req, nil
}
