package logout

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelURL(t *testing.T) {
	for _, tc := range []struct {
		in, out string
	}{
		{"https://portal.example.com/app", "https://x-pdisk-logout@portal.example.com/app"},
		{"http://localhost:8080/disks/?q=1", "http://x-pdisk-logout@localhost:8080/disks/?q=1"},
		{"https://host/redirect?to=https://other/", "https://x-pdisk-logout@host/redirect?to=https://other/"},
		{"no-scheme/path", "no-scheme/path"},
	} {
		require.Equal(t, tc.out, SentinelURL(tc.in, DefaultSentinel), "location %q", tc.in)
	}
}

func TestBasicAuthorization(t *testing.T) {
	require.Equal(t, "Basic aW52YWxpZDo=", BasicAuthorization("invalid", ""))
	require.Equal(t, "Basic dXNlcjpwYXNz", BasicAuthorization("user", "pass"))
}

func TestNewRequestSentinel(t *testing.T) {
	req, err := NewRequest(context.Background(), Options{}, "https://portal.example.com/app")
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, "https://x-pdisk-logout@portal.example.com/app", req.URL.String())
	require.Equal(t, "x-pdisk-logout", req.URL.User.Username())
	require.Empty(t, req.Header.Get("Authorization"))
}

func TestNewRequestBasic(t *testing.T) {
	req, err := NewRequest(context.Background(), Options{Variant: VariantBasic}, "ignored")
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, DefaultEndpoint, req.URL.String())
	require.Equal(t, "Basic aW52YWxpZDo=", req.Header.Get("Authorization"))

	req, err = NewRequest(context.Background(), Options{
		Variant:  VariantBasic,
		Endpoint: "https://disks.example.org:8445/pswd/",
		Username: "nobody",
		Password: "x",
	}, "")
	require.NoError(t, err)
	require.Equal(t, "https://disks.example.org:8445/pswd/", req.URL.String())
	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	require.Equal(t, "nobody", user)
	require.Equal(t, "x", pass)
}

func TestNewRequestBadLocation(t *testing.T) {
	_, err := NewRequest(context.Background(), Options{}, "about:blank")
	require.Error(t, err)
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("basic")
	require.NoError(t, err)
	require.Equal(t, VariantBasic, v)

	v, err = ParseVariant("")
	require.NoError(t, err)
	require.Equal(t, VariantSentinel, v)

	_, err = ParseVariant("cookie")
	require.Error(t, err)

	var u Variant
	require.NoError(t, u.UnmarshalText([]byte("basic")))
	require.Equal(t, VariantBasic, u)
	text, err := u.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "basic", string(text))
}
