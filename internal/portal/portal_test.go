package portal_test

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stratuslab/pdisk-portal/internal/database"
	"github.com/stratuslab/pdisk-portal/internal/logout"
	"github.com/stratuslab/pdisk-portal/internal/portal"
	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "alice"
	testPassword = "correct horse"
)

type env struct {
	srv   *httptest.Server
	users *userauth.Manager
}

func newEnv(t *testing.T, tweak func(o *portal.Options)) *env {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := slogx.DiscardLogger()

	db, err := database.New(log, database.Options{Path: filepath.Join(t.TempDir(), "portal.db")})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	users := userauth.NewManager(log, db, userauth.ManagerOptions{
		Password: &userauth.PasswordOptions{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8},
	})
	t.Cleanup(users.Close)
	_, err = users.AddUser(ctx, testUser, testPassword)
	require.NoError(t, err)

	o := portal.Options{
		CSRFKey: []byte("0123456789abcdef0123456789abcdef"),
		Session: portal.SessionOptions{
			Key:      []byte("fedcba9876543210fedcba9876543210"),
			Insecure: true,
		},
	}
	if tweak != nil {
		tweak(&o)
	}
	mux := http.NewServeMux()
	require.NoError(t, portal.Handle(ctx, log, mux, portal.Config{
		UserManager:         users,
		SessionStoreFactory: db,
	}, o))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &env{srv: srv, users: users}
}

func (e *env) client(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *env) get(t *testing.T, c *http.Client, path string, user, password *string) (*http.Response, string) {
	return e.do(t, c, http.MethodGet, path, user, password)
}

func (e *env) do(t *testing.T, c *http.Client, method, path string, user, password *string) (*http.Response, string) {
	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	require.NoError(t, err)
	if user != nil {
		req.SetBasicAuth(*user, *password)
	}
	rsp, err := c.Do(req)
	require.NoError(t, err)
	defer rsp.Body.Close()
	body, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	return rsp, string(body)
}

func (e *env) postForm(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	rsp, err := c.PostForm(e.srv.URL+path, form)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, rsp.Body)
	require.NoError(t, rsp.Body.Close())
	return rsp
}

var csrfFieldRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func csrfToken(t *testing.T, body string) string {
	m := csrfFieldRe.FindStringSubmatch(body)
	require.Len(t, m, 2)
	return html.UnescapeString(m[1])
}

func ptr(s string) *string { return &s }

func writeFile(path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(data), 0o644)
}

func TestChallengeWithoutCredentials(t *testing.T) {
	e := newEnv(t, nil)
	rsp, _ := e.get(t, e.client(t), "/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	require.Contains(t, rsp.Header.Get("WWW-Authenticate"), `realm="Stratuslab Persistent Disk Storage"`)
}

func TestHomeRendersLogoutControl(t *testing.T) {
	e := newEnv(t, func(o *portal.Options) {
		o.Logout.Variant = logout.VariantBasic
		o.Logout.Endpoint = "https://disks.example.org:8445/pswd/"
	})
	rsp, body := e.get(t, e.client(t), "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	require.Contains(t, body, `id="logout"`)
	require.Contains(t, body, `data-variant="basic"`)
	require.Contains(t, body, `data-endpoint="https://disks.example.org:8445/pswd/"`)
	require.Contains(t, body, "/js/pdisk-logout.js")
	require.Contains(t, body, `name="csrf_token"`)

	// Unknown pages fall back to the home page.
	rsp, _ = e.get(t, e.client(t), "/disks/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusOK, rsp.StatusCode)
}

func TestBadCredentials(t *testing.T) {
	e := newEnv(t, nil)
	rsp, _ := e.get(t, e.client(t), "/", ptr(testUser), ptr("wrong"))
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	rsp, _ = e.get(t, e.client(t), "/", ptr("mallory"), ptr(testPassword))
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
}

func TestSessionSurvivesWithoutCredentials(t *testing.T) {
	e := newEnv(t, nil)
	c := e.client(t)
	rsp, _ := e.get(t, c, "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	rsp, body := e.get(t, c, "/", nil, nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	require.Contains(t, body, testUser)
}

func TestSentinelDropsSession(t *testing.T) {
	e := newEnv(t, nil)
	c := e.client(t)
	rsp, _ := e.get(t, c, "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	out, err := logout.Perform(context.Background(), c, logout.Options{}, e.srv.URL+"/")
	require.NoError(t, err)
	require.True(t, out.Rejected())
	require.True(t, strings.Contains(out.Target, "x-pdisk-logout@"))

	rsp, _ = e.get(t, c, "/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
}

func TestPswd(t *testing.T) {
	e := newEnv(t, nil)
	c := e.client(t)

	out, err := logout.Perform(context.Background(), c, logout.Options{
		Variant:  logout.VariantBasic,
		Endpoint: e.srv.URL + "/pswd/",
	}, "")
	require.NoError(t, err)
	require.True(t, out.Rejected())

	rsp, _ := e.get(t, c, "/pswd/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusNoContent, rsp.StatusCode)
	require.Empty(t, rsp.Cookies())

	rsp, _ = e.get(t, c, "/pswd/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)

	rsp, _ = e.get(t, c, "/pswd", nil, nil)
	require.Equal(t, http.StatusMovedPermanently, rsp.StatusCode)
	require.Equal(t, "/pswd/", rsp.Header.Get("Location"))
}

func TestPswdDropsSession(t *testing.T) {
	e := newEnv(t, nil)
	c, other := e.client(t), e.client(t)
	for _, cl := range []*http.Client{c, other} {
		rsp, _ := e.get(t, cl, "/", ptr(testUser), ptr(testPassword))
		require.Equal(t, http.StatusOK, rsp.StatusCode)
	}

	out, err := logout.Perform(context.Background(), c, logout.Options{
		Variant:  logout.VariantBasic,
		Endpoint: e.srv.URL + "/pswd/",
	}, "")
	require.NoError(t, err)
	require.True(t, out.Rejected())

	rsp, _ := e.get(t, c, "/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)

	// Only the session of the client that logged out is gone.
	rsp, _ = e.get(t, other, "/", nil, nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
}

func TestLogoutEndsCurrentSession(t *testing.T) {
	e := newEnv(t, nil)
	first, second := e.client(t), e.client(t)
	for _, c := range []*http.Client{first, second} {
		rsp, _ := e.get(t, c, "/", ptr(testUser), ptr(testPassword))
		require.Equal(t, http.StatusOK, rsp.StatusCode)
	}

	rsp, _ := e.get(t, first, "/logout/", nil, nil)
	require.Equal(t, http.StatusSeeOther, rsp.StatusCode)
	require.Equal(t, "/", rsp.Header.Get("Location"))

	rsp, _ = e.get(t, first, "/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	rsp, _ = e.get(t, second, "/", nil, nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	// Basic clients are challenged right away.
	rsp, _ = e.get(t, first, "/logout/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)

	rsp, _ = e.get(t, first, "/logout", nil, nil)
	require.Equal(t, http.StatusMovedPermanently, rsp.StatusCode)
}

func TestExplicitLogoutRevokesAllSessions(t *testing.T) {
	e := newEnv(t, nil)
	first, second := e.client(t), e.client(t)
	rsp, _ := e.get(t, second, "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	rsp, body := e.get(t, first, "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	rsp = e.postForm(t, first, "/logout/", url.Values{"csrf_token": {csrfToken(t, body)}})
	require.Equal(t, http.StatusSeeOther, rsp.StatusCode)
	require.Equal(t, "/", rsp.Header.Get("Location"))

	for _, c := range []*http.Client{first, second} {
		rsp, _ := e.get(t, c, "/", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	}

	user, err := e.users.GetUserByUsername(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, user.LoggedOutAt)
}

func TestLogoutPostNeedsCSRFToken(t *testing.T) {
	e := newEnv(t, nil)
	rsp, _ := e.do(t, e.client(t), http.MethodPost, "/logout/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusForbidden, rsp.StatusCode)
}

func TestBlockedUser(t *testing.T) {
	e := newEnv(t, nil)
	c := e.client(t)
	rsp, _ := e.get(t, c, "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	require.NoError(t, e.users.SetBlocked(context.Background(), testUser, true))
	rsp, _ = e.get(t, c, "/", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	rsp, _ = e.get(t, c, "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
}

func TestFailedAttemptsAreThrottled(t *testing.T) {
	e := newEnv(t, func(o *portal.Options) {
		o.AuthRPSLimit = 0.0001
		o.AuthRPSBurst = 2
	})
	c := e.client(t)
	for range 2 {
		rsp, _ := e.get(t, c, "/", ptr(testUser), ptr("wrong"))
		require.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	}
	rsp, _ := e.get(t, c, "/", ptr(testUser), ptr(testPassword))
	require.Equal(t, http.StatusTooManyRequests, rsp.StatusCode)
}

func TestStaticNeedsNoAuth(t *testing.T) {
	e := newEnv(t, nil)
	rsp, body := e.get(t, e.client(t), "/css/portal.css", nil, nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	require.Contains(t, body, "header")
}

func TestClientDirOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "js", "pdisk-logout.js"), "client();"))
	e := newEnv(t, func(o *portal.Options) { o.ClientDir = dir })
	rsp, body := e.get(t, e.client(t), "/js/pdisk-logout.js", nil, nil)
	require.Equal(t, http.StatusOK, rsp.StatusCode)
	require.Equal(t, "client();", body)
}
