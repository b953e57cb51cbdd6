package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/httputil"
	"golang.org/x/time/rate"
)

// hostLimiter throttles failed authentication attempts per remote host.
type hostLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	maxHosts int
	hosts    map[string]*rate.Limiter
}

func newHostLimiter(limit float64, burst int) *hostLimiter {
	return &hostLimiter{
		limit:    rate.Limit(limit),
		burst:    burst,
		maxHosts: 4096,
		hosts:    make(map[string]*rate.Limiter),
	}
}

func (h *hostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.hosts[host]
	if !ok {
		if len(h.hosts) >= h.maxHosts {
			clear(h.hosts)
		}
		l = rate.NewLimiter(h.limit, h.burst)
		h.hosts[host] = l
	}
	return l
}

func (h *hostLimiter) Throttled(host string) bool {
	return h.get(host).Tokens() < 1
}

func (h *hostLimiter) Fail(host string) {
	_ = h.get(host).Allow()
}

func remoteHost(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

type guard struct {
	realm   string
	users   *userauth.Manager
	limiter *hostLimiter
}

func (g *guard) challenge(message string) error {
	return httputil.MakeBasicChallenge(message, g.realm)
}

type authResult struct {
	user *userInfo
	// newSession is set when the session must be replaced with one for user (possibly nil).
	newSession bool
}

// checkBasic verifies the Basic credentials of req, if there are any. Reserved usernames are
// always rejected, this is how clients tell the portal to drop their cached credentials.
func (g *guard) checkBasic(ctx context.Context, req *http.Request) (*userauth.User, bool, error) {
	username, password, ok := req.BasicAuth()
	if !ok {
		return nil, false, nil
	}
	if g.users.IsReserved(username) {
		return nil, true, g.challenge("logged out")
	}
	host := remoteHost(req)
	if g.limiter.Throttled(host) {
		return nil, true, httputil.MakeError(http.StatusTooManyRequests, "too many failed attempts")
	}
	user, err := g.users.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, userauth.ErrBadCredentials) || errors.Is(err, userauth.ErrUserBlocked) {
			g.limiter.Fail(host)
			return nil, true, g.challenge(err.Error())
		}
		return nil, true, fmt.Errorf("authenticate: %w", err)
	}
	return &user, true, nil
}

func (g *guard) Check(ctx context.Context, log *slog.Logger, req *http.Request, session *userInfo) (authResult, error) {
	user, hasBasic, err := g.checkBasic(ctx, req)
	if hasBasic {
		if err != nil {
			return authResult{newSession: session != nil}, err
		}
		if session != nil && session.ID == user.ID && session.Epoch == user.Epoch {
			return authResult{user: session}, nil
		}
		log.Info("session established", slog.String("user", user.Username))
		return authResult{
			user:       &userInfo{ID: user.ID, Username: user.Username, Epoch: user.Epoch},
			newSession: true,
		}, nil
	}

	if session == nil {
		return authResult{}, g.challenge("authentication required")
	}
	stored, err := g.users.GetUser(ctx, session.ID)
	if err != nil {
		if errors.Is(err, userauth.ErrUserNotFound) {
			return authResult{newSession: true}, g.challenge("authentication required")
		}
		return authResult{}, fmt.Errorf("get user: %w", err)
	}
	if stored.IsBlocked || stored.Epoch != session.Epoch {
		log.Info("session revoked", slog.String("user", stored.Username))
		return authResult{newSession: true}, g.challenge("session revoked")
	}
	return authResult{user: session}, nil
}
