package portal

import (
	"context"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const sessionName = "pdisk_session"

type SessionOptions struct {
	Key             []byte        `toml:"-"`
	CleanupInterval time.Duration `toml:"cleanup-interval"`
	MaxAge          time.Duration `toml:"max-age"`
	Insecure        bool          `toml:"insecure"`
}

func (o *SessionOptions) FillDefaults() {
	if o.CleanupInterval == 0 {
		o.CleanupInterval = 10 * time.Minute
	}
	if o.MaxAge == 0 {
		o.MaxAge = 12 * time.Hour
	}
}

func (o *SessionOptions) SetupSession(s *sessions.Options) {
	s.Path = "/"
	s.MaxAge = int(o.MaxAge.Seconds())
	s.Secure = !o.Insecure
	s.HttpOnly = true
	s.SameSite = http.SameSiteLaxMode
}

type SessionStoreFactory interface {
	NewSessionStore(ctx context.Context, o SessionOptions) (sessions.Store, error)
}

// userInfo is what the session remembers about the user. Epoch must match the stored user's one,
// otherwise the session has been revoked.
type userInfo struct {
	ID       string
	Username string
	Epoch    int
}

func init() {
	gob.Register(userInfo{})
}

// expireSession drops the session carried by req, if any. It never issues a new one.
func expireSession(store sessions.Store, w http.ResponseWriter, req *http.Request) error {
	session, _ := store.Get(req, sessionName)
	if session == nil || session.IsNew {
		return nil
	}
	session.Options.MaxAge = -1
	clear(session.Values)
	if err := session.Save(req, w); err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return nil
}
