package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/httputil"
)

type logoutDataBuilder struct{}

// Build ends the current session. Only the POST form, which carries a CSRF token, revokes every
// session of the user. Clients that send Basic credentials get a fresh challenge so that they
// forget them, the others are sent back to the home page.
func (logoutDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	user := bc.UserInfo
	if bc.Req.Method == http.MethodPost {
		if err := bc.Config.UserManager.Revoke(ctx, user.ID); err != nil && !errors.Is(err, userauth.ErrUserNotFound) {
			return nil, fmt.Errorf("revoke: %w", err)
		}
		bc.Log.Info("user logged out everywhere", slog.String("user", user.Username))
	} else {
		bc.Log.Info("user logged out", slog.String("user", user.Username))
	}
	bc.ResetSession(nil)
	if bc.HasBasicAuth() {
		return nil, httputil.MakeBasicChallenge("logged out", bc.Config.opts.Realm)
	}
	return nil, httputil.MakeRedirectError(http.StatusSeeOther, "logged out", "/")
}

func logoutPage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, templ, logoutDataBuilder{}, "")
}
