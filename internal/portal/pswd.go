package portal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/stratuslab/pdisk-portal/internal/util/httputil"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
)

// pswdHandler checks Basic credentials. It is the fixed endpoint the browser client sends
// known-bad credentials to: reserved usernames drop the current session, and no session is
// ever issued here.
func pswdHandler(log *slog.Logger, cfg *Config) http.Handler {
	log = log.With(slog.String("handler", "pswd"))
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log := log.With(slog.String("rid", httputil.ExtractReqID(req.Context())))
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			writeHTTPErr(log, w, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed"))
			return
		}
		if username, _, ok := req.BasicAuth(); ok && cfg.UserManager.IsReserved(username) {
			if err := expireSession(cfg.sessionStore, w, req); err != nil {
				log.Error("error dropping session", slogx.Err(err))
			}
		}
		user, hasBasic, err := cfg.guard.checkBasic(req.Context(), req)
		if !hasBasic {
			err = cfg.guard.challenge("authentication required")
		}
		if err != nil {
			if httpErr := (*httputil.Error)(nil); !errors.As(err, &httpErr) {
				log.Error("error checking credentials", slogx.Err(err))
			}
			writeHTTPErr(log, w, err)
			return
		}
		log.Info("credentials accepted", slog.String("user", user.Username))
		w.WriteHeader(http.StatusNoContent)
	})
}
