package portal

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/stratuslab/pdisk-portal/internal/logout"
	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/idgen"
	"github.com/stratuslab/pdisk-portal/internal/util/mergefs"
)

const DefaultRealm = "Stratuslab Persistent Disk Storage"

type Config struct {
	UserManager         *userauth.Manager
	SessionStoreFactory SessionStoreFactory
	ServerID            string
	sessionStore        sessions.Store
	guard               *guard
	opts                *Options
}

type Options struct {
	Realm   string         `toml:"realm"`
	Session SessionOptions `toml:"session"`
	CSRFKey []byte         `toml:"-"`
	// ClientDir overlays the embedded static files. Put the compiled browser client at
	// <client-dir>/js/pdisk-logout.js.
	ClientDir    string         `toml:"client-dir"`
	Logout       logout.Options `toml:"logout"`
	AuthRPSLimit float64        `toml:"auth-rps-limit"`
	AuthRPSBurst int            `toml:"auth-rps-burst"`
}

func (o *Options) FillDefaults() {
	if o.Realm == "" {
		o.Realm = DefaultRealm
	}
	o.Session.FillDefaults()
	o.Logout.FillDefaults()
	if o.AuthRPSLimit == 0.0 {
		o.AuthRPSLimit = 0.2
	}
	if o.AuthRPSBurst == 0 {
		o.AuthRPSBurst = 10
	}
}

func must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}
	return t
}

func Handle(ctx context.Context, log *slog.Logger, mux *http.ServeMux, cfg Config, o Options) error {
	o.FillDefaults()
	if len(o.CSRFKey) == 0 {
		return fmt.Errorf("no csrf key")
	}

	if cfg.ServerID == "" {
		cfg.ServerID = idgen.ID()
	}
	cfg.opts = &o
	store, err := cfg.SessionStoreFactory.NewSessionStore(ctx, o.Session)
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}
	cfg.sessionStore = store
	cfg.guard = &guard{
		realm:   o.Realm,
		users:   cfg.UserManager,
		limiter: newHostLimiter(o.AuthRPSLimit, o.AuthRPSBurst),
	}

	var client fs.FS
	if o.ClientDir != "" {
		client = os.DirFS(o.ClientDir)
	}
	static := mergefs.New(client, staticData)

	b := middlewareBuilder{
		Log: log,
		CSRFProtect: csrf.Protect(
			o.CSRFKey,
			csrf.Secure(!o.Session.Insecure),
			csrf.Path("/"),
			csrf.FieldName("csrf_token"),
		),
		Compress: gziphandler.GzipHandler,
	}
	templ := newTemplator(&cfg)

	mux.Handle("/css/", b.WrapStatic(http.FileServerFS(static)))
	mux.Handle("/js/", b.WrapStatic(http.FileServerFS(static)))
	mux.Handle("/pswd/", b.WrapAttach(pswdHandler(log, &cfg)))
	mux.Handle("/logout/", b.WrapPage(must(logoutPage(log, &cfg, templ))))
	mux.Handle("/", b.WrapPage(must(homePage(log, &cfg, templ))))
	return nil
}
