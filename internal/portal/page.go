package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/stratuslab/pdisk-portal/internal/util/clone"
	"github.com/stratuslab/pdisk-portal/internal/util/httputil"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
)

type dataBuilder interface {
	Build(ctx context.Context, bc builderCtx) (any, error)
}

type page struct {
	name    string
	cfg     *Config
	log     *slog.Logger
	b       dataBuilder
	tmpl    *template.Template
	errTmpl *template.Template
}

type pageData struct {
	Data     any
	User     *userInfo
	Realm    string
	ServerID string
}

type builderCtx struct {
	Log      *slog.Logger
	Config   *Config
	UserInfo *userInfo
	Req      *http.Request
	writer   http.ResponseWriter
}

// HasBasicAuth reports whether the client authenticates each request with Basic credentials
// instead of relying on the session cookie.
func (bc *builderCtx) HasBasicAuth() bool {
	_, _, ok := bc.Req.BasicAuth()
	return ok
}

func (bc *builderCtx) ResetSession(newUser *userInfo) {
	log := bc.Log
	if err := expireSession(bc.Config.sessionStore, bc.writer, bc.Req); err != nil {
		log.Error("expire current session", slogx.Err(err))
	}
	if newUser != nil {
		session, _ := bc.Config.sessionStore.New(bc.Req, sessionName)
		bc.Config.opts.Session.SetupSession(session.Options)
		session.Values["user"] = *newUser
		if err := session.Save(bc.Req, bc.writer); err != nil {
			log.Error("apply new session", slogx.Err(err))
		}
	}
	bc.UserInfo = clone.TrivialPtr(newUser)
}

func sessionUser(session *sessions.Session) *userInfo {
	if session == nil {
		return nil
	}
	raw, ok := session.Values["user"].(userInfo)
	if !ok {
		return nil
	}
	return &raw
}

func (p *page) renderError(log *slog.Logger, w http.ResponseWriter, httpErr *httputil.Error) {
	if 300 <= httpErr.Code() && httpErr.Code() <= 399 {
		log.Info("send http redirect",
			slog.Int("code", httpErr.Code()),
			slog.String("msg", httpErr.Message()),
		)
		httpErr.ApplyHeaders(w)
		w.WriteHeader(httpErr.Code())
		return
	}

	log.Info("send http status error",
		slog.Int("code", httpErr.Code()),
		slog.String("msg", httpErr.Message()),
	)
	var b bytes.Buffer
	if err := p.errTmpl.Execute(&b, pageData{
		Data: struct {
			Code    int
			Message string
		}{
			Code:    httpErr.Code(),
			Message: httpErr.Message(),
		},
		Realm:    p.cfg.opts.Realm,
		ServerID: p.cfg.ServerID,
	}); err != nil {
		log.Error("error rendering page", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	httpErr.ApplyHeaders(w)
	w.WriteHeader(httpErr.Code())
	if _, err := w.Write(b.Bytes()); err != nil {
		log.Error("error writing page data", slogx.Err(err))
		return
	}
}

func (p *page) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	log := p.log.With(slog.String("rid", httputil.ExtractReqID(ctx)))
	log.Info("handle page request",
		slog.String("method", req.Method),
		slog.String("addr", req.RemoteAddr),
	)

	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		log.Warn("method not allowed")
		writeHTTPErr(log, w, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed"))
		return
	}

	session, _ := p.cfg.sessionStore.Get(req, sessionName)
	bc := builderCtx{
		Log:      log,
		Config:   p.cfg,
		UserInfo: sessionUser(session),
		Req:      req,
		writer:   w,
	}

	res, err := p.cfg.guard.Check(ctx, log, req, bc.UserInfo)
	if res.newSession {
		bc.ResetSession(res.user)
	}
	if err != nil {
		if httpErr := (*httputil.Error)(nil); errors.As(err, &httpErr) {
			p.renderError(log, w, httpErr)
			return
		}
		log.Error("error checking credentials", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("check credentials"))
		return
	}
	bc.UserInfo = res.user

	data, err := p.b.Build(ctx, bc)
	if err != nil {
		if httpErr := (*httputil.Error)(nil); errors.As(err, &httpErr) {
			p.renderError(log, w, httpErr)
			return
		}
		log.Error("error building page data", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("build page"))
		return
	}

	var b bytes.Buffer
	if err := p.tmpl.Execute(&b, pageData{
		Data:     data,
		User:     bc.UserInfo,
		Realm:    p.cfg.opts.Realm,
		ServerID: p.cfg.ServerID,
	}); err != nil {
		log.Error("error rendering page", slogx.Err(err))
		writeHTTPErr(log, w, fmt.Errorf("render page"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b.Bytes()); err != nil {
		log.Error("error writing page data", slogx.Err(err))
		return
	}
}

func newPage(
	log *slog.Logger,
	cfg *Config,
	templator *templator,
	builder dataBuilder,
	name string,
) (http.Handler, error) {
	var tmpl *template.Template
	if name != "" {
		var err error
		tmpl, err = templator.Get(name)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
	}
	errTempl, err := templator.Get("error")
	if err != nil {
		return nil, fmt.Errorf("template \"error\": %w", err)
	}
	return &page{
		name:    name,
		cfg:     cfg,
		log:     log.With(slog.String("page", name)),
		b:       builder,
		tmpl:    tmpl,
		errTmpl: errTempl,
	}, nil
}
