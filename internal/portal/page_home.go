package portal

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/stratuslab/pdisk-portal/internal/logout"
	"github.com/stratuslab/pdisk-portal/internal/util/httputil"
	"github.com/stratuslab/pdisk-portal/internal/util/timeutil"
)

type homeDataBuilder struct{}

func (homeDataBuilder) Build(ctx context.Context, bc builderCtx) (any, error) {
	type data struct {
		Logout      logout.Options
		LoggedOutAt *timeutil.UTCTime
		CSRFField   template.HTML
	}

	if bc.Req.Method != http.MethodGet {
		return nil, httputil.MakeError(http.StatusMethodNotAllowed, "method not allowed")
	}
	user, err := bc.Config.UserManager.GetUser(ctx, bc.UserInfo.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &data{
		Logout:      bc.Config.opts.Logout,
		LoggedOutAt: user.LoggedOutAt,
		CSRFField:   csrf.TemplateField(bc.Req),
	}, nil
}

func homePage(log *slog.Logger, cfg *Config, templ *templator) (http.Handler, error) {
	return newPage(log, cfg, templ, homeDataBuilder{}, "home")
}
