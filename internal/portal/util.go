package portal

import (
	"log/slog"
	"net/http"

	"github.com/stratuslab/pdisk-portal/internal/util/httputil"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
)

func writeHTTPErr(log *slog.Logger, w http.ResponseWriter, err error) {
	if err = httputil.WriteErrorResponse(err, w); err != nil {
		log.Info("error writing error response", slogx.Err(err))
	}
}
