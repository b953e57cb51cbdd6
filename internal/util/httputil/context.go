package httputil

import (
	"context"
	"net/http"

	"github.com/stratuslab/pdisk-portal/internal/util/idgen"
)

// ReqIDHeader carries the request id. An id set by a fronting proxy is kept if it looks sane,
// so that portal logs can be matched with the proxy ones.
const ReqIDHeader = "X-Request-Id"

type reqIDKey struct{}

func validReqID(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// WrapRequest attaches a request id to the request context and echoes it in the response.
func WrapRequest(w http.ResponseWriter, req *http.Request) *http.Request {
	id := req.Header.Get(ReqIDHeader)
	if !validReqID(id) {
		id = idgen.ID()
	}
	w.Header().Set(ReqIDHeader, id)
	return req.WithContext(context.WithValue(req.Context(), reqIDKey{}, id))
}

func ExtractReqID(ctx context.Context) string {
	s, _ := ctx.Value(reqIDKey{}).(string)
	return s
}
