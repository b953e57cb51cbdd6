package logout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
)

// HTTPSender sends logout requests on background goroutines and drops the responses.
type HTTPSender struct {
	log    *slog.Logger
	client *http.Client
	wg     sync.WaitGroup
}

func NewHTTPSender(log *slog.Logger, client *http.Client) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{log: log, client: client}
}

func (s *HTTPSender) Send(req *http.Request) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rsp, err := s.client.Do(req)
		if err != nil {
			s.log.Debug("logout request failed", slogx.Err(err))
			return
		}
		_, _ = io.Copy(io.Discard, rsp.Body)
		_ = rsp.Body.Close()
		s.log.Debug("logout request done", slog.Int("status", rsp.StatusCode))
	}()
}

// Wait blocks until all the requests sent so far are finished.
func (s *HTTPSender) Wait() {
	s.wg.Wait()
}

type Outcome struct {
	Target string
	Status int
}

// Rejected reports whether the server refused the credentials, which is what makes the client
// forget the ones it had cached.
func (o Outcome) Rejected() bool {
	return o.Status == http.StatusUnauthorized
}

// Perform runs the logout request synchronously and reports the response status. Unlike the
// click handler, it is meant for command-line use where the result is shown to the user.
func Perform(ctx context.Context, client *http.Client, o Options, location string) (Outcome, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := NewRequest(ctx, o, location)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Target: req.URL.Redacted()}
	rsp, err := client.Do(req)
	if err != nil {
		return out, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, rsp.Body)
		_ = rsp.Body.Close()
	}()
	out.Status = rsp.StatusCode
	return out, nil
}
