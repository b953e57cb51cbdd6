package logout

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
)

type Event interface {
	PreventDefault()
}

type Listener func(Event)

type Element interface {
	AddEventListener(typ string, useCapture bool, listener Listener)
}

type Document interface {
	ReadyState() string
	AddEventListener(typ string, useCapture bool, listener Listener)
	ElementByID(id string) (Element, bool)
	// Location returns the address of the current page.
	Location() string
}

// Sender issues a request without waiting for it. Send must return promptly.
type Sender interface {
	Send(req *http.Request)
}

type Trigger struct {
	o      Options
	log    *slog.Logger
	sender Sender
}

func New(log *slog.Logger, sender Sender, o Options) *Trigger {
	o.FillDefaults()
	return &Trigger{
		o:      o,
		log:    log.With(slog.String("variant", o.Variant.String())),
		sender: sender,
	}
}

// Init attaches the click handler to the logout control once doc is ready. If the document is
// still loading, attachment is deferred until DOMContentLoaded and failures are only logged.
func (t *Trigger) Init(doc Document) error {
	switch state := doc.ReadyState(); state {
	case "loading":
		doc.AddEventListener("DOMContentLoaded", false, func(Event) {
			if err := t.attach(doc); err != nil {
				t.log.Warn("could not attach logout handler", slogx.Err(err))
			}
		})
		return nil
	case "interactive", "complete":
		return t.attach(doc)
	default:
		return fmt.Errorf("unexpected ready state %q", state)
	}
}

func (t *Trigger) attach(doc Document) error {
	el, ok := doc.ElementByID(t.o.ElementID)
	if !ok {
		return fmt.Errorf("element %q not found", t.o.ElementID)
	}
	el.AddEventListener("click", false, func(ev Event) {
		t.HandleClick(ev, doc.Location())
	})
	t.log.Debug("logout handler attached", slog.String("element", t.o.ElementID))
	return nil
}

// HandleClick suppresses the default action of ev and fires the logout request. It never
// fails: errors are logged and dropped.
func (t *Trigger) HandleClick(ev Event, location string) {
	ev.PreventDefault()
	t.log.Debug("logout handler fired")

	defer func() {
		if r := recover(); r != nil {
			t.log.Warn("logout request panicked", slog.Any("panic", r))
		}
	}()

	req, err := NewRequest(context.Background(), t.o, location)
	if err != nil {
		t.log.Debug("could not build logout request", slogx.Err(err))
		return
	}
	t.sender.Send(req)
}
