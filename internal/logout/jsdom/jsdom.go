//go:build js

// Package jsdom binds the logout trigger to the browser DOM. It is built with GopherJS.
package jsdom

import (
	"net/http"

	"github.com/stratuslab/pdisk-portal/internal/logout"
	"honnef.co/go/js/dom"
	"honnef.co/go/js/xhr"
)

type document struct {
	d dom.HTMLDocument
}

func Document() logout.Document {
	return document{d: dom.GetWindow().Document().(dom.HTMLDocument)}
}

func (d document) ReadyState() string { return d.d.ReadyState() }

func (d document) AddEventListener(typ string, useCapture bool, listener logout.Listener) {
	d.d.AddEventListener(typ, useCapture, func(ev dom.Event) { listener(ev) })
}

func (d document) ElementByID(id string) (logout.Element, bool) {
	el := d.d.GetElementByID(id)
	if el == nil {
		return nil, false
	}
	return element{el: el}, true
}

func (d document) Location() string {
	return dom.GetWindow().Location().Href
}

type element struct {
	el dom.Element
}

func (e element) AddEventListener(typ string, useCapture bool, listener logout.Listener) {
	e.el.AddEventListener(typ, useCapture, func(ev dom.Event) { listener(ev) })
}

// Options reads the trigger settings from the page. The body names the logout element in
// data-logout-element, the element itself carries data-variant, data-endpoint and
// data-sentinel. Missing attributes keep the defaults.
func Options() (logout.Options, error) {
	var o logout.Options
	doc := dom.GetWindow().Document().(dom.HTMLDocument)
	if body := doc.Body(); body != nil {
		o.ElementID = body.Dataset()["logoutElement"]
	}
	o.FillDefaults()
	el := doc.GetElementByID(o.ElementID)
	if el == nil {
		return o, nil
	}
	data := el.Dataset()
	if v, ok := data["variant"]; ok {
		variant, err := logout.ParseVariant(v)
		if err != nil {
			return o, err
		}
		o.Variant = variant
	}
	if v := data["endpoint"]; v != "" {
		o.Endpoint = v
	}
	if v := data["sentinel"]; v != "" {
		o.Sentinel = v
	}
	return o, nil
}

// Sender sends requests through XMLHttpRequest so the browser applies the credentials to its
// own authentication cache.
type Sender struct{}

func (Sender) Send(req *http.Request) {
	go func() {
		x := xhr.NewRequest(req.Method, req.URL.String())
		for k, vs := range req.Header {
			for _, v := range vs {
				x.SetRequestHeader(k, v)
			}
		}
		if err := x.Send(nil); err != nil {
			println("pdisk-logout: request failed:", err.Error())
		}
	}()
}
