//go:build js

// Command pdisk-logout is the browser side of the portal's logout control. Build it with
// GopherJS and drop pdisk-logout.js into the portal's client directory.
package main

import (
	"log/slog"

	"github.com/stratuslab/pdisk-portal/internal/logout"
	"github.com/stratuslab/pdisk-portal/internal/logout/jsdom"
)

func main() {
	log := slog.Default()
	o, err := jsdom.Options()
	if err != nil {
		println("pdisk-logout: bad settings:", err.Error())
	}
	t := logout.New(log, jsdom.Sender{}, o)
	if err := t.Init(jsdom.Document()); err != nil {
		println("pdisk-logout:", err.Error())
	}
}
