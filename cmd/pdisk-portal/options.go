package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/stratuslab/pdisk-portal/internal/database"
	"github.com/stratuslab/pdisk-portal/internal/portal"
	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/idgen"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
)

type HTTPSOptions struct {
	CachePath            string   `toml:"cache-path"`
	AllowedSecureDomains []string `toml:"allowed-secure-domains"`
	ExposeInsecure       bool     `toml:"expose-insecure"`
	SecureAddr           string   `toml:"secure-addr"`
}

type Options struct {
	Addr   string                  `toml:"addr"`
	HTTPS  *HTTPSOptions           `toml:"https"`
	DB     database.Options        `toml:"db"`
	Users  userauth.ManagerOptions `toml:"users"`
	Portal portal.Options          `toml:"portal"`
	Log    slogx.Options           `toml:"log"`
}

func (o *Options) FillDefaults() {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:8080"
	}
	if o.HTTPS != nil && o.HTTPS.SecureAddr == "" {
		o.HTTPS.SecureAddr = ":8445"
	}
	o.DB.FillDefaults()
	o.Users.FillDefaults()
	o.Portal.FillDefaults()
	o.Log.FillDefaults()
	// Logout requests must always be rejected, not counted as failed logins.
	for _, name := range []string{o.Portal.Logout.Sentinel, o.Portal.Logout.Username} {
		if !slices.Contains(o.Users.ReservedUsernames, name) {
			o.Users.ReservedUsernames = append(o.Users.ReservedUsernames, name)
		}
	}
}

func withPort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, port)
}

func (o *Options) AddrWithPort() string {
	return withPort(o.Addr, "80")
}

func (o *Options) SecureAddrWithPort() string {
	return withPort(o.HTTPS.SecureAddr, "443")
}

// MixSecrets puts the decoded keys from s into the options.
func (o *Options) MixSecrets(s *Secrets) error {
	sessionKey, err := hex.DecodeString(s.SessionKey)
	if err != nil {
		return fmt.Errorf("decode session key: %w", err)
	}
	csrfKey, err := hex.DecodeString(s.CSRFKey)
	if err != nil {
		return fmt.Errorf("decode csrf key: %w", err)
	}
	o.Portal.Session.Key = sessionKey
	o.Portal.CSRFKey = csrfKey
	return nil
}

// loadOptions reads the options file. An empty path yields the defaults.
func loadOptions(path string) (Options, error) {
	var o Options
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Options{}, fmt.Errorf("read options: %w", err)
		}
		if err := toml.Unmarshal(raw, &o); err != nil {
			return Options{}, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	o.FillDefaults()
	return o, nil
}

type Secrets struct {
	SessionKey string `toml:"session-key"`
	CSRFKey    string `toml:"csrf-key"`
}

// GenerateMissing fills empty keys with fresh random ones and reports whether anything changed.
func (s *Secrets) GenerateMissing() (bool, error) {
	changed := false
	for _, key := range []*string{&s.SessionKey, &s.CSRFKey} {
		if *key != "" {
			continue
		}
		k, err := idgen.SecureKey(32)
		if err != nil {
			return false, err
		}
		*key = k
		changed = true
	}
	return changed, nil
}

// loadSecrets reads the secrets file, creating it with fresh keys if it is missing or
// incomplete.
func loadSecrets(path string) (Secrets, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		raw = nil
		if !errors.Is(err, os.ErrNotExist) {
			return Secrets{}, fmt.Errorf("read secrets: %w", err)
		}
	}
	var s Secrets
	if err := toml.Unmarshal(raw, &s); err != nil {
		return Secrets{}, fmt.Errorf("unmarshal secrets: %w", err)
	}
	changed, err := s.GenerateMissing()
	if err != nil {
		return Secrets{}, fmt.Errorf("generate secrets: %w", err)
	}
	if changed {
		newRaw, err := toml.Marshal(&s)
		if err != nil {
			return Secrets{}, fmt.Errorf("marshal secrets: %w", err)
		}
		if err := os.WriteFile(path, newRaw, 0600); err != nil {
			return Secrets{}, fmt.Errorf("write secrets: %w", err)
		}
	}
	return s, nil
}
