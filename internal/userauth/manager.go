package userauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/stratuslab/pdisk-portal/internal/util/clone"
	"github.com/stratuslab/pdisk-portal/internal/util/idgen"
	"github.com/stratuslab/pdisk-portal/internal/util/timeutil"
)

type ManagerOptions struct {
	GCInterval time.Duration    `toml:"gc-interval"`
	Password   *PasswordOptions `toml:"password"`
	// Usernames that are never accepted. Clients send them on purpose to drop their cached
	// credentials.
	ReservedUsernames []string               `toml:"reserved-usernames"`
	CredentialCache   CredentialCacheOptions `toml:"credential-cache"`
}

func (o ManagerOptions) Clone() ManagerOptions {
	o.Password = clone.TrivialPtr(o.Password)
	o.ReservedUsernames = slices.Clone(o.ReservedUsernames)
	return o
}

func (o *ManagerOptions) FillDefaults() {
	if o.GCInterval == 0 {
		o.GCInterval = 5 * time.Minute
	}
	if o.ReservedUsernames == nil {
		o.ReservedUsernames = []string{"invalid", "x-pdisk-logout"}
	}
	o.CredentialCache.FillDefaults()
}

type Manager struct {
	DB
	o      *ManagerOptions
	log    *slog.Logger
	creds  *credentialCache
	ctx    context.Context
	cancel func()
	done   chan struct{}
}

func NewManager(log *slog.Logger, db DB, o ManagerOptions) *Manager {
	o = o.Clone()
	o.FillDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		DB:     db,
		o:      &o,
		log:    log,
		creds:  newCredentialCache(o.CredentialCache),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *Manager) Close() {
	m.cancel()
	<-m.done
}

func (m *Manager) IsReserved(username string) bool {
	return slices.Contains(m.o.ReservedUsernames, username)
}

func (m *Manager) AddUser(ctx context.Context, username, password string) (User, error) {
	if m.IsReserved(username) {
		return User{}, ErrReservedUsername
	}
	if err := ValidateUsername(username); err != nil {
		return User{}, fmt.Errorf("bad username: %w", err)
	}
	if err := ValidatePassword(password); err != nil {
		return User{}, fmt.Errorf("bad password: %w", err)
	}
	user := User{
		ID:        idgen.ID(),
		Username:  username,
		CreatedAt: timeutil.NowUTC(),
	}
	if err := user.SetPassword([]byte(password), m.o.Password); err != nil {
		return User{}, fmt.Errorf("set password: %w", err)
	}
	if err := m.CreateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (m *Manager) SetPassword(ctx context.Context, username, password string) error {
	if err := ValidatePassword(password); err != nil {
		return fmt.Errorf("bad password: %w", err)
	}
	user, err := m.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := user.SetPassword([]byte(password), m.o.Password); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if err := m.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	m.creds.Forget(user.ID)
	return nil
}

func (m *Manager) SetBlocked(ctx context.Context, username string, blocked bool) error {
	user, err := m.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	user.IsBlocked = blocked
	if blocked {
		user.Revoke(timeutil.NowUTC())
	}
	if err := m.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	m.creds.Forget(user.ID)
	return nil
}

// Revoke ends every session of the user. This is the explicit logout operation.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	user.Revoke(timeutil.NowUTC())
	if err := m.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	m.creds.Forget(user.ID)
	return nil
}

// Authenticate checks Basic credentials. Reserved usernames and blocked users are rejected
// with ErrBadCredentials and ErrUserBlocked respectively.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (User, error) {
	if m.IsReserved(username) || username == "" {
		return User{}, ErrBadCredentials
	}
	user, err := m.creds.Check(ctx, username, password, func(ctx context.Context) (User, error) {
		user, err := m.GetUserByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return User{}, ErrBadCredentials
			}
			return User{}, fmt.Errorf("get user: %w", err)
		}
		if !user.VerifyPassword([]byte(password), m.o.Password) {
			return User{}, ErrBadCredentials
		}
		return user, nil
	})
	if err != nil {
		return User{}, err
	}
	if user.IsBlocked {
		return User{}, ErrUserBlocked
	}
	return user, nil
}

func (m *Manager) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.o.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case now := <-ticker.C:
			m.creds.Prune(now)
		}
	}
}
