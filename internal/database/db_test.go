package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stratuslab/pdisk-portal/internal/portal"
	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
	"github.com/stratuslab/pdisk-portal/internal/util/timeutil"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	db, err := New(slogx.DiscardLogger(), Options{
		Path:   filepath.Join(t.TempDir(), "portal.db"),
		UseWAL: true,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	user := userauth.User{
		ID:           "01",
		Username:     "alice",
		PasswordHash: []byte{1, 2, 3},
		PasswordSalt: []byte{4},
		Epoch:        1,
		CreatedAt:    timeutil.NowUTC(),
	}
	require.NoError(t, db.CreateUser(ctx, user))
	require.ErrorIs(t, db.CreateUser(ctx, userauth.User{ID: "02", Username: "alice"}), userauth.ErrUserAlreadyExists)

	got, err := db.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "01", got.ID)
	require.Equal(t, []byte{1, 2, 3}, got.PasswordHash)
	require.Nil(t, got.LoggedOutAt)

	got.Revoke(timeutil.NowUTC())
	got.IsBlocked = true
	require.NoError(t, db.UpdateUser(ctx, got))

	got, err = db.GetUser(ctx, "01")
	require.NoError(t, err)
	require.Equal(t, 2, got.Epoch)
	require.True(t, got.IsBlocked)
	require.NotNil(t, got.LoggedOutAt)

	_, err = db.GetUser(ctx, "missing")
	require.ErrorIs(t, err, userauth.ErrUserNotFound)
	require.ErrorIs(t, db.UpdateUser(ctx, userauth.User{ID: "missing"}), userauth.ErrUserNotFound)

	require.NoError(t, db.CreateUser(ctx, userauth.User{ID: "03", Username: "bob"}))
	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Username)
	require.Equal(t, "bob", users[1].Username)
}

func TestSessionStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db := newTestDB(t)

	_, err := db.NewSessionStore(ctx, portal.SessionOptions{})
	require.Error(t, err)

	store, err := db.NewSessionStore(ctx, portal.SessionOptions{
		Key:             []byte("0123456789abcdef0123456789abcdef"),
		CleanupInterval: time.Hour,
	})
	require.NoError(t, err)
	require.NotNil(t, store)
}
