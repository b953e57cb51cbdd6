package userauth

import (
	crand "crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/stratuslab/pdisk-portal/internal/util/timeutil"
	"golang.org/x/crypto/argon2"
)

type PasswordOptions struct {
	Time    uint32 `toml:"time"`
	Memory  uint32 `toml:"memory"`
	Threads uint8  `toml:"threads"`
	KeyLen  uint32 `toml:"key-len"`
	SaltLen uint32 `toml:"salt-len"`
}

var defaultPasswordOptions = &PasswordOptions{
	Time:    3,
	Memory:  16384,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 32,
}

type User struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex"`
	PasswordHash []byte
	PasswordSalt []byte
	// Epoch is bumped every time all the sessions of the user must be revoked.
	Epoch     int
	IsBlocked bool
	CreatedAt timeutil.UTCTime
	// LoggedOutAt is the time of the last explicit revocation, if any.
	LoggedOutAt *timeutil.UTCTime
}

func (u *User) doHash(password []byte, o *PasswordOptions) []byte {
	return argon2.IDKey(password, u.PasswordSalt, o.Time, o.Memory, o.Threads, o.KeyLen)
}

func (u *User) SetPassword(password []byte, o *PasswordOptions) error {
	if o == nil {
		o = defaultPasswordOptions
	}

	salt := make([]byte, o.SaltLen)
	_, err := io.ReadFull(crand.Reader, salt)
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	u.PasswordSalt = salt
	u.PasswordHash = u.doHash(password, o)
	u.Epoch++
	return nil
}

func (u *User) VerifyPassword(password []byte, o *PasswordOptions) bool {
	if o == nil {
		o = defaultPasswordOptions
	}
	if len(u.PasswordHash) == 0 {
		return false
	}
	hash := u.doHash(password, o)
	return subtle.ConstantTimeCompare(hash, u.PasswordHash) == 1
}

// Revoke invalidates every session issued to the user so far.
func (u *User) Revoke(now timeutil.UTCTime) {
	u.Epoch++
	u.LoggedOutAt = &now
}
