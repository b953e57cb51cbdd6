package userauth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type CredentialCacheOptions struct {
	Expiry time.Duration `toml:"expiry"`
}

func (o *CredentialCacheOptions) FillDefaults() {
	if o.Expiry == 0 {
		o.Expiry = 3 * time.Minute
	}
}

// credentialCache remembers recently verified Basic credentials. Browsers resend them with
// every request, and running argon2 each time is too slow.
type credentialCache struct {
	o     CredentialCacheOptions
	cache sync.Map
	group singleflight.Group
	// gen is bumped by Forget. Lookups that started before the bump are not cached.
	gen atomic.Uint64
}

type credentialCacheVal struct {
	deadline time.Time
	user     User
}

func hashCredentials(username, password string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(username))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func newCredentialCache(o CredentialCacheOptions) *credentialCache {
	o.FillDefaults()
	return &credentialCache{o: o}
}

func (c *credentialCache) Check(
	ctx context.Context,
	username, password string,
	verify func(ctx context.Context) (User, error),
) (User, error) {
	now := time.Now()
	key := hashCredentials(username, password)
	if v, ok := c.cache.Load(key); ok {
		val := v.(*credentialCacheVal)
		if now.Before(val.deadline) {
			return val.user, nil
		}
		c.cache.CompareAndDelete(key, v)
	}
	gen := c.gen.Load()
	res, err, _ := c.group.Do(key, func() (any, error) {
		return verify(context.WithoutCancel(ctx))
	})
	if err != nil {
		return User{}, err
	}
	user := res.(User)
	val := &credentialCacheVal{
		deadline: time.Now().Add(c.o.Expiry),
		user:     user,
	}
	c.cache.Store(key, val)
	if c.gen.Load() != gen {
		c.cache.CompareAndDelete(key, val)
	}
	return user, nil
}

// Forget drops all the cached entries for the given user.
func (c *credentialCache) Forget(userID string) {
	c.gen.Add(1)
	c.cache.Range(func(k, v any) bool {
		if v.(*credentialCacheVal).user.ID == userID {
			c.cache.Delete(k)
		}
		return true
	})
}

func (c *credentialCache) Prune(now time.Time) {
	c.cache.Range(func(k, v any) bool {
		if !now.Before(v.(*credentialCacheVal).deadline) {
			c.cache.CompareAndDelete(k, v)
		}
		return true
	})
}
