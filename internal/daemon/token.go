package daemon

import (
	"log/slog"
	"sync"
	"time"
)

const tokenTTL = 30 * time.Second

// tokenCache serves the dashboard token to every request while hitting the
// keyring at most once per ttl. A failed lookup keeps the last good token.
type tokenCache struct {
	lookup func() (string, error)
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	token   string
	fetched time.Time
	loaded  bool
	failing bool
}

func newTokenCache(lookup func() (string, error), ttl time.Duration, logger *slog.Logger) *tokenCache {
	return &tokenCache{lookup: lookup, ttl: ttl, now: time.Now, logger: logger}
}

// Token returns the current token, refreshing it when the cached copy expired.
func (c *tokenCache) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.loaded && now.Sub(c.fetched) < c.ttl {
		return c.token
	}
	c.fetched = now
	c.loaded = true

	token, err := c.lookup()
	if err != nil {
		if !c.failing {
			c.logger.Warn("dashboard token lookup failed, keeping previous token", "error", err)
		}
		c.failing = true
		return c.token
	}
	if c.failing {
		c.logger.Info("dashboard token lookup recovered")
	}
	c.failing = false
	if token != c.token {
		c.logger.Info("dashboard token changed", "set", token != "")
	}
	c.token = token
	return c.token
}
