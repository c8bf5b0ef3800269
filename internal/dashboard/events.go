package dashboard

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 30 * time.Second

// handleEvents streams scan results as server-sent events until the client
// goes away or the broker closes.
func (a *api) handleEvents(c *gin.Context) {
	if a.Results == nil {
		respondError(c, http.StatusServiceUnavailable, "events_unavailable", "Scan events are only available from the daemon")
		return
	}

	ctx := c.Request.Context()
	sub := a.Results.Subscribe(ctx)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"timestamp": a.timestamp()})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case res, ok := <-sub:
			if !ok {
				return false
			}
			c.SSEvent("scan", res)
			return true
		case <-ticker.C:
			c.SSEvent("ping", a.timestamp())
			return true
		}
	})
}
