package dashboard

import (
	"math/rand/v2"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

type session struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	ConnectedAt int64  `json:"connectedAt"`
	Type        string `json:"type"`
}

func (a *api) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": a.Now().UnixMilli(),
	})
}

// handleStatus reports host figures for the dashboard header. CPU load is
// simulated; memory and storage are real percentages.
func (a *api) handleStatus(c *gin.Context) {
	now := a.Now()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	memory := 0
	if mem.HeapSys > 0 {
		memory = int(mem.HeapAlloc * 100 / mem.HeapSys)
	}

	storage := 0
	if a.Workspace != "" {
		if pct, err := diskUsagePercent(a.Workspace); err == nil {
			storage = pct
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"uptime":  now.Sub(a.started).Seconds(),
		"cpu":     rand.IntN(40) + 15,
		"memory":  memory,
		"storage": storage,
		"sessions": []session{
			{ID: "web-1", Name: "Main Session", Status: "active", ConnectedAt: now.Add(-12 * time.Minute).UnixMilli(), Type: "direct"},
			{ID: "subagent-1", Name: "Sub-agent Session", Status: "active", ConnectedAt: now.Add(-time.Hour).UnixMilli(), Type: "subagent"},
		},
		"timestamp": a.timestamp(),
	})
}
