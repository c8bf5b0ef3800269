package dashboard

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *api) handleReports(c *gin.Context) {
	if a.Notes == nil {
		respondError(c, http.StatusServiceUnavailable, "reports_unavailable", "Agent notes are not configured")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"reports":    a.Notes.Agents(),
		"activities": a.Notes.Activities(),
		"ideas":      a.Notes.Ideas(),
		"timestamp":  a.timestamp(),
	})
}

func (a *api) handleHourlyReport(c *gin.Context) {
	data, err := os.ReadFile(a.HourlyPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.Logger.Warn("failed to read hourly report", "path", a.HourlyPath, "error", err)
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No hourly report generated yet"})
		return
	}

	generated := ""
	if st, err := os.Stat(a.HourlyPath); err == nil {
		generated = st.ModTime().UTC().Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"report":    string(data),
		"generated": generated,
	})
}
