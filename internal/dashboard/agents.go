package dashboard

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"missioncontrol/internal/extract"
	"missioncontrol/internal/report"
)

type agentView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Role        string         `json:"role"`
	Avatar      string         `json:"avatar,omitempty"`
	Status      extract.Status `json:"status"`
	CurrentTask string         `json:"currentTask"`
	LastReport  string         `json:"lastReport,omitempty"`
	Report      string         `json:"report"`
	ObservedAt  *time.Time     `json:"observedAt,omitempty"`
}

// handleAgents joins the roster with the latest report of each agent.
func (a *api) handleAgents(c *gin.Context) {
	doc := a.Reports.Snapshot()

	views := make([]agentView, 0, a.Roster.Len())
	for _, ag := range a.Roster.All() {
		v := agentView{
			ID:          ag.ID,
			Name:        ag.Name,
			Role:        ag.Role,
			Avatar:      ag.Avatar,
			Status:      extract.StatusIdle,
			CurrentTask: extract.DefaultTask,
		}
		if r, ok := doc.Get(ag.ID); ok {
			if r.Status != "" {
				v.Status = r.Status
			}
			if r.CurrentTask != "" {
				v.CurrentTask = r.CurrentTask
			}
			v.LastReport = r.LastReport
			v.Report = r.Report
			if !r.ObservedAt.IsZero() {
				at := r.ObservedAt
				v.ObservedAt = &at
			}
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"agents":    views,
		"timestamp": a.timestamp(),
	})
}

func (a *api) handleUpdateAgent(c *gin.Context) {
	var req report.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "Request body must be JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.AgentID) == "" {
		respondError(c, http.StatusBadRequest, "missing_agent", "agentId is required")
		return
	}

	r, out, err := a.Reports.Update(c.Request.Context(), req)
	switch {
	case errors.Is(err, report.ErrUnknownAgent):
		respondError(c, http.StatusNotFound, "unknown_agent", "Unknown agent "+req.AgentID+"; valid agents: "+strings.Join(a.Roster.IDs(), ", "))
		return
	case errors.Is(err, report.ErrInvalidStatus):
		respondError(c, http.StatusBadRequest, "invalid_status", "status must be one of active, idle, blocked")
		return
	case err != nil:
		a.Logger.Error("agent report update failed", "agent", req.AgentID, "error", err)
		respondError(c, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	if !out.OK() {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "publish_failed",
			"message": out.Err().Error(),
			"agent":   r,
			"publish": out,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "agent": r, "publish": out})
}
