package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"missioncontrol/internal/controlplane"
)

// handleServices returns the service table keyed by id.
func (a *api) handleServices(c *gin.Context) {
	out := make(map[string]controlplane.Service)
	for _, svc := range a.Control.Services() {
		out[svc.ID] = svc
	}
	c.JSON(http.StatusOK, out)
}

// handleSkills returns the skill table keyed by id.
func (a *api) handleSkills(c *gin.Context) {
	out := make(map[string]controlplane.Skill)
	for _, sk := range a.Control.Skills() {
		out[sk.ID] = sk
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) handleServiceAction(c *gin.Context) {
	a.serviceAction(c, c.Param("id"), c.Param("action"))
}

func (a *api) handleServiceActionQuery(c *gin.Context) {
	a.serviceAction(c, c.Query("serviceId"), c.Query("action"))
}

func (a *api) serviceAction(c *gin.Context, id, action string) {
	if id == "" || action == "" {
		respondError(c, http.StatusBadRequest, "missing_parameters", "serviceId and action are required")
		return
	}
	res, err := a.Control.ServiceAction(id, action)
	if err != nil {
		controlError(c, "Service", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"service": res.ID,
		"action":  res.Action,
		"status":  res.Status,
	})
}

func (a *api) handleSkillAction(c *gin.Context) {
	a.skillAction(c, c.Param("id"), c.Param("action"))
}

func (a *api) handleSkillActionQuery(c *gin.Context) {
	a.skillAction(c, c.Query("skillId"), c.Query("action"))
}

// skillAction applies an action. For execute the requested operation comes
// from the JSON body's "action" field.
func (a *api) skillAction(c *gin.Context, id, action string) {
	if id == "" || action == "" {
		respondError(c, http.StatusBadRequest, "missing_parameters", "skillId and action are required")
		return
	}

	var payload string
	if action == "execute" {
		var body struct {
			Action string `json:"action"`
		}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				respondError(c, http.StatusBadRequest, "invalid_body", "Request body must be JSON: "+err.Error())
				return
			}
		}
		payload = body.Action
	}

	res, err := a.Control.SkillAction(id, action, payload)
	if err != nil {
		controlError(c, "Skill", err)
		return
	}

	resp := gin.H{
		"success": true,
		"skill":   res.ID,
		"action":  res.Action,
		"status":  res.Status,
	}
	if res.Result != "" {
		resp["result"] = res.Result
	}
	c.JSON(http.StatusOK, resp)
}

func controlError(c *gin.Context, kind string, err error) {
	switch {
	case errors.Is(err, controlplane.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", kind+" not found")
	case errors.Is(err, controlplane.ErrInvalidAction):
		respondError(c, http.StatusBadRequest, "invalid_action", "Invalid action")
	default:
		respondError(c, http.StatusInternalServerError, "internal", err.Error())
	}
}
