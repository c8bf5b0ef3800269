package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"missioncontrol/internal/taskboard"
)

func (a *api) handleTasks(c *gin.Context) {
	tasks, err := a.Tasks.List()
	if err != nil {
		a.Logger.Error("failed to load tasks", "error", err)
		respondError(c, http.StatusInternalServerError, "tasks_unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks})
}

func (a *api) handleSaveTasks(c *gin.Context) {
	var body struct {
		Tasks *[]taskboard.Task `json:"tasks"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "Request body must be JSON: "+err.Error())
		return
	}
	if body.Tasks == nil {
		respondError(c, http.StatusBadRequest, "missing_tasks", "tasks is required")
		return
	}

	saved, err := a.Tasks.Replace(*body.Tasks)
	switch {
	case errors.Is(err, taskboard.ErrInvalidStatus), errors.Is(err, taskboard.ErrInvalidTask):
		respondError(c, http.StatusBadRequest, "invalid_task", err.Error())
		return
	case err != nil:
		a.Logger.Error("failed to save tasks", "error", err)
		respondError(c, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": saved})
}
