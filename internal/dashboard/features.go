package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"missioncontrol/internal/features"
)

func (a *api) handleFeatures(c *gin.Context) {
	list, err := a.Features.List()
	switch {
	case errors.Is(err, features.ErrNoFeatures):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No features found"})
		return
	case err != nil:
		a.Logger.Error("failed to load features", "error", err)
		respondError(c, http.StatusInternalServerError, "features_unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "features": list})
}

func (a *api) handleUpdateFeature(c *gin.Context) {
	var body struct {
		FeatureID string `json:"featureId"`
		Status    string `json:"status"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", "Request body must be JSON: "+err.Error())
		return
	}

	f, err := a.Features.SetStatus(body.FeatureID, body.Status, body.Notes)
	switch {
	case errors.Is(err, features.ErrInvalid):
		respondError(c, http.StatusBadRequest, "invalid_feature_update", err.Error())
		return
	case errors.Is(err, features.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Feature not found")
		return
	case err != nil:
		a.Logger.Error("failed to update feature", "feature", body.FeatureID, "error", err)
		respondError(c, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	a.Logger.Info("feature status changed", "feature", body.FeatureID, "status", body.Status)
	c.JSON(http.StatusOK, gin.H{"success": true, "feature": f})
}
