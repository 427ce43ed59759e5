package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
)

// StravaHandler exposes Strava account linking and activity browsing.
type StravaHandler struct {
	stravaService service.StravaService
}

func NewStravaHandler(stravaService service.StravaService) *StravaHandler {
	return &StravaHandler{stravaService: stravaService}
}

type StravaConnectRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *StravaHandler) Connect(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req StravaConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.stravaService.Connect(c.Request.Context(), userID, req.Code); err != nil {
		handleStravaServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Strava connected"})
}

func (h *StravaHandler) Disconnect(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if err := h.stravaService.Disconnect(c.Request.Context(), userID); err != nil {
		handleStravaServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StravaHandler) ListActivities(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "10"))
	activities, err := h.stravaService.RecentActivities(c.Request.Context(), userID, perPage)
	if err != nil {
		handleStravaServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func handleStravaServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStravaNotConnected):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrExternalService):
		abortWithError(c, http.StatusBadGateway, "Strava request failed")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
