package api

import (
	"errors"
	"fmt"
	"net/http"

	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoachHandler exposes AI-generated workouts and insights.
type CoachHandler struct {
	coachService service.CoachService
}

func NewCoachHandler(coachService service.CoachService) *CoachHandler {
	return &CoachHandler{coachService: coachService}
}

// GenerateWorkout creates a one-off workout for today, replacing whatever
// the program scheduled.
func (h *CoachHandler) GenerateWorkout(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req service.WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	session, err := h.coachService.GenerateWorkout(c.Request.Context(), userID, req)
	if err != nil {
		handleCoachServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *CoachHandler) ExtendSession(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	session, err := h.coachService.SuggestExtension(c.Request.Context(), userID, sessionID)
	if err != nil {
		handleCoachServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *CoachHandler) WeeklyInsight(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	insight, err := h.coachService.WeeklyInsight(c.Request.Context(), userID)
	if err != nil {
		handleCoachServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insight": insight})
}

func handleCoachServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCoachNotConfigured):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrSessionNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotYourSession):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrExternalService):
		abortWithError(c, http.StatusBadGateway, "AI provider failed")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
