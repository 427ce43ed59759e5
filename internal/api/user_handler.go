package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserHandler exposes profile, schedule and media endpoints.
type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// --- Request Structs ---

type SelectProgramRequest struct {
	ProgramID string `json:"programId" binding:"required"`
	StartDate string `json:"startDate" binding:"required"` // YYYY-MM-DD
}

type PersonalRecordRequest struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type UploadRequest struct {
	Kind        domain.MediaKind `json:"kind" binding:"required,oneof=progress-photo share-image"`
	FileName    string           `json:"fileName" binding:"required"`
	ContentType string           `json:"contentType" binding:"required"`
	Size        int64            `json:"size" binding:"required,min=1"`
	SessionID   string           `json:"sessionId,omitempty"`
}

// parseDateParam parses a YYYY-MM-DD value into a calendar date.
func parseDateParam(value string) (domain.CalendarDate, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return domain.CalendarDate{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return domain.NewCalendarDate(t), nil
}

// --- Handler Methods ---

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	user, err := h.userService.Profile(c.Request.Context(), userID)
	if err != nil {
		handleUserServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		handleUserServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SelectProgram(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req SelectProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	programID, err := primitive.ObjectIDFromHex(req.ProgramID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid program ID format")
		return
	}
	startDate, err := parseDateParam(req.StartDate)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.SelectProgram(c.Request.Context(), userID, programID, startDate); err != nil {
		if errors.Is(err, service.ErrScheduleInvalid) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		handleUserServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Program selected"})
}

func (h *UserHandler) ClearProgram(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	if err := h.userService.ClearProgram(c.Request.Context(), userID); err != nil {
		handleUserServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetPersonalRecord(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req PersonalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	user, err := h.userService.SetPersonalRecord(c.Request.Context(), userID, req.Name, req.Value)
	if err != nil {
		handleUserServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.PersonalRecords)
}

func (h *UserHandler) DeletePersonalRecord(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	user, err := h.userService.DeletePersonalRecord(c.Request.Context(), userID, c.Param("name"))
	if err != nil {
		handleUserServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.PersonalRecords)
}

func (h *UserHandler) GetTrainingPaces(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	paces, ok, err := h.userService.TrainingPaces(c.Request.Context(), userID)
	if err != nil {
		handleUserServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true, "paces": paces})
}

func (h *UserHandler) RequestUpload(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	var sessionID *primitive.ObjectID
	if req.SessionID != "" {
		id, err := primitive.ObjectIDFromHex(req.SessionID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		sessionID = &id
	}

	ticket, err := h.userService.RequestUpload(c.Request.Context(), userID, req.Kind, req.FileName, req.ContentType, req.Size, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMedia) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		handleUserServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (h *UserHandler) ListMedia(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	kind := domain.MediaKind(c.Query("kind"))
	media, err := h.userService.ListMedia(c.Request.Context(), userID, kind)
	if err != nil {
		handleUserServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, media)
}

func (h *UserHandler) DeleteMedia(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	mediaID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid media ID format")
		return
	}

	if err := h.userService.DeleteMedia(c.Request.Context(), userID, mediaID); err != nil {
		if errors.Is(err, service.ErrMediaNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, service.ErrForbidden) {
			abortWithError(c, http.StatusForbidden, err.Error())
			return
		}
		handleUserServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func handleUserServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExternalService):
		abortWithError(c, http.StatusBadGateway, "Upstream service failed")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
