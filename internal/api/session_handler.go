package api

import (
	"errors"
	"fmt"
	"net/http"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionHandler exposes the dashboard: day resolution, calendar, session
// interaction, swaps and history.
type SessionHandler struct {
	sessionService  service.SessionService
	scheduleService service.ScheduleService
	notes           *service.NotesDebouncer
}

func NewSessionHandler(sessionService service.SessionService, scheduleService service.ScheduleService, notes *service.NotesDebouncer) *SessionHandler {
	return &SessionHandler{
		sessionService:  sessionService,
		scheduleService: scheduleService,
		notes:           notes,
	}
}

// --- Request Structs ---

type SwapRequest struct {
	Date1 string `json:"date1" binding:"required"` // YYYY-MM-DD
	Date2 string `json:"date2" binding:"required"`
}

type ToggleItemRequest struct {
	Key  string `json:"key" binding:"required"`
	Done *bool  `json:"done" binding:"required"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type FinishRequest struct {
	Duration string `json:"duration"`
}

type LinkActivityRequest struct {
	Activity service.StravaActivity `json:"activity" binding:"required"`
}

// --- Handler Methods ---

// GetDay resolves what the athlete should do on a date. Defaults to today.
func (h *SessionHandler) GetDay(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	dateStr := c.Query("date")
	var date domain.CalendarDate
	if dateStr == "" {
		date = domain.Today()
	} else {
		date, err = parseDateParam(dateStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	resolution, err := h.sessionService.ResolveDay(c.Request.Context(), userID, date)
	if err != nil {
		handleSessionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolution)
}

// GetCalendar renders an inclusive date range with sessions overlaid.
func (h *SessionHandler) GetCalendar(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if to.Before(from) {
		abortWithError(c, http.StatusBadRequest, "'to' must not precede 'from'")
		return
	}

	days, err := h.scheduleService.Calendar(c.Request.Context(), userID, from, to)
	if err != nil {
		handleSessionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

func (h *SessionHandler) SwapWorkouts(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	date1, err := parseDateParam(req.Date1)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	date2, err := parseDateParam(req.Date2)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if date1.Equal(date2) {
		abortWithError(c, http.StatusBadRequest, "Cannot swap a date with itself")
		return
	}

	if err := h.sessionService.SwapWorkouts(c.Request.Context(), userID, date1, date2); err != nil {
		if errors.Is(err, service.ErrNothingToSwap) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		handleSessionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workouts swapped"})
}

func (h *SessionHandler) ToggleItem(c *gin.Context) {
	userID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req ToggleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	session, err := h.sessionService.ToggleItem(c.Request.Context(), userID, sessionID, req.Key, *req.Done)
	if err != nil {
		handleSessionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// UpdateNotes buffers the notes text; the write lands after the debounce
// quiet period, or at the next Finish.
func (h *SessionHandler) UpdateNotes(c *gin.Context) {
	userID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	h.notes.Update(userID, sessionID, req.Notes)
	c.JSON(http.StatusAccepted, gin.H{"message": "Notes buffered"})
}

func (h *SessionHandler) FinishSession(c *gin.Context) {
	userID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	// Body is optional for finish.
	var req FinishRequest
	_ = c.ShouldBindJSON(&req)

	// Pending notes must land before the session is sealed.
	if err := h.notes.Flush(c.Request.Context(), userID, sessionID); err != nil {
		handleSessionServiceError(c, err)
		return
	}

	session, err := h.sessionService.Finish(c.Request.Context(), userID, sessionID, req.Duration)
	if err != nil {
		handleSessionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) LinkActivity(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req LinkActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if req.Activity.ID == 0 || req.Activity.StartDate.IsZero() {
		abortWithError(c, http.StatusBadRequest, "Activity id and start date are required")
		return
	}

	session, err := h.sessionService.LinkStravaActivity(c.Request.Context(), userID, req.Activity)
	if err != nil {
		handleSessionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) GetHistory(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	sessions, streaks, err := h.sessionService.History(c.Request.Context(), userID)
	if err != nil {
		handleSessionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "streaks": streaks})
}

// sessionParams extracts the authenticated user and the :id path parameter.
func (h *SessionHandler) sessionParams(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return userID, sessionID, true
}

func handleSessionServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrSessionNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotYourSession):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrExternalService):
		abortWithError(c, http.StatusBadGateway, "Upstream service failed")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
