package api

import (
	"errors"
	"io"
	"net/http"

	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SubscriptionHandler exposes billing endpoints and the Stripe webhook.
type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	state, err := h.subscriptionService.Status(c.Request.Context(), userID)
	if err != nil {
		handleSubscriptionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *SubscriptionHandler) CreateCheckout(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	url, err := h.subscriptionService.CreateCheckoutSession(c.Request.Context(), userID)
	if err != nil {
		handleSubscriptionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if err := h.subscriptionService.CancelAtPeriodEnd(c.Request.Context(), userID); err != nil {
		handleSubscriptionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription will cancel at period end"})
}

func (h *SubscriptionHandler) Resume(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if err := h.subscriptionService.ResumeSubscription(c.Request.Context(), userID); err != nil {
		handleSubscriptionServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription resumed"})
}

// HandleWebhook receives Stripe events. Unauthenticated; the signature header
// is the authentication.
func (h *SubscriptionHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<16))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to read webhook payload")
		return
	}

	if err := h.subscriptionService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		// Stripe retries on non-2xx; only signal retry-worthy failures.
		if errors.Is(err, service.ErrPersistence) {
			abortWithError(c, http.StatusInternalServerError, "Failed to apply event")
			return
		}
		logrus.WithError(err).Warn("rejected stripe webhook")
		abortWithError(c, http.StatusBadRequest, "Invalid webhook")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func handleSubscriptionServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoSubscription):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrStripeNotConfigured):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrExternalService):
		abortWithError(c, http.StatusBadGateway, "Billing provider failed")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
