package api

import (
	"net/http"

	"hybridx/training-app/internal/domain"
	"hybridx/training-app/internal/service"

	"github.com/gin-gonic/gin"
)

// Services bundles everything the route table depends on.
type Services struct {
	Auth         service.AuthService
	User         service.UserService
	Program      service.ProgramService
	Session      service.SessionService
	Schedule     service.ScheduleService
	Subscription service.SubscriptionService
	Strava       service.StravaService
	Coach        service.CoachService
	Notes        *service.NotesDebouncer
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.User)
	programHandler := NewProgramHandler(svc.Program)
	sessionHandler := NewSessionHandler(svc.Session, svc.Schedule, svc.Notes)
	subscriptionHandler := NewSubscriptionHandler(svc.Subscription)
	stravaHandler := NewStravaHandler(svc.Strava)
	coachHandler := NewCoachHandler(svc.Coach)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// Stripe calls this; it carries its own signature-based auth.
		apiV1.POST("/webhooks/stripe", subscriptionHandler.HandleWebhook)
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		// --- Profile ---
		meGroup := protected.Group("/me")
		{
			meGroup.GET("", userHandler.GetProfile)
			meGroup.PATCH("", userHandler.UpdateProfile)
			meGroup.PUT("/program", userHandler.SelectProgram)
			meGroup.DELETE("/program", userHandler.ClearProgram)
			meGroup.PUT("/records", userHandler.SetPersonalRecord)
			meGroup.DELETE("/records/:name", userHandler.DeletePersonalRecord)
			meGroup.GET("/paces", userHandler.GetTrainingPaces)
		}

		// --- Billing (reachable regardless of subscription state) ---
		billingGroup := protected.Group("/subscription")
		{
			billingGroup.GET("", subscriptionHandler.GetStatus)
			billingGroup.POST("/checkout", subscriptionHandler.CreateCheckout)
			billingGroup.POST("/cancel", subscriptionHandler.Cancel)
			billingGroup.POST("/resume", subscriptionHandler.Resume)
		}

		// --- Program catalog ---
		programGroup := protected.Group("/programs")
		{
			programGroup.GET("", programHandler.ListPrograms)
			programGroup.GET("/:id", programHandler.GetProgram)

			// Admin-only catalog management.
			programGroup.POST("", RoleMiddleware(domain.RoleAdmin), programHandler.CreateProgram)
			programGroup.PUT("/:id", RoleMiddleware(domain.RoleAdmin), programHandler.UpdateProgram)
			programGroup.DELETE("/:id", RoleMiddleware(domain.RoleAdmin), programHandler.DeleteProgram)
		}

		// --- Training (requires an entitling subscription) ---
		training := protected.Group("")
		training.Use(SubscriptionMiddleware(svc.Subscription))
		{
			training.GET("/day", sessionHandler.GetDay)
			training.GET("/calendar", sessionHandler.GetCalendar)
			training.POST("/swap", sessionHandler.SwapWorkouts)
			training.GET("/history", sessionHandler.GetHistory)

			sessionGroup := training.Group("/sessions")
			{
				sessionGroup.POST("/:id/items", sessionHandler.ToggleItem)
				sessionGroup.PUT("/:id/notes", sessionHandler.UpdateNotes)
				sessionGroup.POST("/:id/finish", sessionHandler.FinishSession)
				sessionGroup.POST("/:id/extend", coachHandler.ExtendSession)
			}
			training.POST("/sessions/link-activity", sessionHandler.LinkActivity)

			stravaGroup := training.Group("/strava")
			{
				stravaGroup.POST("/connect", stravaHandler.Connect)
				stravaGroup.DELETE("/connect", stravaHandler.Disconnect)
				stravaGroup.GET("/activities", stravaHandler.ListActivities)
			}

			coachGroup := training.Group("/coach")
			{
				coachGroup.POST("/workout", coachHandler.GenerateWorkout)
				coachGroup.GET("/insight", coachHandler.WeeklyInsight)
			}

			mediaGroup := training.Group("/media")
			{
				mediaGroup.POST("/uploads", userHandler.RequestUpload)
				mediaGroup.GET("", userHandler.ListMedia)
				mediaGroup.DELETE("/:id", userHandler.DeleteMedia)
			}
		}
	}
}
