package routes

import (
	"net/http"

	"journal-review-api/controllers"
	"journal-review-api/middleware"
	"journal-review-api/services"

	"github.com/gin-gonic/gin"
)

// Options carry what the route table needs besides the handler.
type Options struct {
	// Auth authenticates protected routes.
	Auth gin.HandlerFunc
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func SetupRoutes(router *gin.Engine, h *controllers.Handler, opts Options) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Journal Review API is running",
		})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", h.Login)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(opts.Auth)
		{
			protected.GET("/profile", h.GetProfile)
			protected.PUT("/change-password", h.ChangePassword)

			manuscripts := protected.Group("/manuscripts")
			{
				manuscripts.GET("", h.ListManuscripts)
				manuscripts.POST("", middleware.RequireCapability(services.CapSubmitManuscripts), h.SubmitManuscript)
				manuscripts.GET("/:id", h.GetManuscript)
				manuscripts.GET("/:id/history", h.GetManuscriptHistory)
				manuscripts.POST("/:id/revisions", h.UploadRevision)
				manuscripts.GET("/:id/access/:kind", h.CheckAccess)
				manuscripts.GET("/:id/artifacts/:kind", h.DownloadArtifact)

				manuscripts.POST("/:id/triage", h.TriageDecision)
				manuscripts.GET("/:id/decisions", h.ListDecisions)
				manuscripts.POST("/:id/decisions", h.RecordDecision)
				manuscripts.POST("/:id/stage", h.OverrideStage)
				manuscripts.POST("/:id/publish", h.PublishManuscript)

				manuscripts.GET("/:id/reviews", h.ListManuscriptReviews)
				manuscripts.POST("/:id/reviews", h.InviteReviewer)
			}

			reviews := protected.Group("/reviews")
			{
				reviews.GET("/assigned", h.ListAssignedReviews)
				reviews.POST("/bulk-assign", h.BulkAssignReviewer)
				reviews.GET("/:id", h.GetReview)
				reviews.POST("/:id/respond", h.RespondToInvitation)
				reviews.POST("/:id/submit", h.SubmitReview)
			}

			protected.GET("/statistics", h.GetStatistics)
			protected.GET("/export/manuscripts", h.ExportManuscripts)

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.GetNotifications)
				notifications.GET("/counter", h.GetNotificationCounter)
				notifications.PATCH("/:id/read", h.MarkNotificationRead)
				notifications.POST("/mark-all-read", h.MarkAllNotificationsRead)
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireCapability(services.CapManageJournal))
			{
				admin.GET("/notification-messages", h.ListNotificationMessages)
				admin.POST("/notification-messages", h.CreateNotificationMessage)
				admin.PUT("/notification-messages/:id", h.UpdateNotificationMessage)
				admin.POST("/notification-messages/:id/reset", h.ResetNotificationMessage)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
	})
}
