package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/freelance-marketplace/internal/config"
	"github.com/ignatzorin/freelance-marketplace/internal/http/handlers"
	"github.com/ignatzorin/freelance-marketplace/internal/http/middleware"
	newHandler "github.com/ignatzorin/freelance-marketplace/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-marketplace/internal/metrics"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

// Handlers собирает все хэндлеры, которые монтирует роутер.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	Notification *handlers.NotificationHandler
	Bookmark     *handlers.BookmarkHandler
	Post         *handlers.PostHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler

	Job      *newHandler.JobHandler
	Proposal *newHandler.ProposalHandler
	Contract *newHandler.ContractHandler
	Message  *newHandler.MessageHandler
}

// SetupRouter регистрирует middleware и все маршруты /api.
func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager, rateStore limiter.Store) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware())
		r.GET("/metrics", metrics.Handler())
	}

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/health", h.Health.Health)

	auth := middleware.AuthMiddleware(tokenManager)
	optionalAuth := middleware.OptionalAuthMiddleware(tokenManager)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(rateStore, cfg.RateLimitRequests, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}
	api.GET("/auth/me", auth, h.Auth.Me)

	// Публичные маршруты
	api.GET("/ws", h.WS.Handle)
	api.GET("/jobs", optionalAuth, h.Job.ListJobs)
	api.GET("/jobs/hot", h.Job.HotJobs)
	api.GET("/jobs/:id", middleware.UUIDValidator("id"), h.Job.GetJob)
	api.GET("/users/top-freelancers", h.Profile.TopFreelancers)
	api.GET("/users/:id", middleware.UUIDValidator("id"), h.Profile.GetPublic)
	api.GET("/posts", h.Post.List)
	api.GET("/posts/:id", middleware.UUIDValidator("id"), h.Post.Get)
	api.GET("/posts/:id/comments", middleware.UUIDValidator("id"), h.Post.Comments)
	api.GET("/posts/:id/reactions", middleware.UUIDValidator("id"), h.Post.Reactions)

	// Защищённые маршруты
	protected := api.Group("")
	protected.Use(auth)
	{
		protected.GET("/users/me", h.Profile.GetMe)
		protected.PATCH("/users/me", h.Profile.UpdateMe)

		jobs := protected.Group("/jobs")
		jobs.POST("", h.Job.CreateJob)
		jobs.GET("/my", h.Job.MyJobs)
		jobs.PATCH("/:id", middleware.UUIDValidator("id"), h.Job.UpdateJob)
		jobs.DELETE("/:id", middleware.UUIDValidator("id"), h.Job.DeleteJob)
		jobs.POST("/:id/proposals", middleware.UUIDValidator("id"), h.Proposal.Apply)
		jobs.GET("/:id/proposals", middleware.UUIDValidator("id"), h.Proposal.ListForJob)

		proposals := protected.Group("/proposals")
		proposals.GET("/my", h.Proposal.ListMy)
		proposals.GET("/:id", middleware.UUIDValidator("id"), h.Proposal.GetProposal)
		proposals.DELETE("/:id", middleware.UUIDValidator("id"), h.Proposal.Withdraw)
		proposals.PATCH("/:id/status", middleware.UUIDValidator("id"), h.Proposal.UpdateStatus)

		contracts := protected.Group("/contracts")
		contracts.GET("/my", h.Contract.My)
		contracts.POST("/proposal/:proposalId", middleware.UUIDValidator("proposalId"), h.Contract.Create)
		contracts.GET("/:id", middleware.UUIDValidator("id"), h.Contract.Get)
		contracts.POST("/:id/fund", middleware.UUIDValidator("id"), h.Contract.Fund)
		contracts.POST("/:id/activate", middleware.UUIDValidator("id"), h.Contract.Activate)
		contracts.POST("/:id/complete", middleware.UUIDValidator("id"), h.Contract.Complete)
		contracts.POST("/:id/milestones", middleware.UUIDValidator("id"), h.Contract.AddMilestone)
		milestone := contracts.Group("/:id/milestones/:mid", middleware.UUIDValidator("id", "mid"))
		{
			milestone.POST("/submit", h.Contract.SubmitWork)
			milestone.POST("/review", h.Contract.Review)
			milestone.POST("/release", h.Contract.Release)
			milestone.GET("/files/:fileId/download", middleware.UUIDValidator("fileId"), h.Contract.Download)
		}

		messages := protected.Group("/messages")
		messages.POST("", h.Message.Send)
		messages.GET("/conversations", h.Message.Conversations)
		messages.GET("/unread-count", h.Message.UnreadCount)
		messages.GET("/with/:userId", middleware.UUIDValidator("userId"), h.Message.Conversation)
		messages.PATCH("/:id/read", middleware.UUIDValidator("id"), h.Message.MarkRead)

		protected.POST("/posts", h.Post.Create)
		protected.DELETE("/posts/:id", middleware.UUIDValidator("id"), h.Post.Delete)
		protected.POST("/posts/:id/like", middleware.UUIDValidator("id"), h.Post.ToggleLike)
		protected.POST("/posts/:id/comments", middleware.UUIDValidator("id"), h.Post.Comment)
		protected.POST("/posts/:id/reactions", middleware.UUIDValidator("id"), h.Post.React)

		protected.GET("/bookmarks", h.Bookmark.List)
		protected.POST("/bookmarks/:jobId", middleware.UUIDValidator("jobId"), h.Bookmark.Add)
		protected.DELETE("/bookmarks/:jobId", middleware.UUIDValidator("jobId"), h.Bookmark.Remove)
		protected.GET("/bookmarks/:jobId", middleware.UUIDValidator("jobId"), h.Bookmark.Check)

		notifications := protected.Group("/notifications")
		notifications.GET("", h.Notification.ListNotifications)
		notifications.GET("/unread-count", h.Notification.UnreadCount)
		notifications.PUT("/read-all", h.Notification.MarkAllAsRead)
		notifications.PUT("/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
		notifications.DELETE("/:id", middleware.UUIDValidator("id"), h.Notification.DeleteNotification)
	}

	return r
}
