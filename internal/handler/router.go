package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/middleware"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Accounts      *AccountHandler
	Feedback      *FeedbackHandler
	RecycleBin    *RecycleBinHandler
	DeletionQueue *DeletionQueueHandler
	Configuration *ConfigurationHandler
	Audit         *AuditHandler
	Batch         *BatchHandler
}

// RegisterRoutes mounts the API on the given group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	authRequired := middleware.JWT(tokens)
	optionalAuth := middleware.OptionalJWT(tokens)
	staff := middleware.RequireStaff()
	admin := middleware.RequireAdmin()

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", authRequired, h.Auth.Logout)
	auth.GET("/me", authRequired, h.Auth.Me)

	api.POST("/accounts/register", h.Accounts.Register)
	api.POST("/staff", authRequired, admin, h.Accounts.CreateStaff)

	accounts := api.Group("/accounts/:type", authRequired)
	accounts.GET("", staff, h.Accounts.List)
	accounts.GET("/:id", h.Accounts.Get)
	accounts.DELETE("/:id", staff, h.Accounts.Delete)
	accounts.POST("/:id/approve", staff, h.Accounts.Approve)
	accounts.POST("/:id/reject", staff, h.Accounts.Reject)
	accounts.POST("/:id/deletion", h.DeletionQueue.Request)
	accounts.DELETE("/:id/deletion", h.DeletionQueue.Cancel)
	accounts.DELETE("/:id/dependents", admin, h.RecycleBin.CascadePurge)

	students := api.Group("/students/:id/info-change", authRequired)
	students.PUT("", h.Accounts.SubmitInfoChange)
	students.POST("/approve", staff, h.Accounts.ApproveInfoChange)
	students.POST("/reject", staff, h.Accounts.RejectInfoChange)

	feedback := api.Group("/feedback")
	feedback.GET("", optionalAuth, h.Feedback.List)
	feedback.GET("/:id", optionalAuth, h.Feedback.Get)
	feedback.POST("", authRequired, h.Feedback.Submit)
	feedback.POST("/:id/approve", authRequired, staff, h.Feedback.Approve)
	feedback.POST("/:id/reject", authRequired, staff, h.Feedback.Reject)
	feedback.PUT("/:id/roadmap", authRequired, staff, h.Feedback.UpdateRoadmap)
	feedback.DELETE("/:id", authRequired, staff, h.Feedback.Delete)

	recycle := api.Group("/recycle-bin", authRequired, staff)
	recycle.GET("", h.RecycleBin.List)
	recycle.POST("/:id/restore", h.RecycleBin.Restore)
	recycle.POST("/:id/review", admin, h.RecycleBin.Review)
	recycle.DELETE("/:id", h.RecycleBin.Purge)

	queue := api.Group("/deletion-queue", authRequired, staff)
	queue.GET("", h.DeletionQueue.List)
	queue.POST("/sweep", admin, h.DeletionQueue.Sweep)

	configuration := api.Group("/configuration")
	configuration.PUT("/recovery-pin", authRequired, admin, h.Configuration.SetRecoveryPin)
	configuration.POST("/recovery-pin/verify", h.Configuration.VerifyRecoveryPin)
	configuration.PUT("/items/:id", authRequired, admin, h.Configuration.Update)
	configuration.DELETE("/items/:id", authRequired, admin, h.Configuration.Delete)
	configuration.GET("/:kind", h.Configuration.List)
	configuration.POST("/:kind", authRequired, admin, h.Configuration.Create)

	api.GET("/audit-logs", authRequired, admin, h.Audit.List)
	api.POST("/batch", authRequired, staff, h.Batch.Execute)
}
