package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classroom-api/api/swagger"
	"github.com/noah-isme/classroom-api/internal/handler"
	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth    *service.AuthService
	metrics *service.MetricsService

	authHandler   *handler.AuthHandler
	users         *handler.UserHandler
	classes       *handler.ClassHandler
	assignments   *handler.AssignmentHandler
	submissions   *handler.SubmissionHandler
	announcements *handler.AnnouncementHandler
	comments      *handler.CommentHandler
	attachments   *handler.AttachmentHandler
	ops           *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))

	r.GET("/health", d.ops.Health)
	r.GET("/ready", d.ops.Ready)
	if d.metrics != nil {
		r.GET("/metrics", d.ops.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", d.authHandler.Login)
	api.POST("/users", d.users.Register)
	api.GET("/files/:fileId/download", d.attachments.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(d.auth))
	authed.GET("/users/me", d.authHandler.Me)
	authed.GET("/users/me/profile", d.users.Profile)
	authed.PATCH("/users/me/profile", d.users.UpdateProfile)
	authed.PUT("/auth/password", d.authHandler.ChangePassword)
	authed.POST("/files", d.attachments.Upload)
	authed.DELETE("/files/:fileId", d.attachments.DeleteFile)
	if d.metrics != nil {
		authed.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), d.ops.Summary)
	}

	authed.GET("/classes", d.classes.List)
	authed.POST("/classes", middleware.StoredRole(d.auth), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), middleware.Audit(logr, "class.create"), d.classes.Create)
	authed.POST("/classes/:classId/join", middleware.StoredRole(d.auth), middleware.Audit(logr, "class.join"), d.classes.Join)
	authed.DELETE("/classes/:classId", middleware.Audit(logr, "class.delete"), d.classes.Delete)

	class := authed.Group("/classes/:classId")
	class.Use(middleware.ClassMember(d.auth))
	class.GET("", d.classes.Get)
	class.PATCH("", d.classes.Update)
	class.GET("/members", d.classes.Members)
	class.DELETE("/members/me", middleware.Audit(logr, "class.leave"), d.classes.Leave)
	class.GET("/topics", d.classes.Topics)
	class.POST("/topics", d.classes.CreateTopic)

	class.GET("/assignments", d.assignments.List)
	class.POST("/assignments", d.assignments.CreateDraft)
	class.GET("/assignments/:assignmentId", d.assignments.Get)
	class.PATCH("/assignments/:assignmentId", middleware.Audit(logr, "assignment.update"), d.assignments.Update)
	class.DELETE("/assignments/:assignmentId", middleware.Audit(logr, "assignment.delete"), d.assignments.Delete)
	class.GET("/assignments/:assignmentId/export", d.assignments.Export)
	class.POST("/assignments/:assignmentId/comments", d.comments.OnAssignment)

	class.GET("/submissions/:submissionId", d.submissions.Get)
	class.POST("/submissions/:submissionId/submit", d.submissions.Submit)
	class.POST("/submissions/:submissionId/unsubmit", d.submissions.Unsubmit)
	class.POST("/submissions/:submissionId/mark", middleware.Audit(logr, "submission.grade"), d.submissions.Grade)
	class.PATCH("/submissions/:submissionId/mark", middleware.Audit(logr, "submission.regrade"), d.submissions.UpdateGrade)
	class.GET("/submissions/:submissionId/comments", d.comments.ListPrivate)
	class.POST("/submissions/:submissionId/comments", d.comments.Private)

	class.GET("/announcements", d.announcements.List)
	class.POST("/announcements", d.announcements.CreateDraft)
	class.GET("/announcements/:announcementId", d.announcements.Get)
	class.PATCH("/announcements/:announcementId", d.announcements.Update)
	class.DELETE("/announcements/:announcementId", d.announcements.Delete)
	class.POST("/announcements/:announcementId/comments", d.comments.OnAnnouncement)

	class.DELETE("/comments/:commentId", d.comments.Delete)

	class.POST("/attachments", d.attachments.Attach)
	class.GET("/attachments/:attachmentId", d.attachments.Get)
	class.DELETE("/attachments/:attachmentId", middleware.Audit(logr, "attachment.delete"), d.attachments.Delete)

	return r
}
