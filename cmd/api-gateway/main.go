package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/handler"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/cache"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/database"
	"github.com/noah-isme/classroom-api/pkg/jobs"
	"github.com/noah-isme/classroom-api/pkg/linkpreview"
	"github.com/noah-isme/classroom-api/pkg/logger"
	"github.com/noah-isme/classroom-api/pkg/mail"
	"github.com/noah-isme/classroom-api/pkg/storage"
	"github.com/noah-isme/classroom-api/pkg/validator"
)

// @title Classroom API
// @version 1.0.0
// @description Classes, assignments, submissions and grading for teachers and students.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Setup()
	validate := validator.New()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, membership cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.MembershipTTL, logr, cfg.Cache.Enabled)

	var sender mail.Sender
	switch cfg.Mail.Provider {
	case config.MailProviderSendGrid:
		sender = mail.NewSendGridSender(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	default:
		sender = mail.NewConsoleSender(logr)
	}
	notifications := service.NewNotificationService(sender, metricsSvc, logr)
	mailQueue := jobs.NewQueue("mail", notifications.Handle, jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		BufferSize: cfg.Mail.BufferSize,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
		OnFailure:  notifications.OnFailure,
	})
	notifications.Attach(mailQueue)
	mailQueue.Start(ctx)
	defer mailQueue.Stop()

	store, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	var links *linkpreview.Fetcher
	if cfg.LinkPreview.Enabled {
		links = linkpreview.NewFetcher(cfg.LinkPreview.Timeout, cfg.LinkPreview.MaxBodyBytes)
	}

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	authSvc := service.NewAuthService(userRepo, classRepo, cacheSvc, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	var linkFetcher interface {
		Fetch(ctx context.Context, raw string) (*linkpreview.Preview, error)
	}
	if links != nil {
		linkFetcher = links
	}
	attachmentSvc := service.NewAttachmentService(attachmentRepo, service.AttachmentTargets{
		Assignments:   assignmentRepo,
		Announcements: announcementRepo,
		Submissions:   submissionRepo,
	}, store, signer, linkFetcher, logr, service.AttachmentServiceConfig{
		MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
		APIPrefix:    cfg.APIPrefix,
	})
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, userRepo, attachmentSvc, commentRepo, metricsSvc, logr)
	classSvc := service.NewClassService(classRepo, assignmentRepo, submissionSvc, cacheSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(service.AssignmentServiceParams{
		Repo:        assignmentRepo,
		Classes:     classRepo,
		Users:       userRepo,
		Submissions: submissionSvc,
		Attachments: attachmentSvc,
		Comments:    commentRepo,
		Notifier:    notifications,
		Validator:   validate,
		Logger:      logr,
	})
	announcementSvc := service.NewAnnouncementService(announcementRepo, classRepo, userRepo, attachmentSvc, commentRepo, notifications, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, assignmentRepo, announcementRepo, submissionRepo, validate, logr)
	exportSvc := service.NewExportService(assignmentRepo, submissionSvc, logr)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	router := newRouter(cfg, logr, routeDeps{
		auth:          authSvc,
		metrics:       metricsSvc,
		authHandler:   handler.NewAuthHandler(authSvc),
		users:         handler.NewUserHandler(userSvc),
		classes:       handler.NewClassHandler(classSvc),
		assignments:   handler.NewAssignmentHandler(assignmentSvc, exportSvc),
		submissions:   handler.NewSubmissionHandler(submissionSvc),
		announcements: handler.NewAnnouncementHandler(announcementSvc),
		comments:      handler.NewCommentHandler(commentSvc),
		attachments:   handler.NewAttachmentHandler(attachmentSvc),
		ops:           handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
