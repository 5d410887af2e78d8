package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type announcementRepository interface {
	Create(ctx context.Context, a *models.Announcement) error
	FindInClass(ctx context.Context, classID, id string) (*models.Announcement, error)
	ListByClass(ctx context.Context, classID string, includeDrafts bool) ([]models.Announcement, error)
	Update(ctx context.Context, a *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo        announcementRepository
	classes     classDirectory
	users       userLookup
	attachments attachmentLister
	comments    commentLister
	notifier    Notifier
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, classes classDirectory, users userLookup, attachments attachmentLister, comments commentLister, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:        repo,
		classes:     classes,
		users:       users,
		attachments: attachments,
		comments:    comments,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateDraft opens an empty draft announcement.
func (s *AnnouncementService) CreateDraft(ctx context.Context, member *models.Membership) (*models.Announcement, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot create announcements")
	}
	a := &models.Announcement{ClassID: member.ClassID, Creator: member.UserID, Draft: true}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	return a, nil
}

// Update fills in and publishes an announcement. Students are emailed on first publication.
func (s *AnnouncementService) Update(ctx context.Context, member *models.Membership, id string, req dto.UpdateAnnouncementRequest) (*models.Announcement, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot edit announcements")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	a, err := s.find(ctx, member.ClassID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Body != nil {
		a.Body = req.Body
	}
	if a.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "announcement_name is required to publish")
	}

	firstPublish := a.Draft
	a.Draft = false
	if firstPublish {
		posted := s.now().UTC()
		a.PostedDate = &posted
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}

	if firstPublish {
		emails, err := s.classes.ListMemberEmails(ctx, a.ClassID, models.RoleStudent)
		if err != nil {
			s.logger.Warn("failed to list student emails", zap.String("class_id", a.ClassID), zap.Error(err))
			return a, nil
		}
		name := "your teacher"
		if author, err := s.users.FindByID(ctx, a.Creator); err == nil {
			name = author.FullName
		}
		queueNotification(ctx, s.notifier, s.logger, announcementNotification(emails, name, a))
	}
	return a, nil
}

// List returns the class announcements. Students never see drafts.
func (s *AnnouncementService) List(ctx context.Context, member *models.Membership) ([]models.Announcement, error) {
	list, err := s.repo.ListByClass(ctx, member.ClassID, member.Role.IsStaff())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return list, nil
}

// Get returns an announcement with its attachments and comments.
func (s *AnnouncementService) Get(ctx context.Context, member *models.Membership, id string) (*dto.AnnouncementView, error) {
	a, err := s.find(ctx, member.ClassID, id)
	if err != nil {
		return nil, err
	}
	if a.Draft && !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	view := &dto.AnnouncementView{Announcement: *a}
	if view.Attachments, err = s.attachments.ListByAnnouncement(ctx, a.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	if view.Comments, err = s.comments.ListByAnnouncement(ctx, a.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
	}
	return view, nil
}

// Delete removes an announcement. Only its creator or an admin may.
func (s *AnnouncementService) Delete(ctx context.Context, member *models.Membership, id string) error {
	a, err := s.find(ctx, member.ClassID, id)
	if err != nil {
		return err
	}
	if a.Creator != member.UserID && member.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator can delete this announcement")
	}
	if err := s.repo.Delete(ctx, a.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) find(ctx context.Context, classID, id string) (*models.Announcement, error) {
	a, err := s.repo.FindInClass(ctx, classID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}
	return a, nil
}
