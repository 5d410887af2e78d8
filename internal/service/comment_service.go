package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type commentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	CreatePrivate(ctx context.Context, c *models.PrivateComment) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]dto.CommentView, error)
	ListByAnnouncement(ctx context.Context, announcementID string) ([]dto.CommentView, error)
	ListPrivate(ctx context.Context, submissionID string) ([]dto.PrivateCommentView, error)
	FindAuthor(ctx context.Context, id string, private bool) (string, error)
	Delete(ctx context.Context, id string, private bool) error
}

type announcementLookup interface {
	FindInClass(ctx context.Context, classID, id string) (*models.Announcement, error)
}

type submissionLookup interface {
	FindInClass(ctx context.Context, classID, id string) (*models.Submission, error)
}

// CommentService posts and removes public and private comments.
type CommentService struct {
	repo          commentRepository
	assignments   assignmentLookup
	announcements announcementLookup
	submissions   submissionLookup
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(repo commentRepository, assignments assignmentLookup, announcements announcementLookup, submissions submissionLookup, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		repo:          repo,
		assignments:   assignments,
		announcements: announcements,
		submissions:   submissions,
		validator:     validate,
		logger:        logger,
	}
}

// CommentOnAssignment posts a public comment on a published assignment.
func (s *CommentService) CommentOnAssignment(ctx context.Context, member *models.Membership, assignmentID string, req dto.CreateCommentRequest) (*models.Comment, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	a, err := s.assignments.FindInClass(ctx, member.ClassID, assignmentID)
	if err != nil {
		return nil, notFoundOr(err, "assignment not found", "failed to load assignment")
	}
	if a.Draft && !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	c := &models.Comment{UserID: member.UserID, AssignmentID: &a.ID, Body: req.Body}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return c, nil
}

// CommentOnAnnouncement posts a public comment on a published announcement.
func (s *CommentService) CommentOnAnnouncement(ctx context.Context, member *models.Membership, announcementID string, req dto.CreateCommentRequest) (*models.Comment, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	a, err := s.announcements.FindInClass(ctx, member.ClassID, announcementID)
	if err != nil {
		return nil, notFoundOr(err, "announcement not found", "failed to load announcement")
	}
	if a.Draft && !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	c := &models.Comment{UserID: member.UserID, AnnouncementID: &a.ID, Body: req.Body}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return c, nil
}

// CommentPrivately posts a private comment on a submission. Only the
// submission owner and class staff take part in the thread.
func (s *CommentService) CommentPrivately(ctx context.Context, member *models.Membership, submissionID string, req dto.CreateCommentRequest) (*models.PrivateComment, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	sub, err := s.privateThread(ctx, member, submissionID)
	if err != nil {
		return nil, err
	}
	c := &models.PrivateComment{UserID: member.UserID, SubmissionID: sub.ID, Body: req.Body}
	if err := s.repo.CreatePrivate(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return c, nil
}

// PrivateComments lists the private thread of a submission.
func (s *CommentService) PrivateComments(ctx context.Context, member *models.Membership, submissionID string) ([]dto.PrivateCommentView, error) {
	sub, err := s.privateThread(ctx, member, submissionID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListPrivate(ctx, sub.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return list, nil
}

// Delete removes a comment. Only its author may.
func (s *CommentService) Delete(ctx context.Context, member *models.Membership, id string, private bool) error {
	author, err := s.repo.FindAuthor(ctx, id, private)
	if err != nil {
		return notFoundOr(err, "comment not found", "failed to load comment")
	}
	if author != member.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can delete this comment")
	}
	if err := s.repo.Delete(ctx, id, private); err != nil {
		return notFoundOr(err, "comment not found", "failed to delete comment")
	}
	return nil
}

func (s *CommentService) privateThread(ctx context.Context, member *models.Membership, submissionID string) (*models.Submission, error) {
	sub, err := s.submissions.FindInClass(ctx, member.ClassID, submissionID)
	if err != nil {
		return nil, notFoundOr(err, "submission not found", "failed to load submission")
	}
	if sub.UserID != member.UserID && !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "private comments are limited to the submission owner and class staff")
	}
	return sub, nil
}

func (s *CommentService) validate(req dto.CreateCommentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	return nil
}

// notFoundOr maps sql.ErrNoRows to NOT_FOUND and anything else to an internal error.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
