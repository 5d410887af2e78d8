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

type assignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment) error
	FindInClass(ctx context.Context, classID, id string) (*models.Assignment, error)
	ListByClass(ctx context.Context, classID string, includeDrafts bool) ([]models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type classDirectory interface {
	ListMemberIDs(ctx context.Context, classID string, role models.UserRole) ([]string, error)
	ListMemberEmails(ctx context.Context, classID string, role models.UserRole) ([]string, error)
	TopicExists(ctx context.Context, classID, topicID string) (bool, error)
}

type assignmentSubmissions interface {
	CreateForStudents(ctx context.Context, a *models.Assignment, studentIDs []string) (int64, error)
	RecomputeOnTime(ctx context.Context, a *models.Assignment) (int64, error)
	ForUser(ctx context.Context, assignmentID, userID string) (*models.Submission, error)
	Summaries(ctx context.Context, assignmentID string) ([]dto.SubmissionSummary, error)
}

// AssignmentService handles class work from draft to publication.
type AssignmentService struct {
	repo        assignmentRepository
	classes     classDirectory
	users       userLookup
	submissions assignmentSubmissions
	attachments attachmentLister
	comments    commentLister
	notifier    Notifier
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// AssignmentServiceParams groups the collaborators of AssignmentService.
type AssignmentServiceParams struct {
	Repo        assignmentRepository
	Classes     classDirectory
	Users       userLookup
	Submissions assignmentSubmissions
	Attachments attachmentLister
	Comments    commentLister
	Notifier    Notifier
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(p AssignmentServiceParams) *AssignmentService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:        p.Repo,
		classes:     p.Classes,
		users:       p.Users,
		submissions: p.Submissions,
		attachments: p.Attachments,
		comments:    p.Comments,
		notifier:    p.Notifier,
		validator:   p.Validator,
		logger:      p.Logger,
		now:         time.Now,
	}
}

// CreateDraft opens an empty draft owned by the caller.
func (s *AssignmentService) CreateDraft(ctx context.Context, member *models.Membership) (*models.Assignment, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot create assignments")
	}
	a := &models.Assignment{
		ClassID:    member.ClassID,
		Creator:    member.UserID,
		TotalMarks: models.DefaultTotalMarks,
		Draft:      true,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return a, nil
}

// Update fills in the assignment and publishes it. Every update opens the
// submissions still missing for students of the class; students are emailed on
// the first publication or when submissions had to be opened.
func (s *AssignmentService) Update(ctx context.Context, member *models.Membership, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot edit assignments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	a, err := s.find(ctx, member.ClassID, id)
	if err != nil {
		return nil, err
	}

	if req.TopicID != nil && *req.TopicID != "" {
		ok, err := s.classes.TopicExists(ctx, member.ClassID, *req.TopicID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check topic")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "topic does not belong to this class")
		}
	}
	applyAssignmentUpdate(a, req)
	if a.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment_name is required to publish")
	}

	firstPublish := a.Draft
	a.Draft = false
	if firstPublish {
		posted := s.now().UTC()
		a.PostedDate = &posted
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}

	created, err := s.openSubmissions(ctx, a)
	if err != nil {
		return nil, err
	}
	if !firstPublish {
		if _, err := s.submissions.RecomputeOnTime(ctx, a); err != nil {
			return nil, err
		}
	}
	if firstPublish || created > 0 {
		s.notifyStudents(ctx, a)
	}
	return a, nil
}

func applyAssignmentUpdate(a *models.Assignment, req dto.UpdateAssignmentRequest) {
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.TopicID != nil {
		if *req.TopicID == "" {
			a.TopicID = nil
		} else {
			a.TopicID = req.TopicID
		}
	}
	if req.DueDate != nil {
		a.DueDate = req.DueDate
	}
	if req.DueTime != nil {
		a.DueTime = req.DueTime
	}
	if req.Instructions != nil {
		a.Instructions = req.Instructions
	}
	if req.TotalMarks != nil {
		a.TotalMarks = *req.TotalMarks
	}
}

// openSubmissions opens a submission for every student of the class that has
// none yet. Existing submissions are left alone, so a failed fan-out is
// completed by the next update.
func (s *AssignmentService) openSubmissions(ctx context.Context, a *models.Assignment) (int64, error) {
	studentIDs, err := s.classes.ListMemberIDs(ctx, a.ClassID, models.RoleStudent)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if len(studentIDs) == 0 {
		return 0, nil
	}
	created, err := s.submissions.CreateForStudents(ctx, a, studentIDs)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.logger.Info("submissions opened", zap.String("assignment_id", a.ID), zap.String("class_id", a.ClassID), zap.Int64("submissions", created))
	}
	return created, nil
}

func (s *AssignmentService) notifyStudents(ctx context.Context, a *models.Assignment) {
	emails, err := s.classes.ListMemberEmails(ctx, a.ClassID, models.RoleStudent)
	if err != nil {
		s.logger.Warn("failed to list student emails", zap.String("class_id", a.ClassID), zap.Error(err))
		return
	}
	queueNotification(ctx, s.notifier, s.logger, assignmentNotification(emails, s.authorName(ctx, a.Creator), a))
}

func (s *AssignmentService) authorName(ctx context.Context, userID string) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Debug("author lookup failed", zap.String("user_id", userID), zap.Error(err))
		return "your teacher"
	}
	return user.FullName
}

// List returns the class assignments. Students never see drafts.
func (s *AssignmentService) List(ctx context.Context, member *models.Membership) ([]models.Assignment, error) {
	list, err := s.repo.ListByClass(ctx, member.ClassID, member.Role.IsStaff())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return list, nil
}

// StudentView returns the assignment with the caller's own submission.
func (s *AssignmentService) StudentView(ctx context.Context, member *models.Membership, id string) (*dto.AssignmentStudentView, error) {
	a, err := s.visible(ctx, member, id)
	if err != nil {
		return nil, err
	}
	view := &dto.AssignmentStudentView{Assignment: *a}
	if view.Attachments, err = s.attachments.ListByAssignment(ctx, a.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	if view.Comments, err = s.comments.ListByAssignment(ctx, a.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
	}

	if view.Submission, err = s.submissions.ForUser(ctx, a.ID, member.UserID); err != nil {
		return nil, err
	}
	if view.Submission != nil {
		if view.SubmissionAttachments, err = s.attachments.ListBySubmission(ctx, view.Submission.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
		}
		if view.PrivateComments, err = s.comments.ListPrivate(ctx, view.Submission.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
		}
	}
	return view, nil
}

// TeacherView refreshes on-time flags and lists every submission of the assignment.
func (s *AssignmentService) TeacherView(ctx context.Context, member *models.Membership, id string) (*dto.AssignmentTeacherView, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot view all submissions")
	}
	a, err := s.find(ctx, member.ClassID, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.submissions.RecomputeOnTime(ctx, a); err != nil {
		return nil, err
	}

	view := &dto.AssignmentTeacherView{Assignment: *a}
	if view.Submissions, err = s.submissions.Summaries(ctx, a.ID); err != nil {
		return nil, err
	}
	if view.Attachments, err = s.attachments.ListByAssignment(ctx, a.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	if view.Comments, err = s.comments.ListByAssignment(ctx, a.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
	}
	return view, nil
}

// Delete removes the assignment with its submissions, marks and attachments.
// Only its creator or an admin may delete it.
func (s *AssignmentService) Delete(ctx context.Context, member *models.Membership, id string) error {
	if !member.Role.IsStaff() {
		return appErrors.Clone(appErrors.ErrForbidden, "students cannot delete assignments")
	}
	a, err := s.find(ctx, member.ClassID, id)
	if err != nil {
		return err
	}
	if a.Creator != member.UserID && member.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator can delete this assignment")
	}
	if err := s.repo.Delete(ctx, a.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	s.logger.Info("assignment deleted", zap.String("assignment_id", a.ID), zap.String("user_id", member.UserID))
	return nil
}

// Get returns an assignment visible to the member.
func (s *AssignmentService) Get(ctx context.Context, member *models.Membership, id string) (*models.Assignment, error) {
	return s.visible(ctx, member, id)
}

func (s *AssignmentService) visible(ctx context.Context, member *models.Membership, id string) (*models.Assignment, error) {
	a, err := s.find(ctx, member.ClassID, id)
	if err != nil {
		return nil, err
	}
	if a.Draft && !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return a, nil
}

func (s *AssignmentService) find(ctx context.Context, classID, id string) (*models.Assignment, error) {
	a, err := s.repo.FindInClass(ctx, classID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return a, nil
}
