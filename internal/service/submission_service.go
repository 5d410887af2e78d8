package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/lifecycle"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type submissionRepository interface {
	Create(ctx context.Context, s *models.Submission) error
	CreateMany(ctx context.Context, subs []models.Submission) (int64, error)
	FindInClass(ctx context.Context, classID, id string) (*models.Submission, error)
	FindByAssignmentAndUser(ctx context.Context, assignmentID, userID string) (*models.Submission, error)
	ListSummaries(ctx context.Context, assignmentID string) ([]dto.SubmissionSummary, error)
	MarkSubmitted(ctx context.Context, id string, date models.Date, clock models.ClockTime, onTime *bool) (bool, error)
	MarkUnsubmitted(ctx context.Context, id string, onTime *bool) (bool, error)
	SweepOnTime(ctx context.Context, assignmentID string, onTime *bool) (int64, error)
	GradeOnce(ctx context.Context, mark *models.Mark) (bool, error)
	UpsertGrade(ctx context.Context, mark *models.Mark) error
	FindMark(ctx context.Context, submissionID string) (*models.Mark, error)
}

type assignmentLookup interface {
	FindInClass(ctx context.Context, classID, id string) (*models.Assignment, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type attachmentLister interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]dto.AttachmentDetail, error)
	ListByAnnouncement(ctx context.Context, announcementID string) ([]dto.AttachmentDetail, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]dto.AttachmentDetail, error)
}

type commentLister interface {
	ListByAssignment(ctx context.Context, assignmentID string) ([]dto.CommentView, error)
	ListByAnnouncement(ctx context.Context, announcementID string) ([]dto.CommentView, error)
	ListPrivate(ctx context.Context, submissionID string) ([]dto.PrivateCommentView, error)
}

// SubmissionService owns the submission lifecycle. Every on_time value it
// writes comes from lifecycle.OnTimeFor.
type SubmissionService struct {
	repo        submissionRepository
	assignments assignmentLookup
	users       userLookup
	attachments attachmentLister
	comments    commentLister
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the service.
func NewSubmissionService(repo submissionRepository, assignments assignmentLookup, users userLookup, attachments attachmentLister, comments commentLister, metrics *MetricsService, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		users:       users,
		attachments: attachments,
		comments:    comments,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *SubmissionService) seed(a *models.Assignment, userID string, now time.Time) models.Submission {
	return models.Submission{
		AssignmentID: a.ID,
		UserID:       userID,
		OnTime:       lifecycle.OnTimeFor(a, now),
		Submitted:    false,
	}
}

// Create opens the submission of userID for assignment a. A second call for
// the same pair is a CONFLICT.
func (s *SubmissionService) Create(ctx context.Context, a *models.Assignment, userID string) (*models.Submission, error) {
	sub := s.seed(a, userID, s.now())
	if err := s.repo.Create(ctx, &sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	s.metrics.RecordTransition(TransitionCreate, 1)
	return &sub, nil
}

// CreateForStudents opens submissions of a for every listed student, skipping existing pairs.
func (s *SubmissionService) CreateForStudents(ctx context.Context, a *models.Assignment, studentIDs []string) (int64, error) {
	now := s.now()
	subs := make([]models.Submission, 0, len(studentIDs))
	for _, id := range studentIDs {
		subs = append(subs, s.seed(a, id, now))
	}
	return s.createMany(ctx, subs)
}

// CreateForStudent opens submissions of a newly joined student for every listed assignment.
func (s *SubmissionService) CreateForStudent(ctx context.Context, assignments []models.Assignment, studentID string) (int64, error) {
	now := s.now()
	subs := make([]models.Submission, 0, len(assignments))
	for i := range assignments {
		subs = append(subs, s.seed(&assignments[i], studentID, now))
	}
	return s.createMany(ctx, subs)
}

func (s *SubmissionService) createMany(ctx context.Context, subs []models.Submission) (int64, error) {
	inserted, err := s.repo.CreateMany(ctx, subs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submissions")
	}
	s.metrics.RecordTransition(TransitionCreate, int(inserted))
	return inserted, nil
}

// Submit flips the caller's own submission to submitted and stamps it with now.
func (s *SubmissionService) Submit(ctx context.Context, member *models.Membership, submissionID string) (*models.Submission, error) {
	sub, a, err := s.ownedSubmission(ctx, member, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Submitted {
		return nil, appErrors.Clone(appErrors.ErrAlreadySubmitted, "submission already submitted")
	}

	now := s.now()
	date, clock := models.NewDate(now), models.NewClockTime(now)
	onTime := lifecycle.OnTimeFor(a, now)
	ok, err := s.repo.MarkSubmitted(ctx, sub.ID, date, clock, onTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrAlreadySubmitted, "submission already submitted")
	}

	sub.Submitted = true
	sub.SubmittedDate = &date
	sub.SubmittedTime = &clock
	sub.OnTime = onTime
	s.metrics.RecordTransition(TransitionSubmit, 1)
	return sub, nil
}

// Unsubmit flips the caller's own submission back to unsubmitted and recomputes on_time against now.
func (s *SubmissionService) Unsubmit(ctx context.Context, member *models.Membership, submissionID string) (*models.Submission, error) {
	sub, a, err := s.ownedSubmission(ctx, member, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.Submitted {
		return nil, appErrors.Clone(appErrors.ErrNotSubmitted, "submission is not submitted")
	}

	onTime := lifecycle.OnTimeFor(a, s.now())
	ok, err := s.repo.MarkUnsubmitted(ctx, sub.ID, onTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unsubmit")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotSubmitted, "submission is not submitted")
	}

	sub.Submitted = false
	sub.OnTime = onTime
	s.metrics.RecordTransition(TransitionUnsubmit, 1)
	return sub, nil
}

func (s *SubmissionService) ownedSubmission(ctx context.Context, member *models.Membership, submissionID string) (*models.Submission, *models.Assignment, error) {
	sub, err := s.find(ctx, member.ClassID, submissionID)
	if err != nil {
		return nil, nil, err
	}
	if sub.UserID != member.UserID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another user")
	}
	a, err := s.assignment(ctx, member.ClassID, sub.AssignmentID)
	if err != nil {
		return nil, nil, err
	}
	return sub, a, nil
}

// RecomputeOnTime refreshes on_time for every unsubmitted submission of a.
func (s *SubmissionService) RecomputeOnTime(ctx context.Context, a *models.Assignment) (int64, error) {
	n, err := s.repo.SweepOnTime(ctx, a.ID, lifecycle.OnTimeFor(a, s.now()))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute on-time flags")
	}
	s.metrics.RecordTransition(TransitionSweep, int(n))
	return n, nil
}

// Grade records the first mark of a submission. The student id is taken from the submission.
func (s *SubmissionService) Grade(ctx context.Context, member *models.Membership, submissionID string, value int) (*models.Mark, error) {
	sub, a, err := s.gradable(ctx, member, submissionID, value)
	if err != nil {
		return nil, err
	}
	if sub.Graded() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyGraded, "submission already graded")
	}

	mark := &models.Mark{SubmissionID: sub.ID, MarkerID: member.UserID, StudentID: sub.UserID, Value: value}
	ok, err := s.repo.GradeOnce(ctx, mark)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrAlreadyGraded, "submission already graded")
	}
	s.metrics.RecordTransition(TransitionGrade, 1)
	s.logger.Info("submission graded", zap.String("submission_id", sub.ID), zap.String("assignment_id", a.ID), zap.String("marker_id", member.UserID))
	return mark, nil
}

// UpdateGrade overwrites the mark of a submission whether or not one exists.
func (s *SubmissionService) UpdateGrade(ctx context.Context, member *models.Membership, submissionID string, value int) (*models.Mark, error) {
	sub, _, err := s.gradable(ctx, member, submissionID, value)
	if err != nil {
		return nil, err
	}
	mark := &models.Mark{SubmissionID: sub.ID, MarkerID: member.UserID, StudentID: sub.UserID, Value: value}
	if err := s.repo.UpsertGrade(ctx, mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	s.metrics.RecordTransition(TransitionRegrade, 1)
	return mark, nil
}

func (s *SubmissionService) gradable(ctx context.Context, member *models.Membership, submissionID string, value int) (*models.Submission, *models.Assignment, error) {
	if !member.Role.IsStaff() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot grade")
	}
	sub, err := s.find(ctx, member.ClassID, submissionID)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.assignment(ctx, member.ClassID, sub.AssignmentID)
	if err != nil {
		return nil, nil, err
	}
	if value < 0 || value > a.TotalMarks {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "marks must be between 0 and the assignment's total marks")
	}
	return sub, a, nil
}

// Get returns a submission with its attachments, private comments and mark.
// Students may only read their own.
func (s *SubmissionService) Get(ctx context.Context, member *models.Membership, submissionID string) (*dto.SubmissionDetail, error) {
	sub, err := s.find(ctx, member.ClassID, submissionID)
	if err != nil {
		return nil, err
	}
	if !member.Role.IsStaff() && sub.UserID != member.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another user")
	}

	student, err := s.users.FindByID(ctx, sub.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	detail := &dto.SubmissionDetail{Submission: *sub, Student: student.Info()}

	if sub.Graded() {
		mark, err := s.repo.FindMark(ctx, sub.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mark")
		}
		detail.Mark = mark
	}
	if detail.Attachments, err = s.attachments.ListBySubmission(ctx, sub.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	if detail.PrivateComments, err = s.comments.ListPrivate(ctx, sub.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comments")
	}
	return detail, nil
}

// ForUser returns the user's own submission of an assignment, or nil when none exists.
func (s *SubmissionService) ForUser(ctx context.Context, assignmentID, userID string) (*models.Submission, error) {
	sub, err := s.repo.FindByAssignmentAndUser(ctx, assignmentID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return sub, nil
}

// Summaries lists the submissions of an assignment for class staff.
func (s *SubmissionService) Summaries(ctx context.Context, assignmentID string) ([]dto.SubmissionSummary, error) {
	list, err := s.repo.ListSummaries(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return list, nil
}

func (s *SubmissionService) find(ctx context.Context, classID, id string) (*models.Submission, error) {
	sub, err := s.repo.FindInClass(ctx, classID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return sub, nil
}

func (s *SubmissionService) assignment(ctx context.Context, classID, id string) (*models.Assignment, error) {
	a, err := s.assignments.FindInClass(ctx, classID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return a, nil
}
