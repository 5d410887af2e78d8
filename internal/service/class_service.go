package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

const (
	classCodeLength   = 10
	classCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	classCodeAttempts = 5
)

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ListForUser(ctx context.Context, userID string) ([]models.Classroom, error)
	Create(ctx context.Context, class *models.Classroom) error
	CreateWithOwner(ctx context.Context, class *models.Classroom, owner *models.Membership) error
	Update(ctx context.Context, class *models.Classroom) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, m *models.Membership) error
	RemoveMember(ctx context.Context, classID, userID string) error
	ListMembers(ctx context.Context, classID string) ([]models.Member, error)
	CreateTopic(ctx context.Context, topic *models.Topic) error
	ListTopics(ctx context.Context, classID string) ([]models.Topic, error)
}

type classAssignmentLister interface {
	ListByClass(ctx context.Context, classID string, includeDrafts bool) ([]models.Assignment, error)
}

type submissionSeeder interface {
	CreateForStudent(ctx context.Context, assignments []models.Assignment, studentID string) (int64, error)
}

// ClassService manages classrooms, their members and topics.
type ClassService struct {
	repo        classRepository
	assignments classAssignmentLister
	submissions submissionSeeder
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	newCode     func() (string, error)
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, assignments classAssignmentLister, submissions submissionSeeder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:        repo,
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		newCode:     generateClassCode,
	}
}

// generateClassCode draws a random alphanumeric join code.
func generateClassCode() (string, error) {
	max := big.NewInt(int64(len(classCodeAlphabet)))
	code := make([]byte, classCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = classCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// Create opens a classroom. Teachers become its first member; admins create
// it without joining.
func (s *ClassService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateClassRequest) (*models.Classroom, error) {
	if !claims.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot create classes")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class := &models.Classroom{
		Name:        req.Name,
		Creator:     claims.UserID,
		Description: req.Description,
		Image:       req.Image,
		Section:     req.Section,
	}
	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate class code")
		}
		class.ID = code

		if claims.Role == models.RoleTeacher {
			err = s.repo.CreateWithOwner(ctx, class, &models.Membership{UserID: claims.UserID, Role: models.RoleTeacher})
		} else {
			err = s.repo.Create(ctx, class)
		}
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) && attempt < classCodeAttempts {
			s.logger.Debug("class code collision, retrying", zap.Int("attempt", attempt))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("creator", class.Creator))
	return class, nil
}

// Get returns the classroom of the membership with the caller's role and the class topics.
func (s *ClassService) Get(ctx context.Context, member *models.Membership) (*dto.ClassroomView, error) {
	class, err := s.find(ctx, member.ClassID)
	if err != nil {
		return nil, err
	}
	topics, err := s.repo.ListTopics(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list topics")
	}
	return &dto.ClassroomView{Classroom: *class, Role: member.Role, Topics: topics}, nil
}

// ListForUser returns the classrooms userID belongs to.
func (s *ClassService) ListForUser(ctx context.Context, userID string) ([]models.Classroom, error) {
	classes, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Update changes the classroom details. Only staff members may edit.
func (s *ClassService) Update(ctx context.Context, member *models.Membership, req dto.UpdateClassRequest) (*models.Classroom, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot edit classes")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.find(ctx, member.ClassID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Description != nil {
		class.Description = req.Description
	}
	if req.Image != nil {
		class.Image = req.Image
	}
	if req.Section != nil {
		class.Section = req.Section
	}
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a classroom. Only its creator or an admin may do so.
func (s *ClassService) Delete(ctx context.Context, claims *models.JWTClaims, classID string) error {
	class, err := s.find(ctx, classID)
	if err != nil {
		return err
	}
	if class.Creator != claims.UserID && claims.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator can delete this class")
	}
	if err := s.repo.Delete(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.cache.ForgetMemberships(ctx, classID)
	s.logger.Info("class deleted", zap.String("class_id", classID), zap.String("user_id", claims.UserID))
	return nil
}

// Join adds the caller to a classroom with their global role. Students get a
// submission for every published assignment of the class. A student who is
// already a member still has missing submissions opened before the conflict is
// reported, which completes a join whose seeding failed.
func (s *ClassService) Join(ctx context.Context, claims *models.JWTClaims, classID string) (*models.Membership, error) {
	if _, err := s.find(ctx, classID); err != nil {
		return nil, err
	}
	member := &models.Membership{UserID: claims.UserID, ClassID: classID, Role: claims.Role}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if err := s.seedSubmissions(ctx, member); err != nil {
				return nil, err
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "already a member of this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join class")
	}
	s.cache.ForgetMemberships(ctx, classID)

	if err := s.seedSubmissions(ctx, member); err != nil {
		return nil, err
	}
	s.logger.Info("class joined", zap.String("class_id", classID), zap.String("user_id", claims.UserID), zap.String("role", string(member.Role)))
	return member, nil
}

func (s *ClassService) seedSubmissions(ctx context.Context, member *models.Membership) error {
	if member.Role != models.RoleStudent {
		return nil
	}
	published, err := s.assignments.ListByClass(ctx, member.ClassID, false)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if len(published) == 0 {
		return nil
	}
	_, err = s.submissions.CreateForStudent(ctx, published, member.UserID)
	return err
}

// Leave removes the caller's membership.
func (s *ClassService) Leave(ctx context.Context, member *models.Membership) error {
	if err := s.repo.RemoveMember(ctx, member.ClassID, member.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "membership not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave class")
	}
	s.cache.ForgetMemberships(ctx, member.ClassID)
	return nil
}

// Members lists the people in a classroom.
func (s *ClassService) Members(ctx context.Context, classID string) ([]models.Member, error) {
	members, err := s.repo.ListMembers(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

// CreateTopic adds a topic. Only staff members may.
func (s *ClassService) CreateTopic(ctx context.Context, member *models.Membership, req dto.CreateTopicRequest) (*models.Topic, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot create topics")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid topic payload")
	}
	topic := &models.Topic{Name: req.Name, ClassID: member.ClassID}
	if err := s.repo.CreateTopic(ctx, topic); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create topic")
	}
	return topic, nil
}

// Topics lists the topics of a classroom.
func (s *ClassService) Topics(ctx context.Context, classID string) ([]models.Topic, error) {
	topics, err := s.repo.ListTopics(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list topics")
	}
	return topics, nil
}

func (s *ClassService) find(ctx context.Context, id string) (*models.Classroom, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}
