package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type mockClassRepo struct {
	classes     map[string]*models.Classroom
	members     []models.Membership
	topics      []models.Topic
	createCalls int
	collisions  int
	deleted     []string
}

func newMockClassRepo() *mockClassRepo {
	return &mockClassRepo{classes: make(map[string]*models.Classroom)}
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if c, ok := m.classes[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ListForUser(ctx context.Context, userID string) ([]models.Classroom, error) {
	var out []models.Classroom
	for _, mem := range m.members {
		if mem.UserID == userID {
			out = append(out, *m.classes[mem.ClassID])
		}
	}
	return out, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Classroom) error {
	m.createCalls++
	if m.collisions > 0 {
		m.collisions--
		return repository.ErrDuplicate
	}
	copied := *class
	m.classes[class.ID] = &copied
	return nil
}

func (m *mockClassRepo) CreateWithOwner(ctx context.Context, class *models.Classroom, owner *models.Membership) error {
	if err := m.Create(ctx, class); err != nil {
		return err
	}
	owner.ClassID = class.ID
	m.members = append(m.members, *owner)
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Classroom) error {
	copied := *class
	m.classes[class.ID] = &copied
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.classes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.classes, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockClassRepo) AddMember(ctx context.Context, mem *models.Membership) error {
	for _, existing := range m.members {
		if existing.UserID == mem.UserID && existing.ClassID == mem.ClassID {
			return repository.ErrDuplicate
		}
	}
	m.members = append(m.members, *mem)
	return nil
}

func (m *mockClassRepo) RemoveMember(ctx context.Context, classID, userID string) error {
	for i, existing := range m.members {
		if existing.UserID == userID && existing.ClassID == classID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockClassRepo) ListMemberships(ctx context.Context, classID string) ([]models.Membership, error) {
	var out []models.Membership
	for _, mem := range m.members {
		if mem.ClassID == classID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockClassRepo) ListMembers(ctx context.Context, classID string) ([]models.Member, error) {
	memberships, _ := m.ListMemberships(ctx, classID)
	out := make([]models.Member, 0, len(memberships))
	for _, mem := range memberships {
		out = append(out, models.Member{Membership: mem})
	}
	return out, nil
}

func (m *mockClassRepo) CreateTopic(ctx context.Context, topic *models.Topic) error {
	topic.ID = "topic-1"
	m.topics = append(m.topics, *topic)
	return nil
}

func (m *mockClassRepo) ListTopics(ctx context.Context, classID string) ([]models.Topic, error) {
	return m.topics, nil
}

type stubClassAssignments struct {
	published []models.Assignment
}

func (s stubClassAssignments) ListByClass(ctx context.Context, classID string, includeDrafts bool) ([]models.Assignment, error) {
	return s.published, nil
}

type recordingSeeder struct {
	calls []string
	count int
}

func (r *recordingSeeder) CreateForStudent(ctx context.Context, assignments []models.Assignment, studentID string) (int64, error) {
	r.calls = append(r.calls, studentID)
	r.count += len(assignments)
	return int64(len(assignments)), nil
}

// failingSeeder fails the next failures calls, then records what it seeds.
type failingSeeder struct {
	failures int
	seeded   int
}

func (f *failingSeeder) CreateForStudent(ctx context.Context, assignments []models.Assignment, studentID string) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("connection reset")
	}
	f.seeded += len(assignments)
	return int64(len(assignments)), nil
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

func TestGenerateClassCode(t *testing.T) {
	code, err := generateClassCode()
	require.NoError(t, err)
	assert.Len(t, code, 10)
	for _, r := range code {
		assert.Contains(t, classCodeAlphabet, string(r))
	}
}

func TestCreateClassTeacherBecomesMember(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, nil, nil, nil)

	class, err := svc.Create(context.Background(), teacherClaims("t1"), dto.CreateClassRequest{Name: "Biology"})
	require.NoError(t, err)
	assert.Len(t, class.ID, 10)
	require.Len(t, repo.members, 1)
	assert.Equal(t, models.RoleTeacher, repo.members[0].Role)
	assert.Equal(t, class.ID, repo.members[0].ClassID)
}

func TestCreateClassAdminHasNoMembership(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}, dto.CreateClassRequest{Name: "Ops"})
	require.NoError(t, err)
	assert.Empty(t, repo.members)
}

func TestCreateClassRules(t *testing.T) {
	repo := newMockClassRepo()
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), studentClaims("s1"), dto.CreateClassRequest{Name: "Nope"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Create(context.Background(), teacherClaims("t1"), dto.CreateClassRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCreateClassRetriesCodeCollision(t *testing.T) {
	repo := newMockClassRepo()
	repo.collisions = 2
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, nil, nil, nil)
	codes := []string{"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc"}
	svc.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	class, err := svc.Create(context.Background(), teacherClaims("t1"), dto.CreateClassRequest{Name: "Physics"})
	require.NoError(t, err)
	assert.Equal(t, "cccccccccc", class.ID)
	assert.Equal(t, 3, repo.createCalls)
}

func TestCreateClassGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newMockClassRepo()
	repo.collisions = classCodeAttempts
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), teacherClaims("t1"), dto.CreateClassRequest{Name: "Physics"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, classCodeAttempts, repo.createCalls)
}

func TestJoinClassSeedsSubmissionsForStudents(t *testing.T) {
	repo := newMockClassRepo()
	repo.classes["c1"] = &models.Classroom{ID: "c1", Name: "Bio", Creator: "t1"}
	seeder := &recordingSeeder{}
	published := []models.Assignment{{ID: "a1", ClassID: "c1"}, {ID: "a2", ClassID: "c1"}}
	svc := NewClassService(repo, stubClassAssignments{published: published}, seeder, nil, nil, nil)

	member, err := svc.Join(context.Background(), studentClaims("s1"), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, member.Role)
	assert.Equal(t, []string{"s1"}, seeder.calls)
	assert.Equal(t, 2, seeder.count)

	_, err = svc.Join(context.Background(), studentClaims("s1"), "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, []string{"s1", "s1"}, seeder.calls)

	_, err = svc.Join(context.Background(), teacherClaims("t2"), "c1")
	require.NoError(t, err)
	assert.Len(t, seeder.calls, 2)

	_, err = svc.Join(context.Background(), studentClaims("s2"), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestRejoinCompletesFailedSeeding(t *testing.T) {
	repo := newMockClassRepo()
	repo.classes["c1"] = &models.Classroom{ID: "c1", Name: "Bio", Creator: "t1"}
	seeder := &failingSeeder{failures: 1}
	published := []models.Assignment{{ID: "a1", ClassID: "c1"}}
	svc := NewClassService(repo, stubClassAssignments{published: published}, seeder, nil, nil, nil)

	_, err := svc.Join(context.Background(), studentClaims("s1"), "c1")
	require.Error(t, err)
	assert.Len(t, repo.members, 1)
	assert.Zero(t, seeder.seeded)

	_, err = svc.Join(context.Background(), studentClaims("s1"), "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 1, seeder.seeded)
	assert.Len(t, repo.members, 1)
}

func TestJoinAndLeaveInvalidateMembershipCache(t *testing.T) {
	repo := newMockClassRepo()
	repo.classes["c1"] = &models.Classroom{ID: "c1", Name: "Bio", Creator: "t1"}
	cache := NewCacheService(newMemoryCacheRepo(), NewMetricsService(), time.Minute, nil, true)
	auth := NewAuthService(&mockAuthRepo{}, repo, cache, nil, nil, AuthConfig{Secret: "test-secret"})
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, cache, nil, nil)

	_, err := auth.AuthorizeForClass(context.Background(), studentClaims("s1"), "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Join(context.Background(), studentClaims("s1"), "c1")
	require.NoError(t, err)

	member, err := auth.AuthorizeForClass(context.Background(), studentClaims("s1"), "c1")
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), member))
	_, err = auth.AuthorizeForClass(context.Background(), studentClaims("s1"), "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestDeleteClassCreatorOrAdmin(t *testing.T) {
	repo := newMockClassRepo()
	repo.classes["c1"] = &models.Classroom{ID: "c1", Creator: "t1"}
	repo.classes["c2"] = &models.Classroom{ID: "c2", Creator: "t1"}
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, nil, nil, nil)

	err := svc.Delete(context.Background(), teacherClaims("t2"), "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.Delete(context.Background(), teacherClaims("t1"), "c1"))
	require.NoError(t, svc.Delete(context.Background(), &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}, "c2"))
	assert.Equal(t, []string{"c1", "c2"}, repo.deleted)

	err = svc.Delete(context.Background(), teacherClaims("t1"), "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateClassAndTopicsRequireStaff(t *testing.T) {
	repo := newMockClassRepo()
	repo.classes["c1"] = &models.Classroom{ID: "c1", Name: "Bio", Creator: "t1"}
	svc := NewClassService(repo, stubClassAssignments{}, &recordingSeeder{}, nil, nil, nil)
	student := &models.Membership{UserID: "s1", ClassID: "c1", Role: models.RoleStudent}
	teacher := &models.Membership{UserID: "t1", ClassID: "c1", Role: models.RoleTeacher}

	name := "Biology II"
	_, err := svc.Update(context.Background(), student, dto.UpdateClassRequest{Name: &name})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	updated, err := svc.Update(context.Background(), teacher, dto.UpdateClassRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Biology II", updated.Name)

	_, err = svc.CreateTopic(context.Background(), student, dto.CreateTopicRequest{Name: "Cells"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	topic, err := svc.CreateTopic(context.Background(), teacher, dto.CreateTopicRequest{Name: "Cells"})
	require.NoError(t, err)
	assert.Equal(t, "c1", topic.ClassID)

	view, err := svc.Get(context.Background(), teacher)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, view.Role)
	assert.Len(t, view.Topics, 1)
}
