package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	createErr error
	updated   *models.User
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "generated"
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func TestRegisterHashesPasswordAndNormalisesEmail(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Register(context.Background(), dto.RegisterUserRequest{
		Email: " Ada@Example.com ", Password: "secret1", FullName: "Ada", Role: models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
}

func TestRegisterRejectsBlankName(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Register(context.Background(), dto.RegisterUserRequest{
		Email: "a@example.com", Password: "secret1", FullName: "   ", Role: models.RoleStudent,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.users)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	_, err := svc.Register(context.Background(), dto.RegisterUserRequest{
		Email: "a@example.com", Password: "secret1", FullName: "A", Role: "PRINCIPAL",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewUserService(&mockUserRepo{createErr: repository.ErrDuplicate}, nil, nil)

	_, err := svc.Register(context.Background(), dto.RegisterUserRequest{
		Email: "a@example.com", Password: "secret1", FullName: "A", Role: models.RoleTeacher,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestUpdateProfile(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"u1": {ID: "u1", FullName: "Old"}}}
	svc := NewUserService(repo, nil, nil)

	name := "New Name"
	bio := "hello"
	user, err := svc.UpdateProfile(context.Background(), "u1", dto.UpdateProfileRequest{FullName: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "hello", *repo.updated.Bio)

	_, err = svc.UpdateProfile(context.Background(), "missing", dto.UpdateProfileRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
