package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type mockAuthRepo struct {
	users             map[string]*models.User
	findErr           error
	updatePasswordErr error
	updatedHash       string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RoleOf(ctx context.Context, id string) (models.UserRole, error) {
	u, err := m.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	m.updatedHash = passwordHash
	return nil
}

type mockMembershipRepo struct {
	members map[string][]models.Membership
	calls   int
	err     error
}

func (m *mockMembershipRepo) ListMemberships(ctx context.Context, classID string) ([]models.Membership, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.members[classID], nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func hashPassword(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(t *testing.T, repo *mockAuthRepo, members *mockMembershipRepo, cache *CacheService) *AuthService {
	if repo == nil {
		repo = &mockAuthRepo{}
	}
	if members == nil {
		members = &mockMembershipRepo{}
	}
	return NewAuthService(repo, members, cache, nil, nil, AuthConfig{Secret: "test-secret", Issuer: "classroom-test"})
}

func TestLoginByEmailAndByID(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "ada@example.com", FullName: "Ada", Role: models.RoleTeacher, PasswordHash: hashPassword(t, "secret1")},
	}}
	svc := newTestAuthService(t, repo, nil, nil)

	byEmail, err := svc.Login(context.Background(), models.LoginRequest{Key: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", byEmail.TokenType)
	assert.Equal(t, "u1", byEmail.User.ID)

	byID, err := svc.Login(context.Background(), models.LoginRequest{Key: "u1", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, byID.AccessToken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "ada@example.com", Role: models.RoleStudent, PasswordHash: hashPassword(t, "secret1")},
	}}
	svc := newTestAuthService(t, repo, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Key: "ada@example.com", Password: "wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{Key: "nobody@example.com", Password: "secret1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), models.LoginRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestIssuedTokenLastsSevenDays(t *testing.T) {
	svc := newTestAuthService(t, nil, nil, nil)
	issued := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, expiresAt, err := svc.IssueToken(&models.User{ID: "u1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, issued.Add(7*24*time.Hour), expiresAt)

	claims, err := svc.Authenticate(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, TokenLifetime, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	svc := newTestAuthService(t, nil, nil, nil)
	issued := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, _, err := svc.IssueToken(&models.User{ID: "u1", Role: models.RoleStudent})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(TokenLifetime + time.Minute) }
	_, err = svc.Authenticate(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenExpired))

	svc.now = func() time.Time { return issued.Add(TokenLifetime - time.Minute) }
	_, err = svc.Authenticate(token)
	assert.NoError(t, err)
}

func TestAuthenticateInvalidTokens(t *testing.T) {
	svc := newTestAuthService(t, nil, nil, nil)
	token, _, err := svc.IssueToken(&models.User{ID: "u1", Role: models.RoleTeacher})
	require.NoError(t, err)

	other := NewAuthService(&mockAuthRepo{}, &mockMembershipRepo{}, nil, nil, nil, AuthConfig{Secret: "other-secret"})
	_, err = other.Authenticate(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenInvalid))

	_, err = svc.Authenticate("not-a-jwt")
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenInvalid))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Authenticate(unsigned)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenInvalid))
}

func TestAuthenticateRejectsUnknownRole(t *testing.T) {
	svc := newTestAuthService(t, nil, nil, nil)
	claims := &models.JWTClaims{UserID: "u1", Role: "JANITOR",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Authenticate(signed)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenInvalid))
}

func TestAuthorizeForClass(t *testing.T) {
	members := &mockMembershipRepo{members: map[string][]models.Membership{
		"c1": {
			{ID: "m1", UserID: "t1", ClassID: "c1", Role: models.RoleTeacher},
			{ID: "m2", UserID: "s1", ClassID: "c1", Role: models.RoleStudent},
		},
	}}
	svc := newTestAuthService(t, nil, members, nil)

	m, err := svc.AuthorizeForClass(context.Background(), &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, m.Role)

	_, err = svc.AuthorizeForClass(context.Background(), &models.JWTClaims{UserID: "s9", Role: models.RoleStudent}, "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.AuthorizeForClass(context.Background(), &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAuthorizeForClassUsesCache(t *testing.T) {
	members := &mockMembershipRepo{members: map[string][]models.Membership{
		"c1": {{ID: "m1", UserID: "t1", ClassID: "c1", Role: models.RoleTeacher}},
	}}
	cache := NewCacheService(newMemoryCacheRepo(), NewMetricsService(), time.Minute, nil, true)
	svc := newTestAuthService(t, nil, members, cache)
	claims := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}

	for i := 0; i < 3; i++ {
		_, err := svc.AuthorizeForClass(context.Background(), claims, "c1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, members.calls)

	require.NoError(t, cache.Invalidate(context.Background(), membershipCacheKey("c1")))
	_, err := svc.AuthorizeForClass(context.Background(), claims, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, members.calls)
}

func TestAuthorizeForClassStoreFailure(t *testing.T) {
	svc := newTestAuthService(t, nil, &mockMembershipRepo{err: errors.New("db down")}, nil)
	_, err := svc.AuthorizeForClass(context.Background(), &models.JWTClaims{UserID: "t1"}, "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}

func TestRoleOf(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{"u1": {ID: "u1", Role: models.RoleAdmin}}}
	svc := newTestAuthService(t, repo, nil, nil)

	role, err := svc.RoleOf(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, err = svc.RoleOf(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestChangePassword(t *testing.T) {
	repo := &mockAuthRepo{users: map[string]*models.User{
		"u1": {ID: "u1", PasswordHash: hashPassword(t, "old-secret")},
	}}
	svc := newTestAuthService(t, repo, nil, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-secret"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old-secret", NewPassword: "new-secret"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updatedHash), []byte("new-secret")))
}
