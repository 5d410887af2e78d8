package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

func newContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withMember(c *gin.Context, role models.UserRole) *models.Membership {
	member := &models.Membership{UserID: "u1", ClassID: "class1", Role: role}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role, Email: "u1@example.com", FullName: "User One"})
	c.Set(middleware.ContextMembershipKey, member)
	c.Params = gin.Params{{Key: "classId", Value: "class1"}}
	return member
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

type classServiceMock struct {
	classService
	created *dto.CreateClassRequest
	joinErr error
}

func (m *classServiceMock) Create(_ context.Context, claims *models.JWTClaims, req dto.CreateClassRequest) (*models.Classroom, error) {
	m.created = &req
	return &models.Classroom{ID: "abcdefghij", Name: req.Name, Creator: claims.UserID}, nil
}

func (m *classServiceMock) Join(_ context.Context, claims *models.JWTClaims, classID string) (*models.Membership, error) {
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	return &models.Membership{UserID: claims.UserID, ClassID: classID, Role: claims.Role}, nil
}

func TestClassHandlerCreate(t *testing.T) {
	svc := &classServiceMock{}
	h := NewClassHandler(svc)
	c, w := newContext(http.MethodPost, "/classes", []byte(`{"class_name":"Physics"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Physics", svc.created.Name)
}

func TestClassHandlerCreateRejectsMalformedBody(t *testing.T) {
	h := NewClassHandler(&classServiceMock{})
	c, w := newContext(http.MethodPost, "/classes", []byte(`not json`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeError(t, w))
}

func TestClassHandlerRequiresIdentityAndMembership(t *testing.T) {
	h := NewClassHandler(&classServiceMock{})

	c, w := newContext(http.MethodPost, "/classes", []byte(`{}`))
	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newContext(http.MethodGet, "/classes/class1", nil)
	h.Get(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestClassHandlerJoinConflict(t *testing.T) {
	h := NewClassHandler(&classServiceMock{joinErr: appErrors.Clone(appErrors.ErrConflict, "already a member of this class")})
	c, w := newContext(http.MethodPost, "/classes/class1/join", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	c.Params = gin.Params{{Key: "classId", Value: "class1"}}

	h.Join(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

type submissionServiceMock struct {
	submissionService
	graded    *int
	submitErr error
}

func (m *submissionServiceMock) Grade(_ context.Context, _ *models.Membership, id string, value int) (*models.Mark, error) {
	m.graded = &value
	return &models.Mark{SubmissionID: id, Value: value}, nil
}

func (m *submissionServiceMock) Submit(_ context.Context, _ *models.Membership, id string) (*models.Submission, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.Submission{ID: id, Submitted: true}, nil
}

func TestSubmissionHandlerGrade(t *testing.T) {
	svc := &submissionServiceMock{}
	h := NewSubmissionHandler(svc)
	c, w := newContext(http.MethodPost, "/classes/class1/submissions/sub1/mark", []byte(`{"marks":90}`))
	withMember(c, models.RoleTeacher)
	c.Params = append(c.Params, gin.Param{Key: "submissionId", Value: "sub1"})

	h.Grade(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.graded)
	assert.Equal(t, 90, *svc.graded)
}

func TestSubmissionHandlerGradeRequiresMarks(t *testing.T) {
	svc := &submissionServiceMock{}
	h := NewSubmissionHandler(svc)
	c, w := newContext(http.MethodPost, "/classes/class1/submissions/sub1/mark", []byte(`{}`))
	withMember(c, models.RoleTeacher)

	h.Grade(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.graded)
}

func TestSubmissionHandlerSubmitMapsStateErrors(t *testing.T) {
	h := NewSubmissionHandler(&submissionServiceMock{submitErr: appErrors.ErrAlreadySubmitted})
	c, w := newContext(http.MethodPost, "/classes/class1/submissions/sub1/submit", nil)
	withMember(c, models.RoleStudent)

	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrAlreadySubmitted.Code, decodeError(t, w))
}

type assignmentServiceMock struct {
	assignmentService
	view string
}

func (m *assignmentServiceMock) StudentView(_ context.Context, _ *models.Membership, id string) (*dto.AssignmentStudentView, error) {
	m.view = "student"
	return &dto.AssignmentStudentView{Assignment: models.Assignment{ID: id}}, nil
}

func (m *assignmentServiceMock) TeacherView(_ context.Context, _ *models.Membership, id string) (*dto.AssignmentTeacherView, error) {
	m.view = "teacher"
	return &dto.AssignmentTeacherView{Assignment: models.Assignment{ID: id}}, nil
}

type exporterMock struct{ format string }

func (m *exporterMock) Gradebook(_ context.Context, _ *models.Membership, id, format string) (*service.GradebookFile, error) {
	m.format = format
	return &service.GradebookFile{Filename: "gradebook_" + id + ".csv", ContentType: "text/csv", Data: []byte("Student\n")}, nil
}

func TestAssignmentHandlerGetPicksViewByRole(t *testing.T) {
	svc := &assignmentServiceMock{}
	h := NewAssignmentHandler(svc, nil)

	c, w := newContext(http.MethodGet, "/classes/class1/assignments/a1", nil)
	withMember(c, models.RoleTeacher)
	h.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teacher", svc.view)

	c, w = newContext(http.MethodGet, "/classes/class1/assignments/a1", nil)
	withMember(c, models.RoleStudent)
	h.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student", svc.view)
}

func TestAssignmentHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	h := NewAssignmentHandler(&assignmentServiceMock{}, exporter)
	c, w := newContext(http.MethodGet, "/classes/class1/assignments/a1/export", nil)
	withMember(c, models.RoleTeacher)
	c.Params = append(c.Params, gin.Param{Key: "assignmentId", Value: "a1"})

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, `attachment; filename="gradebook_a1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student\n", w.Body.String())
}

func TestAuthHandlerMeUsesTokenIdentity(t *testing.T) {
	h := NewAuthHandler(nil)
	c, w := newContext(http.MethodGet, "/users/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, Email: "u1@example.com", FullName: "User One"})

	h.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "u1", env.Data.ID)
	assert.Equal(t, models.RoleStudent, env.Data.Role)
}

type attachmentServiceMock struct {
	attachmentService
	upload *service.FileUpload
	body   []byte
}

func (m *attachmentServiceMock) Upload(_ context.Context, claims *models.JWTClaims, upload service.FileUpload) (*models.File, error) {
	m.upload = &upload
	m.body, _ = io.ReadAll(upload.Content)
	return &models.File{ID: "f1", Filename: upload.Filename, Uploader: claims.UserID}, nil
}

func TestAttachmentHandlerUpload(t *testing.T) {
	svc := &attachmentServiceMock{}
	h := NewAttachmentHandler(svc)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "notes.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 content"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	c, w := newContext(http.MethodPost, "/files", body.Bytes())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	h.Upload(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.upload)
	assert.Equal(t, "notes.pdf", svc.upload.Filename)
	assert.Equal(t, "%PDF-1.4 content", string(svc.body))
}

func TestAttachmentHandlerDownloadRequiresToken(t *testing.T) {
	h := NewAttachmentHandler(&attachmentServiceMock{})
	c, w := newContext(http.MethodGet, "/files/f1/download", nil)
	c.Params = gin.Params{{Key: "fileId", Value: "f1"}}

	h.Download(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"database": PingerFunc(func(context.Context) error { return nil }),
		"redis":    PingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	c, w := newContext(http.MethodGet, "/ready", nil)

	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
