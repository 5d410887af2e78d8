package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type assignmentService interface {
	CreateDraft(ctx context.Context, member *models.Membership) (*models.Assignment, error)
	Update(ctx context.Context, member *models.Membership, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error)
	List(ctx context.Context, member *models.Membership) ([]models.Assignment, error)
	StudentView(ctx context.Context, member *models.Membership, id string) (*dto.AssignmentStudentView, error)
	TeacherView(ctx context.Context, member *models.Membership, id string) (*dto.AssignmentTeacherView, error)
	Delete(ctx context.Context, member *models.Membership, id string) error
}

type gradebookExporter interface {
	Gradebook(ctx context.Context, member *models.Membership, assignmentID, format string) (*service.GradebookFile, error)
}

// AssignmentHandler exposes assignment endpoints of a class.
type AssignmentHandler struct {
	service  assignmentService
	exporter gradebookExporter
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc assignmentService, exporter gradebookExporter) *AssignmentHandler {
	return &AssignmentHandler{service: svc, exporter: exporter}
}

// CreateDraft godoc
// @Summary Create draft assignment
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId}/assignments [post]
func (h *AssignmentHandler) CreateDraft(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	a, err := h.service.CreateDraft(c.Request.Context(), member)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// Update godoc
// @Summary Update and publish assignment
// @Description The first update publishes the draft, creates submissions and notifies students
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.UpdateAssignmentRequest true "Assignment fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId} [patch]
func (h *AssignmentHandler) Update(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid assignment payload")
		return
	}
	a, err := h.service.Update(c.Request.Context(), member, c.Param("assignmentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// List godoc
// @Summary List class assignments
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	list, err := h.service.List(c.Request.Context(), member)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get godoc
// @Summary Open assignment
// @Description Staff receive every submission; students receive their own work
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	id := c.Param("assignmentId")
	if member.Role.IsStaff() {
		view, err := h.service.TeacherView(c.Request.Context(), member, id)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, view)
		return
	}
	view, err := h.service.StudentView(c.Request.Context(), member, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 204 {string} string "No Content"
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), member, c.Param("assignmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export gradebook
// @Tags Assignments
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param assignmentId path string true "Assignment ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId}/export [get]
func (h *AssignmentHandler) Export(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	file, err := h.exporter.Gradebook(c.Request.Context(), member, c.Param("assignmentId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
