package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type submissionService interface {
	Get(ctx context.Context, member *models.Membership, submissionID string) (*dto.SubmissionDetail, error)
	Submit(ctx context.Context, member *models.Membership, submissionID string) (*models.Submission, error)
	Unsubmit(ctx context.Context, member *models.Membership, submissionID string) (*models.Submission, error)
	Grade(ctx context.Context, member *models.Membership, submissionID string, value int) (*models.Mark, error)
	UpdateGrade(ctx context.Context, member *models.Membership, submissionID string, value int) (*models.Mark, error)
}

// SubmissionHandler exposes the submission lifecycle endpoints.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// Get godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{classId}/submissions/{submissionId} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), member, c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Submit godoc
// @Summary Turn in submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId}/submissions/{submissionId}/submit [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	sub, err := h.service.Submit(c.Request.Context(), member, c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// Unsubmit godoc
// @Summary Withdraw submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{classId}/submissions/{submissionId}/unsubmit [post]
func (h *SubmissionHandler) Unsubmit(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	sub, err := h.service.Unsubmit(c.Request.Context(), member, c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// Grade godoc
// @Summary Grade submission
// @Description Grades once; a second attempt yields ALREADY_GRADED
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param submissionId path string true "Submission ID"
// @Param payload body dto.GradeRequest true "Marks"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{classId}/submissions/{submissionId}/mark [post]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	var req dto.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid grade payload")
		return
	}
	if req.Marks == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "marks is required"))
		return
	}
	mark, err := h.service.Grade(c.Request.Context(), member, c.Param("submissionId"), *req.Marks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// UpdateGrade godoc
// @Summary Change grade
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param submissionId path string true "Submission ID"
// @Param payload body dto.GradeRequest true "Marks"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/submissions/{submissionId}/mark [patch]
func (h *SubmissionHandler) UpdateGrade(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	var req dto.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid grade payload")
		return
	}
	if req.Marks == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "marks is required"))
		return
	}
	mark, err := h.service.UpdateGrade(c.Request.Context(), member, c.Param("submissionId"), *req.Marks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mark)
}
