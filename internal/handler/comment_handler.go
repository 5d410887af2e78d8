package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type commentService interface {
	CommentOnAssignment(ctx context.Context, member *models.Membership, assignmentID string, req dto.CreateCommentRequest) (*models.Comment, error)
	CommentOnAnnouncement(ctx context.Context, member *models.Membership, announcementID string, req dto.CreateCommentRequest) (*models.Comment, error)
	CommentPrivately(ctx context.Context, member *models.Membership, submissionID string, req dto.CreateCommentRequest) (*models.PrivateComment, error)
	PrivateComments(ctx context.Context, member *models.Membership, submissionID string) ([]dto.PrivateCommentView, error)
	Delete(ctx context.Context, member *models.Membership, id string, private bool) error
}

// CommentHandler exposes public and private comment endpoints.
type CommentHandler struct {
	service commentService
}

// NewCommentHandler constructs a comment handler.
func NewCommentHandler(svc commentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

func bindComment(c *gin.Context) (dto.CreateCommentRequest, bool) {
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid comment payload")
		return req, false
	}
	return req, true
}

// OnAssignment godoc
// @Summary Comment on assignment
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/assignments/{assignmentId}/comments [post]
func (h *CommentHandler) OnAssignment(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	req, ok := bindComment(c)
	if !ok {
		return
	}
	comment, err := h.service.CommentOnAssignment(c.Request.Context(), member, c.Param("assignmentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// OnAnnouncement godoc
// @Summary Comment on announcement
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param announcementId path string true "Announcement ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/announcements/{announcementId}/comments [post]
func (h *CommentHandler) OnAnnouncement(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	req, ok := bindComment(c)
	if !ok {
		return
	}
	comment, err := h.service.CommentOnAnnouncement(c.Request.Context(), member, c.Param("announcementId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Private godoc
// @Summary Private comment on submission
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param submissionId path string true "Submission ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/submissions/{submissionId}/comments [post]
func (h *CommentHandler) Private(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	req, ok := bindComment(c)
	if !ok {
		return
	}
	comment, err := h.service.CommentPrivately(c.Request.Context(), member, c.Param("submissionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// ListPrivate godoc
// @Summary List private comments of a submission
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/submissions/{submissionId}/comments [get]
func (h *CommentHandler) ListPrivate(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	list, err := h.service.PrivateComments(c.Request.Context(), member, c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Delete godoc
// @Summary Delete comment
// @Description Only the author may delete a comment
// @Tags Comments
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param commentId path string true "Comment ID"
// @Param private query bool false "Delete a private comment"
// @Success 204 {string} string "No Content"
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId}/comments/{commentId} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	private, _ := strconv.ParseBool(c.DefaultQuery("private", "false"))
	if err := h.service.Delete(c.Request.Context(), member, c.Param("commentId"), private); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
