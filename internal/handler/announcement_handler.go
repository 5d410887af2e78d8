package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type announcementService interface {
	CreateDraft(ctx context.Context, member *models.Membership) (*models.Announcement, error)
	Update(ctx context.Context, member *models.Membership, id string, req dto.UpdateAnnouncementRequest) (*models.Announcement, error)
	List(ctx context.Context, member *models.Membership) ([]models.Announcement, error)
	Get(ctx context.Context, member *models.Membership, id string) (*dto.AnnouncementView, error)
	Delete(ctx context.Context, member *models.Membership, id string) error
}

// AnnouncementHandler exposes class announcement endpoints.
type AnnouncementHandler struct {
	service announcementService
}

// NewAnnouncementHandler constructs an announcement handler.
func NewAnnouncementHandler(svc announcementService) *AnnouncementHandler {
	return &AnnouncementHandler{service: svc}
}

// CreateDraft godoc
// @Summary Create draft announcement
// @Tags Announcements
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/announcements [post]
func (h *AnnouncementHandler) CreateDraft(c *gin.Context) {
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
// @Summary Update and publish announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param announcementId path string true "Announcement ID"
// @Param payload body dto.UpdateAnnouncementRequest true "Announcement fields"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/announcements/{announcementId} [patch]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	var req dto.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid announcement payload")
		return
	}
	a, err := h.service.Update(c.Request.Context(), member, c.Param("announcementId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// List godoc
// @Summary List announcements
// @Tags Announcements
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
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
// @Summary Get announcement
// @Tags Announcements
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param announcementId path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/announcements/{announcementId} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	view, err := h.service.Get(c.Request.Context(), member, c.Param("announcementId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param announcementId path string true "Announcement ID"
// @Success 204 {string} string "No Content"
// @Router /classes/{classId}/announcements/{announcementId} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), member, c.Param("announcementId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
