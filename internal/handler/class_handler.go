package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type classService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateClassRequest) (*models.Classroom, error)
	Get(ctx context.Context, member *models.Membership) (*dto.ClassroomView, error)
	ListForUser(ctx context.Context, userID string) ([]models.Classroom, error)
	Update(ctx context.Context, member *models.Membership, req dto.UpdateClassRequest) (*models.Classroom, error)
	Delete(ctx context.Context, claims *models.JWTClaims, classID string) error
	Join(ctx context.Context, claims *models.JWTClaims, classID string) (*models.Membership, error)
	Leave(ctx context.Context, member *models.Membership) error
	Members(ctx context.Context, classID string) ([]models.Member, error)
	CreateTopic(ctx context.Context, member *models.Membership, req dto.CreateTopicRequest) (*models.Topic, error)
	Topics(ctx context.Context, classID string) ([]models.Topic, error)
}

// ClassHandler exposes classroom, membership and topic endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// Create godoc
// @Summary Create class
// @Description Teachers become the first member of the class they create
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid class payload")
		return
	}
	class, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// List godoc
// @Summary List my classes
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	classes, err := h.service.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, classes)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	view, err := h.service.Get(c.Request.Context(), member)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param payload body dto.UpdateClassRequest true "Class changes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId} [patch]
func (h *ClassHandler) Update(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid class payload")
		return
	}
	class, err := h.service.Update(c.Request.Context(), member, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, class)
}

// Delete godoc
// @Summary Delete class
// @Description Only the creator or an admin may delete a class
// @Tags Classes
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 204 {string} string "No Content"
// @Failure 403 {object} response.Envelope
// @Router /classes/{classId} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param(middleware.ClassParam)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Join godoc
// @Summary Join class
// @Description Join with the class code; the membership role follows the global role
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{classId}/join [post]
func (h *ClassHandler) Join(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	member, err := h.service.Join(c.Request.Context(), claims, c.Param(middleware.ClassParam))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// Leave godoc
// @Summary Leave class
// @Tags Classes
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 204 {string} string "No Content"
// @Router /classes/{classId}/members/me [delete]
func (h *ClassHandler) Leave(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	if err := h.service.Leave(c.Request.Context(), member); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Members godoc
// @Summary List class members
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/members [get]
func (h *ClassHandler) Members(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	members, err := h.service.Members(c.Request.Context(), member.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, members)
}

// CreateTopic godoc
// @Summary Create topic
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param payload body dto.CreateTopicRequest true "Topic payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/topics [post]
func (h *ClassHandler) CreateTopic(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	var req dto.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid topic payload")
		return
	}
	topic, err := h.service.CreateTopic(c.Request.Context(), member, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, topic)
}

// Topics godoc
// @Summary List topics
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/topics [get]
func (h *ClassHandler) Topics(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	topics, err := h.service.Topics(c.Request.Context(), member.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topics)
}
