package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type attachmentService interface {
	Upload(ctx context.Context, claims *models.JWTClaims, upload service.FileUpload) (*models.File, error)
	DeleteFile(ctx context.Context, claims *models.JWTClaims, fileID string) error
	Download(ctx context.Context, fileID, token string) (*service.FileDownload, error)
	Attach(ctx context.Context, member *models.Membership, req dto.CreateAttachmentRequest) (*dto.AttachmentDetail, error)
	Get(ctx context.Context, member *models.Membership, id string) (*dto.AttachmentDetail, error)
	Delete(ctx context.Context, member *models.Membership, id string) error
}

// AttachmentHandler exposes file upload/download and attachment endpoints.
type AttachmentHandler struct {
	service attachmentService
}

// NewAttachmentHandler constructs an attachment handler.
func NewAttachmentHandler(svc attachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: svc}
}

// Upload godoc
// @Summary Upload file
// @Description Stores a file for the caller; attach it afterwards
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /files [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}
	file, err := h.service.Upload(c.Request.Context(), claims, service.FileUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  reader,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// DeleteFile godoc
// @Summary Delete uploaded file
// @Tags Files
// @Security BearerAuth
// @Param fileId path string true "File ID"
// @Success 204 {string} string "No Content"
// @Router /files/{fileId} [delete]
func (h *AttachmentHandler) DeleteFile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.DeleteFile(c.Request.Context(), claims, c.Param("fileId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download file
// @Description Streams a file granted by a signed download token
// @Tags Files
// @Produce octet-stream
// @Param fileId path string true "File ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /files/{fileId}/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Download(c.Request.Context(), c.Param("fileId"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}

// Attach godoc
// @Summary Attach file or link
// @Description Exactly one target id and exactly one of file_id or url
// @Tags Attachments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param payload body dto.CreateAttachmentRequest true "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{classId}/attachments [post]
func (h *AttachmentHandler) Attach(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	var req dto.CreateAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err, "invalid attachment payload")
		return
	}
	detail, err := h.service.Attach(c.Request.Context(), member, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Get attachment
// @Tags Attachments
// @Produce json
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param attachmentId path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/attachments/{attachmentId} [get]
func (h *AttachmentHandler) Get(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), member, c.Param("attachmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Delete godoc
// @Summary Delete attachment
// @Tags Attachments
// @Security BearerAuth
// @Param classId path string true "Class ID"
// @Param attachmentId path string true "Attachment ID"
// @Success 204 {string} string "No Content"
// @Router /classes/{classId}/attachments/{attachmentId} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	member := requireMember(c)
	if member == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), member, c.Param("attachmentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
