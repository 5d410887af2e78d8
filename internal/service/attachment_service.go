package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/linkpreview"
	"github.com/noah-isme/classroom-api/pkg/storage"
)

// sniffLength is how much of an upload is read to detect its type.
const sniffLength = 3072

type attachmentRepository interface {
	CreateFile(ctx context.Context, f *models.File) error
	FindFile(ctx context.Context, id string) (*models.File, error)
	DeleteFile(ctx context.Context, id string) error
	Create(ctx context.Context, a *models.Attachment) error
	CreateWithLink(ctx context.Context, link *models.Link, a *models.Attachment) error
	FindInClass(ctx context.Context, classID, id string) (*dto.AttachmentDetail, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]dto.AttachmentDetail, error)
	ListByAnnouncement(ctx context.Context, announcementID string) ([]dto.AttachmentDetail, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]dto.AttachmentDetail, error)
	Delete(ctx context.Context, id string) error
}

type fileStorage interface {
	SaveStream(name string, r io.Reader, limit int64) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type downloadSigner interface {
	Generate(fileID, relPath string) (string, time.Time, error)
	Parse(token string) (fileID, relPath string, expiresAt time.Time, err error)
}

type linkFetcher interface {
	Fetch(ctx context.Context, raw string) (*linkpreview.Preview, error)
}

// FileUpload carries an uploaded stream and its client-side metadata.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// FileDownload is an opened stored file ready for streaming.
type FileDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// AttachmentServiceConfig holds upload limits and the public route prefix.
type AttachmentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// AttachmentTargets resolves the items attachments hang off.
type AttachmentTargets struct {
	Assignments   assignmentLookup
	Announcements announcementLookup
	Submissions   submissionLookup
}

// AttachmentService stores uploads and attaches files or links to class items.
type AttachmentService struct {
	repo    attachmentRepository
	targets AttachmentTargets
	storage fileStorage
	signer  downloadSigner
	links   linkFetcher
	logger  *zap.Logger
	cfg     AttachmentServiceConfig
	mimeSet map[string]struct{}
	now     func() time.Time
}

// NewAttachmentService constructs the service with defaults. links may be nil
// to store links without fetching a preview.
func NewAttachmentService(repo attachmentRepository, targets AttachmentTargets, store fileStorage, signer downloadSigner, links linkFetcher, logger *zap.Logger, cfg AttachmentServiceConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "application/pdf", "video/mp4"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &AttachmentService{
		repo:    repo,
		targets: targets,
		storage: store,
		signer:  signer,
		links:   links,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
		now:     time.Now,
	}
}

// Upload stores a file for the caller. It can be attached afterwards.
func (s *AttachmentService) Upload(ctx context.Context, claims *models.JWTClaims, upload FileUpload) (*models.File, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	id := uuid.NewString()
	relPath := path.Join(s.now().UTC().Format("2006/01"), id+strings.ToLower(filepath.Ext(upload.Filename)))
	written, err := s.storage.SaveStream(relPath, upload.Content, s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	f := &models.File{
		ID:          id,
		Filename:    filepath.Base(upload.Filename),
		FilePath:    relPath,
		FileURL:     fmt.Sprintf("%s/files/%s/download", strings.TrimRight(s.cfg.APIPrefix, "/"), id),
		FileType:    models.FileTypeFromMIME(mimeType),
		ContentType: mimeType,
		SizeBytes:   written,
		Uploader:    claims.UserID,
	}
	if err := s.repo.CreateFile(ctx, f); err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save file metadata")
	}
	s.logger.Info("file uploaded", zap.String("file_id", f.ID), zap.String("user_id", claims.UserID), zap.Int64("size", written))
	return f, nil
}

// DeleteFile removes an uploaded file and its attachments. Only its uploader may.
func (s *AttachmentService) DeleteFile(ctx context.Context, claims *models.JWTClaims, fileID string) error {
	f, err := s.repo.FindFile(ctx, fileID)
	if err != nil {
		return notFoundOr(err, "file not found", "failed to load file")
	}
	if f.Uploader != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "file belongs to another user")
	}
	if err := s.repo.DeleteFile(ctx, f.ID); err != nil {
		return notFoundOr(err, "file not found", "failed to delete file")
	}
	if err := s.storage.Delete(f.FilePath); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("file_id", f.ID), zap.Error(err))
	}
	return nil
}

// Attach links an uploaded file or a web URL to exactly one assignment,
// announcement or submission of the member's class.
func (s *AttachmentService) Attach(ctx context.Context, member *models.Membership, req dto.CreateAttachmentRequest) (*dto.AttachmentDetail, error) {
	if req.Count() != 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of assignment_id, announcement_id or submission_id is required")
	}
	hasFile := req.FileID != nil && *req.FileID != ""
	hasURL := req.URL != nil && *req.URL != ""
	if hasFile == hasURL {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of file_id or url is required")
	}
	if err := s.authorizeTarget(ctx, member, req.AttachmentTarget); err != nil {
		return nil, err
	}

	attachment := &models.Attachment{
		AssignmentID:   req.AssignmentID,
		AnnouncementID: req.AnnouncementID,
		SubmissionID:   req.SubmissionID,
		Uploader:       member.UserID,
	}
	detail := &dto.AttachmentDetail{}

	if hasFile {
		f, err := s.repo.FindFile(ctx, *req.FileID)
		if err != nil {
			return nil, notFoundOr(err, "file not found", "failed to load file")
		}
		if f.Uploader != member.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "file belongs to another user")
		}
		attachment.FileID = &f.ID
		if err := s.repo.Create(ctx, attachment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attachment")
		}
		detail.File = f
	} else {
		link := s.preview(ctx, *req.URL)
		if err := s.repo.CreateWithLink(ctx, link, attachment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attachment")
		}
		detail.Link = link
	}
	detail.Attachment = *attachment
	s.sign(detail)
	return detail, nil
}

func (s *AttachmentService) authorizeTarget(ctx context.Context, member *models.Membership, target dto.AttachmentTarget) error {
	switch {
	case target.AssignmentID != nil && *target.AssignmentID != "":
		if _, err := s.targets.Assignments.FindInClass(ctx, member.ClassID, *target.AssignmentID); err != nil {
			return notFoundOr(err, "assignment not found", "failed to load assignment")
		}
		if !member.Role.IsStaff() {
			return appErrors.Clone(appErrors.ErrForbidden, "students cannot attach to assignments")
		}
	case target.AnnouncementID != nil && *target.AnnouncementID != "":
		if _, err := s.targets.Announcements.FindInClass(ctx, member.ClassID, *target.AnnouncementID); err != nil {
			return notFoundOr(err, "announcement not found", "failed to load announcement")
		}
		if !member.Role.IsStaff() {
			return appErrors.Clone(appErrors.ErrForbidden, "students cannot attach to announcements")
		}
	default:
		sub, err := s.targets.Submissions.FindInClass(ctx, member.ClassID, *target.SubmissionID)
		if err != nil {
			return notFoundOr(err, "submission not found", "failed to load submission")
		}
		if sub.UserID != member.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another user")
		}
	}
	return nil
}

// preview fetches link metadata. Failures keep the bare URL.
func (s *AttachmentService) preview(ctx context.Context, raw string) *models.Link {
	link := &models.Link{URL: raw}
	if s.links == nil {
		return link
	}
	p, err := s.links.Fetch(ctx, raw)
	if err != nil {
		s.logger.Warn("link preview failed", zap.String("url", raw), zap.Error(err))
		return link
	}
	link.Title, link.Description, link.Thumbnail = p.Title, p.Description, p.Thumbnail
	return link
}

// Get returns an attachment of the member's class.
func (s *AttachmentService) Get(ctx context.Context, member *models.Membership, id string) (*dto.AttachmentDetail, error) {
	detail, err := s.repo.FindInClass(ctx, member.ClassID, id)
	if err != nil {
		return nil, notFoundOr(err, "attachment not found", "failed to load attachment")
	}
	s.sign(detail)
	return detail, nil
}

// Delete removes an attachment. Only its uploader or an admin may.
func (s *AttachmentService) Delete(ctx context.Context, member *models.Membership, id string) error {
	detail, err := s.repo.FindInClass(ctx, member.ClassID, id)
	if err != nil {
		return notFoundOr(err, "attachment not found", "failed to load attachment")
	}
	if detail.Uploader != member.UserID && member.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader can delete this attachment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "attachment not found", "failed to delete attachment")
	}
	return nil
}

// ListByAssignment returns signed attachments of an assignment.
func (s *AttachmentService) ListByAssignment(ctx context.Context, assignmentID string) ([]dto.AttachmentDetail, error) {
	return s.signAll(s.repo.ListByAssignment(ctx, assignmentID))
}

// ListByAnnouncement returns signed attachments of an announcement.
func (s *AttachmentService) ListByAnnouncement(ctx context.Context, announcementID string) ([]dto.AttachmentDetail, error) {
	return s.signAll(s.repo.ListByAnnouncement(ctx, announcementID))
}

// ListBySubmission returns signed attachments of a submission.
func (s *AttachmentService) ListBySubmission(ctx context.Context, submissionID string) ([]dto.AttachmentDetail, error) {
	return s.signAll(s.repo.ListBySubmission(ctx, submissionID))
}

func (s *AttachmentService) signAll(list []dto.AttachmentDetail, err error) ([]dto.AttachmentDetail, error) {
	if err != nil {
		return nil, err
	}
	for i := range list {
		s.sign(&list[i])
	}
	return list, nil
}

// sign sets a time-limited download URL on file attachments.
func (s *AttachmentService) sign(detail *dto.AttachmentDetail) {
	if detail.File == nil || s.signer == nil {
		return
	}
	token, _, err := s.signer.Generate(detail.File.ID, detail.File.FilePath)
	if err != nil {
		s.logger.Warn("failed to sign download url", zap.String("file_id", detail.File.ID), zap.Error(err))
		return
	}
	url := fmt.Sprintf("%s?token=%s", detail.File.FileURL, token)
	detail.DownloadURL = &url
}

// Download validates a signed token and opens the file it grants.
func (s *AttachmentService) Download(ctx context.Context, fileID, token string) (*FileDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	tokenID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	if tokenID != fileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	f, err := s.repo.FindFile(ctx, fileID)
	if err != nil {
		return nil, notFoundOr(err, "file not found", "failed to load file")
	}
	if f.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return &FileDownload{File: file, Filename: f.Filename, MimeType: f.ContentType, SizeBytes: f.SizeBytes}, nil
}

func detectMime(upload FileUpload) (string, error) {
	header := make([]byte, sniffLength)
	n, err := io.ReadFull(upload.Content, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	detected := mimetype.Detect(header[:n])
	if detected.Is("application/octet-stream") && upload.MimeType != "" {
		return normalizeMime(upload.MimeType), nil
	}
	return normalizeMime(detected.String()), nil
}

func normalizeMime(v string) string {
	mediaType, _, _ := strings.Cut(v, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
