package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/jobs"
	"github.com/noah-isme/classroom-api/pkg/mail"
	"github.com/noah-isme/classroom-api/pkg/middleware/requestid"
)

// JobTypeEmail identifies queued email deliveries.
const JobTypeEmail = "email"

// Notifier hands notifications off for delivery. Notify returns once the
// notification is queued; delivery happens later and is not reported back.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

// NotificationService fans a notification out into one email job per recipient.
type NotificationService struct {
	queue   jobEnqueuer
	sender  mail.Sender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service. Call Attach with the queue
// that runs Handle before the first Notify.
func NewNotificationService(sender mail.Sender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, metrics: metrics, logger: logger}
}

// Attach sets the queue jobs are pushed onto.
func (s *NotificationService) Attach(queue jobEnqueuer) {
	s.queue = queue
}

// Notify enqueues one delivery job per recipient.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if s.queue == nil {
		return fmt.Errorf("notification queue not attached")
	}
	for _, recipient := range n.Recipients {
		msg := mail.Message{To: []string{recipient}, Subject: n.Subject, HTMLBody: n.HTMLBody}
		if err := s.queue.Enqueue(ctx, jobs.Job{ID: uuid.NewString(), Type: JobTypeEmail, Payload: msg}); err != nil {
			return fmt.Errorf("enqueue notification for %s: %w", recipient, err)
		}
	}
	s.logger.Debug("notification queued",
		zap.String("subject", n.Subject),
		zap.Int("recipients", len(n.Recipients)),
		zap.String("request_id", requestid.FromContext(ctx)),
	)
	return nil
}

// Handle is the queue handler that delivers one email job.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}
	s.metrics.RecordNotification(true)
	return nil
}

// OnFailure records jobs that exhausted their retries.
func (s *NotificationService) OnFailure(job jobs.Job, err error) {
	s.metrics.RecordNotification(false)
}

// queueNotification hands n to the notifier. Failures are logged, never returned.
func queueNotification(ctx context.Context, notifier Notifier, logger *zap.Logger, n models.Notification) {
	if notifier == nil || len(n.Recipients) == 0 {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		logger.Warn("failed to queue notification",
			zap.String("subject", n.Subject),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
	}
}

// assignmentNotification renders the publish email sent to students.
func assignmentNotification(recipients []string, teacher string, a *models.Assignment) models.Notification {
	body := ""
	if a.Instructions != nil {
		body = *a.Instructions
	}
	return models.Notification{
		Recipients: recipients,
		Subject:    fmt.Sprintf("New Assignment from %s: %s", teacher, a.Name),
		HTMLBody:   renderHTML(a.Name, body),
	}
}

// announcementNotification renders the publish email for an announcement.
func announcementNotification(recipients []string, teacher string, a *models.Announcement) models.Notification {
	body := ""
	if a.Body != nil {
		body = *a.Body
	}
	return models.Notification{
		Recipients: recipients,
		Subject:    fmt.Sprintf("New Announcement from %s: %s", teacher, a.Name),
		HTMLBody:   renderHTML(a.Name, body),
	}
}

func renderHTML(title, body string) string {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h2>")
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}
