package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	notifRepo "legalconnect.io/portal/internal/modules/notification/repository"
	"legalconnect.io/portal/internal/modules/registration/form"
)

func Channel(sessionID string) string {
	return fmt.Sprintf("form_notifications:%s", sessionID)
}

type NotificationService interface {
	Publish(ctx context.Context, sessionID string, toast form.Toast) error
	Subscribe(ctx context.Context, sessionID string) (notifRepo.Subscription, error)
}

type notificationService struct {
	repo notifRepo.NotificationRepository
}

func NewNotificationService(repo notifRepo.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) Publish(ctx context.Context, sessionID string, toast form.Toast) error {
	payload, err := json.Marshal(toast)
	if err != nil {
		return err
	}
	return s.repo.Publish(ctx, Channel(sessionID), payload)
}

func (s *notificationService) Subscribe(ctx context.Context, sessionID string) (notifRepo.Subscription, error) {
	return s.repo.Subscribe(ctx, Channel(sessionID))
}

// Recorder is the form.Notifier of one request. It keeps the toasts for the
// HTTP response and fans them out to the session's live channel.
type Recorder struct {
	svc       NotificationService
	sessionID string
	log       *zap.Logger

	mu     sync.Mutex
	toasts []form.Toast
}

func NewRecorder(svc NotificationService, sessionID string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{svc: svc, sessionID: sessionID, log: logger}
}

func (r *Recorder) Notify(ctx context.Context, toast form.Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, toast)
	r.mu.Unlock()

	if r.svc == nil {
		return
	}
	if err := r.svc.Publish(ctx, r.sessionID, toast); err != nil {
		r.log.Warn("publish notification failed", zap.String("session_id", r.sessionID), zap.Error(err))
	}
}

// Toasts returns the notifications recorded so far, never nil.
func (r *Recorder) Toasts() []form.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]form.Toast{}, r.toasts...)
}
