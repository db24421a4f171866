package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/drilldown/backend/internal/mail"
	"github.com/drilldown/backend/internal/metrics"
	"github.com/drilldown/backend/internal/model"
	"github.com/drilldown/backend/internal/repository"
	"github.com/go-playground/validator/v10"
)

const defaultNotificationTimeout = 30 * time.Second

type respondInput struct {
	ResponseText string `json:"response_text" validate:"required,max=5000"`
}

// SubmissionServiceImpl is the production implementation of SubmissionService.
type SubmissionServiceImpl struct {
	repo     repository.SubmissionRepository
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	validate *validator.Validate

	now                 func() time.Time
	notificationTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewSubmissionService creates a SubmissionService. notifier may be nil, in
// which case no mail is sent and responses report DeliveryNotConfigured.
func NewSubmissionService(repo repository.SubmissionRepository, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) *SubmissionServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionServiceImpl{
		repo:                repo,
		notifier:            notifier,
		metrics:             m,
		logger:              logger,
		validate:            newValidator(),
		now:                 func() time.Time { return time.Now().UTC() },
		notificationTimeout: defaultNotificationTimeout,
	}
}

var _ SubmissionService = (*SubmissionServiceImpl)(nil)

func (s *SubmissionServiceImpl) SubmitContact(ctx context.Context, in model.ContactInput) (*model.Submission, error) {
	in = in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	sub := in.NewSubmission()
	sub.SubmittedAt = s.now()
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	s.metrics.RecordSubmissionReceived(ctx)
	s.logger.Info("contact submission received", "submission_id", sub.ID)

	s.notifyNewSubmission(ctx, sub.Clone())
	return sub, nil
}

// notifyNewSubmission alerts the sales inbox in the background and records
// the outcome on the submission. The request context is detached so the
// notification outlives the HTTP call.
func (s *SubmissionServiceImpl) notifyNewSubmission(ctx context.Context, sub *model.Submission) {
	if s.notifier == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("service closing, contact notification skipped", "submission_id", sub.ID)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notificationTimeout)
		defer cancel()

		err := s.notifier.SendContactNotification(ctx, sub)
		s.metrics.RecordEmailDispatched(ctx, metrics.KindContactNotification, string(deliveryOf(err)))
		if err != nil {
			return
		}

		sent, at := true, s.now()
		_, err = s.repo.Update(ctx, sub.ID, model.SubmissionPatch{EmailSent: &sent, EmailSentAt: &at})
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.logger.Debug("submission deleted before notification was recorded", "submission_id", sub.ID)
		case err != nil:
			s.logger.Warn("failed to record contact notification", "submission_id", sub.ID, "error", err)
		}
	}()
}

func (s *SubmissionServiceImpl) Get(ctx context.Context, id string) (*model.Submission, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *SubmissionServiceImpl) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	filter := strings.TrimSpace(string(opts.Status))
	switch filter {
	case "", "all":
		opts.Status = ""
	default:
		st, ok := model.ParseSubmissionStatus(filter)
		if !ok {
			return nil, ErrInvalidStatus
		}
		opts.Status = st
	}
	return s.repo.List(ctx, opts)
}

func (s *SubmissionServiceImpl) SetStatus(ctx context.Context, id, status string) (*model.Submission, error) {
	st, ok := model.ParseSubmissionStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	return s.updateStatus(ctx, id, st)
}

func (s *SubmissionServiceImpl) ToggleStatus(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.repo.ToggleStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, sub)
	return sub, nil
}

func (s *SubmissionServiceImpl) updateStatus(ctx context.Context, id string, st model.SubmissionStatus) (*model.Submission, error) {
	sub, err := s.repo.Update(ctx, id, model.SubmissionPatch{Status: &st})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, sub)
	return sub, nil
}

func (s *SubmissionServiceImpl) statusChanged(ctx context.Context, sub *model.Submission) {
	s.metrics.RecordStatusChanged(ctx, string(sub.Status))
	s.logger.Info("submission status updated", "submission_id", sub.ID, "status", sub.Status)
}

func (s *SubmissionServiceImpl) Respond(ctx context.Context, id, responseText string, sendEmail bool) (*RespondResult, error) {
	in := respondInput{ResponseText: strings.TrimSpace(responseText)}
	if err := s.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	// The delivery flag is written with the response so readers never see a
	// new reply next to the outcome of an older one.
	at := s.now()
	patch := model.SubmissionPatch{AdminResponse: &in.ResponseText, ResponseSentAt: &at}
	if sendEmail {
		undelivered := false
		patch.ResponseEmailSent = &undelivered
	}
	sub, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordResponseRecorded(ctx)
	s.logger.Info("submission response recorded", "submission_id", id, "send_email", sendEmail)

	if !sendEmail {
		return &RespondResult{Submission: sub, Delivery: DeliverySkipped}, nil
	}

	var sendErr error = mail.ErrNotConfigured
	if s.notifier != nil {
		sendErr = s.notifier.SendResponse(ctx, sub, in.ResponseText)
	}
	delivery := deliveryOf(sendErr)
	s.metrics.RecordEmailDispatched(ctx, metrics.KindResponse, string(delivery))

	delivered := delivery == DeliverySent
	if !delivered {
		return &RespondResult{Submission: sub, Delivery: delivery}, nil
	}

	// Only this call's response may be marked delivered.
	updated, err := s.repo.Update(ctx, id, model.SubmissionPatch{
		ResponseEmailSent: &delivered,
		IfResponseSentAt:  sub.ResponseSentAt,
	})
	switch {
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
		s.logger.Info("response replaced before email outcome was recorded", "submission_id", id, "error", err)
	case err != nil:
		s.logger.Error("failed to record response email outcome", "submission_id", id, "error", err)
	default:
		sub = updated
	}
	return &RespondResult{Submission: sub, EmailSent: delivered, Delivery: delivery}, nil
}

func (s *SubmissionServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.RecordSubmissionDeleted(ctx)
	s.logger.Info("submission deleted", "submission_id", id)
	return nil
}

func (s *SubmissionServiceImpl) Stats(ctx context.Context) (model.SubmissionStats, error) {
	return s.repo.Stats(ctx)
}

func (s *SubmissionServiceImpl) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for notifications: %w", ctx.Err())
	}
}

func deliveryOf(err error) Delivery {
	switch {
	case err == nil:
		return DeliverySent
	case errors.Is(err, mail.ErrNotConfigured):
		return DeliveryNotConfigured
	default:
		return DeliveryFailed
	}
}
