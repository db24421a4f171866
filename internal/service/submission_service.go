package service

import (
	"context"

	"github.com/drilldown/backend/internal/model"
)

// Delivery is the outcome of an optional email dispatch.
type Delivery string

const (
	DeliverySkipped       Delivery = "skipped"
	DeliverySent          Delivery = "sent"
	DeliveryNotConfigured Delivery = "not_configured"
	DeliveryFailed        Delivery = "failed"
)

// RespondResult is returned by SubmissionService.Respond.
type RespondResult struct {
	Submission *model.Submission
	// EmailSent is true only when the dispatcher confirmed delivery.
	EmailSent bool
	Delivery  Delivery
}

// Notifier sends the mail produced by the submission lifecycle.
type Notifier interface {
	SendResponse(ctx context.Context, sub *model.Submission, responseText string) error
	SendContactNotification(ctx context.Context, sub *model.Submission) error
}

// SubmissionService defines the contact submission lifecycle.
type SubmissionService interface {
	// SubmitContact validates visitor input and stores a pending submission.
	// Invalid input yields a *ValidationError naming every offending field.
	SubmitContact(ctx context.Context, in model.ContactInput) (*model.Submission, error)

	Get(ctx context.Context, id string) (*model.Submission, error)
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)

	// SetStatus moves a submission to any of the known statuses.
	SetStatus(ctx context.Context, id, status string) (*model.Submission, error)

	// ToggleStatus flips responded to pending and anything else to responded.
	ToggleStatus(ctx context.Context, id string) (*model.Submission, error)

	// Respond records the admin response and, if sendEmail is set, emails it
	// to the submitter. A failed or unconfigured dispatch never undoes the
	// recorded response.
	Respond(ctx context.Context, id, responseText string, sendEmail bool) (*RespondResult, error)

	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.SubmissionStats, error)

	// Close waits for background notifications to finish or ctx to expire.
	Close(ctx context.Context) error
}
