package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Mail kinds and outcomes used as attribute values on emailsDispatched.
const (
	KindResponse            = "response"
	KindContactNotification = "contact_notification"

	OutcomeSent          = "sent"
	OutcomeNotConfigured = "not_configured"
	OutcomeFailed        = "failed"
)

type Metrics struct {
	submissionsReceived metric.Int64Counter
	responsesRecorded   metric.Int64Counter
	emailsDispatched    metric.Int64Counter
	statusChanged       metric.Int64Counter
	submissionsDeleted  metric.Int64Counter
}

// NewFromGlobal creates Metrics on the globally registered meter provider.
func NewFromGlobal(serviceName string) (*Metrics, error) {
	return New(otel.Meter(serviceName))
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.submissionsReceived, err = meter.Int64Counter(
		"contact.submissions.received",
		metric.WithDescription("Total number of contact submissions accepted"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	m.responsesRecorded, err = meter.Int64Counter(
		"contact.responses.recorded",
		metric.WithDescription("Total number of admin responses recorded"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	m.emailsDispatched, err = meter.Int64Counter(
		"contact.emails.dispatched",
		metric.WithDescription("Total number of email dispatch attempts by kind and outcome"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, err
	}

	m.statusChanged, err = meter.Int64Counter(
		"contact.status.changed",
		metric.WithDescription("Total number of submission status changes by new status"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	m.submissionsDeleted, err = meter.Int64Counter(
		"contact.submissions.deleted",
		metric.WithDescription("Total number of submissions deleted"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordSubmissionReceived(ctx context.Context) {
	if m != nil && m.submissionsReceived != nil {
		m.submissionsReceived.Add(ctx, 1)
	}
}

func (m *Metrics) RecordResponseRecorded(ctx context.Context) {
	if m != nil && m.responsesRecorded != nil {
		m.responsesRecorded.Add(ctx, 1)
	}
}

func (m *Metrics) RecordEmailDispatched(ctx context.Context, kind, outcome string) {
	if m != nil && m.emailsDispatched != nil {
		m.emailsDispatched.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

func (m *Metrics) RecordStatusChanged(ctx context.Context, status string) {
	if m != nil && m.statusChanged != nil {
		m.statusChanged.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func (m *Metrics) RecordSubmissionDeleted(ctx context.Context) {
	if m != nil && m.submissionsDeleted != nil {
		m.submissionsDeleted.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
