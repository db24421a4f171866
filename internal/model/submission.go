package model

import (
	"errors"
	"strings"
	"time"
)

// SubmissionStatus is the moderation state of a contact submission.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusResponded SubmissionStatus = "responded"
	StatusArchived  SubmissionStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusResponded, StatusArchived:
		return true
	}
	return false
}

// Toggled returns the status the toggle action moves s to:
// responded flips back to pending, everything else becomes responded.
func (s SubmissionStatus) Toggled() SubmissionStatus {
	if s == StatusResponded {
		return StatusPending
	}
	return StatusResponded
}

// ParseSubmissionStatus converts user input into a SubmissionStatus.
// Matching is exact after trimming surrounding whitespace.
func ParseSubmissionStatus(s string) (SubmissionStatus, bool) {
	st := SubmissionStatus(strings.TrimSpace(s))
	return st, st.Valid()
}

// Submission is a contact form submission and its moderation state.
type Submission struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Phone       *string          `json:"phone"`
	Company     *string          `json:"company"`
	Message     string           `json:"message"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`

	// EmailSent records whether the sales inbox was notified.
	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at"`

	AdminResponse     *string    `json:"admin_response"`
	ResponseSentAt    *time.Time `json:"response_sent_at"`
	ResponseEmailSent *bool      `json:"response_email_sent"`
}

// Clone returns a deep copy of s.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	c.Phone = clonePtr(s.Phone)
	c.Company = clonePtr(s.Company)
	c.EmailSentAt = clonePtr(s.EmailSentAt)
	c.AdminResponse = clonePtr(s.AdminResponse)
	c.ResponseSentAt = clonePtr(s.ResponseSentAt)
	c.ResponseEmailSent = clonePtr(s.ResponseEmailSent)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SubmissionListOptions filters the submission listing.
type SubmissionListOptions struct {
	// Status restricts the listing to one status. Empty or "all" lists everything.
	Status SubmissionStatus
}

// ErrInvalidPatch is returned for patches that would break a submission invariant.
var ErrInvalidPatch = errors.New("invalid submission patch")

// SubmissionPatch lists the mutable fields of a submission. Nil fields are left unchanged.
// A patch that writes a response also replaces ResponseEmailSent, clearing it
// when nil, so a reply never inherits the delivery flag of an earlier one.
type SubmissionPatch struct {
	Status            *SubmissionStatus
	EmailSent         *bool
	EmailSentAt       *time.Time
	AdminResponse     *string
	ResponseSentAt    *time.Time
	ResponseEmailSent *bool

	// IfResponseSentAt makes the update conditional on the stored
	// response_sent_at being exactly this instant.
	IfResponseSentAt *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p SubmissionPatch) IsEmpty() bool {
	return p.Status == nil && p.EmailSent == nil && p.EmailSentAt == nil &&
		p.AdminResponse == nil && p.ResponseSentAt == nil && p.ResponseEmailSent == nil
}

// Validate checks the patch against the submission invariants:
// admin_response and response_sent_at are always written together.
func (p SubmissionPatch) Validate() error {
	if p.IsEmpty() {
		return ErrInvalidPatch
	}
	if (p.AdminResponse == nil) != (p.ResponseSentAt == nil) {
		return ErrInvalidPatch
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidPatch
	}
	return nil
}

// Matches reports whether s satisfies the patch precondition.
func (p SubmissionPatch) Matches(s *Submission) bool {
	if p.IfResponseSentAt == nil {
		return true
	}
	return s.ResponseSentAt != nil && s.ResponseSentAt.Equal(*p.IfResponseSentAt)
}

// Apply writes the non-nil patch fields onto s.
func (p SubmissionPatch) Apply(s *Submission) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.EmailSent != nil {
		s.EmailSent = *p.EmailSent
	}
	if p.EmailSentAt != nil {
		s.EmailSentAt = clonePtr(p.EmailSentAt)
	}
	if p.AdminResponse != nil {
		s.AdminResponse = clonePtr(p.AdminResponse)
		s.ResponseSentAt = clonePtr(p.ResponseSentAt)
		s.ResponseEmailSent = clonePtr(p.ResponseEmailSent)
	} else if p.ResponseEmailSent != nil {
		s.ResponseEmailSent = clonePtr(p.ResponseEmailSent)
	}
}

// SubmissionStats is the dashboard aggregate over all submissions.
// Total always equals Pending + Responded + Archived.
type SubmissionStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Responded int `json:"responded"`
	Archived  int `json:"archived"`
}

// Count adds one submission with the given status to the aggregate.
func (s *SubmissionStats) Count(status SubmissionStatus) {
	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusResponded:
		s.Responded++
	case StatusArchived:
		s.Archived++
	}
}
