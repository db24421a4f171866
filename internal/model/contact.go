package model

import "strings"

// ContactInput is the visitor-supplied part of a submission.
type ContactInput struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"omitempty,max=20"`
	Company string `json:"company" validate:"omitempty,max=100"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

// Normalize trims surrounding whitespace from every field.
func (in ContactInput) Normalize() ContactInput {
	return ContactInput{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Company: strings.TrimSpace(in.Company),
		Message: strings.TrimSpace(in.Message),
	}
}

// NewSubmission builds a pending submission from validated input.
// Empty optional fields are stored as absent.
func (in ContactInput) NewSubmission() *Submission {
	s := &Submission{
		Name:    in.Name,
		Email:   in.Email,
		Message: in.Message,
		Status:  StatusPending,
	}
	if in.Phone != "" {
		phone := in.Phone
		s.Phone = &phone
	}
	if in.Company != "" {
		company := in.Company
		s.Company = &company
	}
	return s
}
