package model

import "testing"

func TestContactInput_NormalizeAndNewSubmission(t *testing.T) {
	in := ContactInput{
		Name:    "  Ada ",
		Email:   " ada@x.io",
		Phone:   "   ",
		Company: " Acme ",
		Message: "\nhello\n",
	}.Normalize()

	if in.Name != "Ada" || in.Email != "ada@x.io" || in.Phone != "" || in.Company != "Acme" || in.Message != "hello" {
		t.Fatalf("unexpected normalized input: %+v", in)
	}

	s := in.NewSubmission()
	if s.Status != StatusPending {
		t.Errorf("expected pending, got %q", s.Status)
	}
	if s.Phone != nil {
		t.Errorf("empty phone should be absent, got %q", *s.Phone)
	}
	if s.Company == nil || *s.Company != "Acme" {
		t.Errorf("expected company Acme, got %v", s.Company)
	}
	if s.ID != "" {
		t.Error("id is assigned by the store")
	}
}
