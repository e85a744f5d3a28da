package dto

import (
	"legalconnect.io/portal/internal/modules/registration/form"
)

type StartSessionRequest struct {
	Prefill *form.Prefill `json:"prefill"`
}

type StartSessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"`
	Session   SessionResponse `json:"session"`
}

// UpdateSessionRequest is a partial edit; absent members keep their value.
type UpdateSessionRequest struct {
	Email           *string  `json:"email" binding:"omitempty,max=254"`
	Password        *string  `json:"password" binding:"omitempty,max=128"`
	ConfirmPassword *string  `json:"confirm_password" binding:"omitempty,max=128"`
	PhoneNumber     *string  `json:"phone_number" binding:"omitempty,max=32"`
	FullName        *string  `json:"full_name" binding:"omitempty,max=200"`
	AccountType     *string  `json:"account_type"`
	Description     *string  `json:"description" binding:"omitempty,max=4000"`
	Languages       []string `json:"languages"`
	Specialties     []string `json:"specialties"`
	Courts          []string `json:"courts"`
}

func (r UpdateSessionRequest) ToPatch() form.FieldsPatch {
	return form.FieldsPatch{
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
		PhoneNumber:     r.PhoneNumber,
		FullName:        r.FullName,
		AccountType:     r.AccountType,
		Description:     r.Description,
		Languages:       r.Languages,
		Specialties:     r.Specialties,
		Courts:          r.Courts,
	}
}

type ToggleSelectionRequest struct {
	Value string `json:"value" binding:"required"`
}

// FieldsResponse is the session state the browser may see. Passwords are
// never echoed back.
type FieldsResponse struct {
	Email       string            `json:"email"`
	HasPassword bool              `json:"has_password"`
	PhoneNumber string            `json:"phone_number"`
	FullName    string            `json:"full_name"`
	AccountType form.AccountType  `json:"account_type"`
	Description string            `json:"description"`
	Languages   []string          `json:"languages"`
	Specialties []string          `json:"specialties"`
	Courts      []string          `json:"courts"`
	Documents   form.DocumentURLs `json:"documents"`
}

type SessionResponse struct {
	ID               string              `json:"id"`
	Fields           FieldsResponse      `json:"fields"`
	Errors           form.FieldErrors    `json:"errors"`
	CanSubmit        bool                `json:"can_submit"`
	MissingDocuments []form.DocumentSlot `json:"missing_documents,omitempty"`
	Notifications    []form.Toast        `json:"notifications"`
}

type SubmitResponse struct {
	Stage         form.Stage       `json:"stage"`
	FailedStage   form.Stage       `json:"failed_stage,omitempty"`
	Redirect      string           `json:"redirect,omitempty"`
	Refresh       bool             `json:"refresh"`
	Errors        form.FieldErrors `json:"errors"`
	Notifications []form.Toast     `json:"notifications"`
}

func NewFieldsResponse(f form.Fields) FieldsResponse {
	return FieldsResponse{
		Email:       f.Email,
		HasPassword: f.Password != "",
		PhoneNumber: f.PhoneNumber,
		FullName:    f.FullName,
		AccountType: f.AccountType,
		Description: f.Description,
		Languages:   nonNil(f.Languages),
		Specialties: nonNil(f.Specialties),
		Courts:      nonNil(f.Courts),
		Documents:   f.Documents,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
