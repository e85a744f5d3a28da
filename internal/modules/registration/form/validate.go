package form

import (
	"legalconnect.io/portal/pkg/validator"
)

// RegistrationInput is the validated shape of a submission. Each account
// type carries only the fields it requires.
type RegistrationInput interface {
	AccountType() AccountType
	credentials() ClientInput
}

type ClientInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,min=6"`
	PhoneNumber     string `json:"phone_number" validate:"required,et_phone"`
	FullName        string `json:"full_name" validate:"required,min=2"`
}

func (ClientInput) AccountType() AccountType { return AccountClient }

func (c ClientInput) credentials() ClientInput { return c }

type LawyerInput struct {
	ClientInput
	Description string       `json:"description"`
	Languages   []string     `json:"languages" validate:"min=1,dive,required"`
	Specialties []string     `json:"specialties" validate:"min=1,dive,required"`
	Courts      []string     `json:"courts" validate:"min=1,dive,required"`
	Documents   DocumentURLs `json:"documents"`
}

func (LawyerInput) AccountType() AccountType { return AccountLawyer }

func (l LawyerInput) credentials() ClientInput { return l.ClientInput }

// Input projects the flat fields onto the variant selected by AccountType.
// It returns nil when no account type has been chosen yet.
func (f Fields) Input() RegistrationInput {
	common := ClientInput{
		Email:           f.Email,
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
		PhoneNumber:     f.PhoneNumber,
		FullName:        f.FullName,
	}

	switch f.AccountType {
	case AccountClient:
		return common
	case AccountLawyer:
		return LawyerInput{
			ClientInput: common,
			Description: f.Description,
			Languages:   append([]string(nil), f.Languages...),
			Specialties: append([]string(nil), f.Specialties...),
			Courts:      append([]string(nil), f.Courts...),
			Documents:   f.Documents,
		}
	}
	return nil
}

// Validate applies the per-field rules of the input's variant. Password
// confirmation equality is checked by Submit only.
func Validate(input RegistrationInput) FieldErrors {
	var errs map[string]string
	switch in := input.(type) {
	case ClientInput:
		errs = validator.Struct(in)
	case LawyerInput:
		errs = validator.Struct(in)
	case nil:
		return FieldErrors{"account_type": "Required"}
	}
	return FieldErrors(errs)
}

// validateFields validates whatever variant the fields currently select.
// With no account type the common fields are still checked so inline errors
// show up before the registrant picks a type.
func validateFields(f Fields) FieldErrors {
	input := f.Input()
	if input != nil {
		return Validate(input)
	}
	common := ClientInput{
		Email:           f.Email,
		Password:        f.Password,
		ConfirmPassword: f.ConfirmPassword,
		PhoneNumber:     f.PhoneNumber,
		FullName:        f.FullName,
	}
	errs := Validate(common)
	if errs == nil {
		errs = FieldErrors{}
	}
	errs["account_type"] = "Required"
	return errs
}
