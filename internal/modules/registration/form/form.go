// Package form holds the registration form controller: field state,
// validation, document slots and the create-account/sign-in workflow.
package form

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Deps struct {
	Accounts  AccountCreator
	Auth      Authenticator
	Notifier  Notifier
	Navigator Navigator
	// Catalog is optional; without it any selection value is accepted.
	Catalog Catalog
	Logger  *zap.Logger
}

type Form struct {
	mu         sync.Mutex
	fields     Fields
	submitting bool
	submitErrs FieldErrors
	deps       Deps
}

// InitFormState builds a fresh form. prefill may be nil.
func InitFormState(prefill *Prefill, deps Deps) *Form {
	fields := DefaultFields()
	if prefill != nil {
		fields.Email = prefill.Email
		fields.Password = prefill.Password
	}
	return Restore(fields, deps)
}

// Restore rebuilds a form around previously stored fields.
func Restore(fields Fields, deps Deps) *Form {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Form{fields: fields.Clone(), deps: deps}
}

func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields.Clone()
}

func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Update applies a partial edit. Any error recorded by a previous submit is
// dropped, the registrant is typing again.
func (f *Form) Update(patch FieldsPatch) error {
	var accountType AccountType
	if patch.AccountType != nil {
		t, err := ParseAccountType(*patch.AccountType)
		if err != nil {
			return err
		}
		accountType = t
	}

	selections := map[SelectionGroup][]string{
		GroupLanguages:   patch.Languages,
		GroupSpecialties: patch.Specialties,
		GroupCourts:      patch.Courts,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for group, values := range selections {
		if err := f.checkOptions(group, values); err != nil {
			return err
		}
	}

	setString(&f.fields.Email, patch.Email)
	setString(&f.fields.Password, patch.Password)
	setString(&f.fields.ConfirmPassword, patch.ConfirmPassword)
	setString(&f.fields.PhoneNumber, patch.PhoneNumber)
	setString(&f.fields.FullName, patch.FullName)
	setString(&f.fields.Description, patch.Description)
	if patch.AccountType != nil {
		f.fields.AccountType = accountType
	}
	for group, values := range selections {
		if values != nil {
			*f.fields.selection(group) = dedupe(values)
		}
	}
	f.submitErrs = nil
	return nil
}

func (f *Form) SetAccountType(t AccountType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields.AccountType = t
	f.submitErrs = nil
}

// Errors re-validates the current fields for the selected account type and
// adds any error recorded by the last submit attempt.
func (f *Form) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	errs := validateFields(f.fields)
	for k, v := range f.submitErrs {
		if errs == nil {
			errs = FieldErrors{}
		}
		errs[k] = v
	}
	return errs
}

// CanSubmit reports whether the submit control is enabled.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return false
	}
	return len(validateFields(f.fields)) == 0
}

// ToggleSelection flips the membership of value in group. Other members keep
// their place.
func (f *Form) ToggleSelection(group SelectionGroup, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.fields.selection(group)
	if set == nil {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	return f.setChecked(group, value, !contains(*set, value))
}

// SetSelection is the checkbox onCheckedChange form of ToggleSelection.
func (f *Form) SetSelection(group SelectionGroup, value string, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fields.selection(group) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	return f.setChecked(group, value, checked)
}

func (f *Form) setChecked(group SelectionGroup, value string, checked bool) error {
	set := f.fields.selection(group)
	if checked {
		if err := f.checkOptions(group, []string{value}); err != nil {
			return err
		}
		if !contains(*set, value) {
			*set = append(*set, value)
		}
	} else {
		kept := (*set)[:0:0]
		for _, v := range *set {
			if v != value {
				kept = append(kept, v)
			}
		}
		*set = kept
	}
	f.submitErrs = nil
	return nil
}

func (f *Form) checkOptions(group SelectionGroup, values []string) error {
	if f.deps.Catalog == nil {
		return nil
	}
	for _, v := range values {
		if !f.deps.Catalog.Contains(group, v) {
			return fmt.Errorf("%w: %s %q", ErrUnknownOption, group, v)
		}
	}
	return nil
}

// CompleteUpload stores the URL of the first uploaded file in slot.
func (f *Form) CompleteUpload(ctx context.Context, slot DocumentSlot, results []UploadResult) error {
	if len(results) == 0 || strings.TrimSpace(results[0].URL) == "" {
		f.FailUpload(ctx, slot, ErrEmptyUpload)
		return ErrEmptyUpload
	}

	f.mu.Lock()
	if f.fields.Documents.ptr(slot) == nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	f.fields.Documents.Set(slot, results[0].URL)
	f.mu.Unlock()

	f.deps.Logger.Debug("document uploaded", zap.String("slot", string(slot)))
	return nil
}

// FailUpload reports an upload error for slot. No slot is modified.
func (f *Form) FailUpload(ctx context.Context, slot DocumentSlot, err error) {
	f.deps.Logger.Warn("document upload failed", zap.String("slot", string(slot)), zap.Error(err))
	f.deps.Notifier.Notify(ctx, Toast{Title: "ERROR! " + err.Error()})
}

// ClearDocument empties slot so a different file can be chosen.
func (f *Form) ClearDocument(slot DocumentSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fields.Documents.ptr(slot) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	f.fields.Documents.Set(slot, "")
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
