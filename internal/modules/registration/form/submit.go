package form

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Stage names a step of the submit workflow.
type Stage string

const (
	StageValidating Stage = "validating"
	StageCreating   Stage = "creating"
	StageSigningIn  Stage = "signing_in"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

const (
	HomeRoute = "/"

	genericFailure   = "Something went wrong. Please try again."
	signInFailTitle  = "Couldn't sign you in"
	signInFailDetail = "Your account was created but we could not sign you in. Please sign in manually."
)

// Result is the outcome of one submit attempt. Stage is StageDone or
// StageFailed; FailedAt tells which step failed.
type Result struct {
	AccountType AccountType `json:"account_type"`
	Stage       Stage       `json:"stage"`
	FailedAt    Stage       `json:"failed_stage,omitempty"`
	Err         error       `json:"-"`
	Errors      FieldErrors `json:"errors,omitempty"`
}

func (r Result) OK() bool { return r.Stage == StageDone }

func failed(t AccountType, at Stage, err error) Result {
	return Result{AccountType: t, Stage: StageFailed, FailedAt: at, Err: err}
}

// Submit validates the form and runs create-account followed by sign-in.
// Only one submit may be in flight; a concurrent call returns
// ErrSubmissionInFlight without touching the network. The submitting flag is
// cleared on every return path.
func (f *Form) Submit(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Result{}, ErrSubmissionInFlight
	}
	f.submitting = true
	fields := f.fields.Clone()
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	input := fields.Input()
	if errs := validateFields(fields); len(errs) > 0 {
		res := failed(fields.AccountType, StageValidating, fmt.Errorf("%d invalid fields", len(errs)))
		res.Errors = errs
		return res, nil
	}

	creds := input.credentials()
	if creds.Password != creds.ConfirmPassword {
		mismatch := FieldErrors{"confirm_password": "Password don't match!"}
		f.mu.Lock()
		f.submitErrs = mismatch
		f.mu.Unlock()

		res := failed(input.AccountType(), StageValidating, ErrPasswordMismatch)
		res.Errors = mismatch
		return res, nil
	}

	var res Result
	switch in := input.(type) {
	case ClientInput:
		res = f.submitClient(ctx, in)
	case LawyerInput:
		res = f.submitLawyer(ctx, in)
	}

	log := f.deps.Logger.With(zap.String("account_type", string(res.AccountType)))
	if !res.OK() {
		log.Info("registration failed", zap.String("stage", string(res.FailedAt)), zap.Error(res.Err))
		return res, nil
	}

	log.Info("registration completed")
	f.deps.Navigator.Push(HomeRoute)
	f.deps.Navigator.Refresh()
	return res, nil
}

func (f *Form) submitClient(ctx context.Context, in ClientInput) Result {
	err := f.deps.Accounts.CreateClient(ctx, ClientAccount{
		Email:       in.Email,
		Password:    in.Password,
		PhoneNumber: in.PhoneNumber,
		FullName:    in.FullName,
	})
	if err != nil {
		f.deps.Notifier.Notify(ctx, Toast{
			Title:       "Couldn't create account",
			Description: userMessage(err, genericFailure),
			Variant:     VariantDestructive,
		})
		return failed(AccountClient, StageCreating, err)
	}

	if err := f.deps.Auth.Login(ctx, in.Email, in.Password); err != nil {
		f.notifySignInFailure(ctx)
		return failed(AccountClient, StageSigningIn, err)
	}

	return Result{AccountType: AccountClient, Stage: StageDone}
}

func (f *Form) submitLawyer(ctx context.Context, in LawyerInput) Result {
	err := f.deps.Accounts.CreateLawyer(ctx, LawyerAccount{
		Email:         in.Email,
		Password:      in.Password,
		ID:            in.Documents.IdentificationCard,
		Qualification: in.Documents.Qualification,
		CV:            in.Documents.CurriculumVitae,
		Resume:        in.Documents.Resume,
		Courts:        in.Courts,
		Languages:     in.Languages,
		Specialties:   in.Specialties,
		Photo:         in.Documents.Photo,
		Description:   in.Description,
		PhoneNumber:   in.PhoneNumber,
		FullName:      in.FullName,
	})
	if err != nil {
		f.deps.Notifier.Notify(ctx, Toast{
			Title:       "Couldn't create account!",
			Description: userMessage(err, genericFailure),
			Variant:     VariantDestructive,
		})
		return failed(AccountLawyer, StageCreating, err)
	}

	// The created account is not rolled back when sign-in fails.
	signIn, err := f.deps.Auth.SignInWithCredentials(ctx, in.Email, in.Password)
	if err == nil && !signIn.OK {
		err = ErrSignInRejected
	}
	if err != nil {
		f.notifySignInFailure(ctx)
		return failed(AccountLawyer, StageSigningIn, err)
	}

	return Result{AccountType: AccountLawyer, Stage: StageDone}
}

func (f *Form) notifySignInFailure(ctx context.Context) {
	f.deps.Notifier.Notify(ctx, Toast{
		Title:       signInFailTitle,
		Description: signInFailDetail,
		Variant:     VariantDestructive,
	})
}
