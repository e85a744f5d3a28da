package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"legalconnect.io/portal/internal/metrics"
	notifService "legalconnect.io/portal/internal/modules/notification/service"
	"legalconnect.io/portal/internal/modules/registration/dto"
	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/internal/modules/registration/repository"
	"legalconnect.io/portal/pkg/apperror"
	"legalconnect.io/portal/pkg/storage"
	"legalconnect.io/portal/pkg/token"
)

// MaxDocumentSize caps a single document upload.
const MaxDocumentSize = 10 << 20

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUploadsDisabled = errors.New("uploads are not available")
)

// DocumentFile is one file picked for a document slot.
type DocumentFile struct {
	Reader io.Reader
	Name   string
	Size   int64
}

// CatalogSource hands out the current selectable values.
type CatalogSource interface {
	Snapshot(ctx context.Context) (form.Catalog, error)
}

type RegistrationService interface {
	StartSession(ctx context.Context, prefill *form.Prefill) (*dto.StartSessionResponse, error)
	GetSession(ctx context.Context, id string) (*dto.SessionResponse, error)
	UpdateFields(ctx context.Context, id string, req dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	ToggleSelection(ctx context.Context, id, group, value string) (*dto.SessionResponse, error)
	UploadDocument(ctx context.Context, id, slot string, file DocumentFile) (*dto.SessionResponse, error)
	ClearDocument(ctx context.Context, id, slot string) (*dto.SessionResponse, error)
	Submit(ctx context.Context, id string) (*dto.SubmitResponse, error)
	EndSession(ctx context.Context, id string) error
}

type Options struct {
	Repo          repository.SessionRepository
	Storage       storage.DocumentStorage
	Accounts      form.AccountCreator
	Auth          form.Authenticator
	Catalogs      CatalogSource
	Notifications notifService.NotificationService
	Tokens        *token.Issuer
	Metrics       *metrics.Metrics
	Logger        *zap.Logger

	SessionTTL   time.Duration
	UploadFolder string
}

type registrationService struct {
	opts      Options
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

func NewRegistrationService(opts Options) RegistrationService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &registrationService{
		opts:      opts,
		sanitizer: bluemonday.StrictPolicy(),
		log:       opts.Logger.Named("registration"),
	}
}

// session is one call's view of a stored form.
type session struct {
	id       string
	fields   form.Fields
	form     *form.Form
	recorder *notifService.Recorder
	nav      *navigation
}

type navigation struct {
	route   string
	refresh bool
}

func (n *navigation) Push(route string) { n.route = route }
func (n *navigation) Refresh()          { n.refresh = true }

func (s *registrationService) StartSession(ctx context.Context, prefill *form.Prefill) (*dto.StartSessionResponse, error) {
	id := uuid.NewString()
	sess := s.newSession(id, form.DefaultFields())
	sess.form = form.InitFormState(prefill, sess.deps(s, nil))

	if err := s.opts.Repo.Create(ctx, id, sess.form.Fields()); err != nil {
		return nil, err
	}

	tokenString, expiresAt, err := s.opts.Tokens.Issue(id, token.AudienceRegistration, s.opts.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	s.opts.Metrics.ObserveSession()
	s.log.Debug("registration session started", zap.String("session_id", id))

	return &dto.StartSessionResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt,
		Session:   *sess.response(),
	}, nil
}

func (s *registrationService) GetSession(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	return sess.response(), nil
}

func (s *registrationService) UpdateFields(ctx context.Context, id string, req dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	sess, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}

	patch := req.ToPatch()
	if patch.Description != nil {
		clean := s.cleanDescription(*patch.Description)
		patch.Description = &clean
	}

	if err := sess.form.Update(patch); err != nil {
		return nil, badRequest(err)
	}
	if err := s.opts.Repo.SaveFields(ctx, id, sess.form.Fields()); err != nil {
		return nil, err
	}
	return sess.response(), nil
}

func (s *registrationService) ToggleSelection(ctx context.Context, id, group, value string) (*dto.SessionResponse, error) {
	g, err := form.ParseSelectionGroup(group)
	if err != nil {
		return nil, badRequest(err)
	}

	sess, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := sess.form.ToggleSelection(g, value); err != nil {
		return nil, badRequest(err)
	}
	if err := s.opts.Repo.SaveFields(ctx, id, sess.form.Fields()); err != nil {
		return nil, err
	}
	return sess.response(), nil
}

// UploadDocument stores file with the upload provider and records its URL in
// slot. Provider failures surface as a toast; the slot is left untouched.
func (s *registrationService) UploadDocument(ctx context.Context, id, slotName string, file DocumentFile) (*dto.SessionResponse, error) {
	slot, err := form.ParseDocumentSlot(slotName)
	if err != nil {
		return nil, badRequest(err)
	}

	sess, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*dto.SessionResponse, error) {
		sess.form.FailUpload(ctx, slot, err)
		s.opts.Metrics.ObserveUpload(string(slot), false)
		return sess.response(), nil
	}

	switch {
	case s.opts.Storage == nil:
		return fail(ErrUploadsDisabled)
	case file.Size > MaxDocumentSize:
		return fail(ErrFileTooLarge)
	}

	uploaded, err := s.opts.Storage.Upload(ctx, file.Reader, path.Join(s.opts.UploadFolder, id), file.Name)
	if err != nil {
		return fail(err)
	}

	result := []form.UploadResult{{URL: uploaded.URL, Name: uploaded.Name}}
	if err := sess.form.CompleteUpload(ctx, slot, result); err != nil {
		s.opts.Metrics.ObserveUpload(string(slot), false)
		return sess.response(), nil
	}

	if err := s.opts.Repo.SetDocument(ctx, id, slot, uploaded.URL); err != nil {
		s.discard(ctx, id, uploaded.URL)
		return nil, err
	}
	if err := s.opts.Repo.TrackUpload(ctx, id, uploaded.URL); err != nil {
		s.log.Warn("failed to track upload", zap.String("session_id", id), zap.Error(err))
	}
	s.opts.Metrics.ObserveUpload(string(slot), true)

	if previous := sess.fields.Documents.Get(slot); previous != "" && previous != uploaded.URL {
		s.discard(ctx, id, previous)
	}
	return sess.response(), nil
}

func (s *registrationService) ClearDocument(ctx context.Context, id, slotName string) (*dto.SessionResponse, error) {
	slot, err := form.ParseDocumentSlot(slotName)
	if err != nil {
		return nil, badRequest(err)
	}

	sess, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	previous := sess.fields.Documents.Get(slot)
	if err := sess.form.ClearDocument(slot); err != nil {
		return nil, badRequest(err)
	}
	if err := s.opts.Repo.SetDocument(ctx, id, slot, ""); err != nil {
		return nil, err
	}
	if previous != "" {
		s.discard(ctx, id, previous)
	}
	return sess.response(), nil
}

// Submit runs the create-account and sign-in workflow. The redis lock keeps
// a second submit of the same session out, on any replica, until this one
// returns. A completed registration ends the session.
func (s *registrationService) Submit(ctx context.Context, id string) (*dto.SubmitResponse, error) {
	lock, err := s.opts.Repo.AcquireSubmitLock(ctx, id)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, form.ErrSubmissionInFlight
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release submit lock", zap.String("session_id", id), zap.Error(err))
		}
	}()

	sess, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	res, err := sess.form.Submit(ctx)
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.ObserveSubmission(string(res.AccountType), string(res.Stage), string(res.FailedAt))

	if res.OK() {
		// The account owns the documents now.
		if err := s.opts.Repo.ForgetUploads(ctx, id, sess.fields.Documents.URLs()...); err != nil {
			s.log.Warn("failed to release tracked uploads", zap.String("session_id", id), zap.Error(err))
		}
		if err := s.opts.Repo.Delete(ctx, id); err != nil {
			s.log.Warn("failed to end completed session", zap.String("session_id", id), zap.Error(err))
		}
	}

	errs := res.Errors
	if errs == nil {
		errs = form.FieldErrors{}
	}
	return &dto.SubmitResponse{
		Stage:         res.Stage,
		FailedStage:   res.FailedAt,
		Redirect:      sess.nav.route,
		Refresh:       sess.nav.refresh,
		Errors:        errs,
		Notifications: sess.recorder.Toasts(),
	}, nil
}

func (s *registrationService) EndSession(ctx context.Context, id string) error {
	return s.opts.Repo.Delete(ctx, id)
}

// load restores the stored form. withCatalog attaches the catalog snapshot
// for operations that accept selection values.
func (s *registrationService) load(ctx context.Context, id string, withCatalog bool) (*session, error) {
	fields, err := s.opts.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(http.StatusNotFound, "registration session expired", err)
		}
		return nil, err
	}

	var catalog form.Catalog
	if withCatalog && s.opts.Catalogs != nil {
		catalog, err = s.opts.Catalogs.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalogs: %w", err)
		}
	}

	sess := s.newSession(id, fields)
	sess.form = form.Restore(fields, sess.deps(s, catalog))
	return sess, nil
}

func (s *registrationService) newSession(id string, fields form.Fields) *session {
	return &session{
		id:       id,
		fields:   fields,
		recorder: notifService.NewRecorder(s.opts.Notifications, id, s.log),
		nav:      &navigation{},
	}
}

func (sess *session) deps(s *registrationService, catalog form.Catalog) form.Deps {
	return form.Deps{
		Accounts:  s.opts.Accounts,
		Auth:      s.opts.Auth,
		Notifier:  sess.recorder,
		Navigator: sess.nav,
		Catalog:   catalog,
		Logger:    s.log.With(zap.String("session_id", sess.id)),
	}
}

func (sess *session) response() *dto.SessionResponse {
	fields := sess.form.Fields()
	errs := sess.form.Errors()
	if errs == nil {
		errs = form.FieldErrors{}
	}

	res := &dto.SessionResponse{
		ID:            sess.id,
		Fields:        dto.NewFieldsResponse(fields),
		Errors:        errs,
		CanSubmit:     sess.form.CanSubmit(),
		Notifications: sess.recorder.Toasts(),
	}
	if fields.AccountType == form.AccountLawyer {
		res.MissingDocuments = fields.Documents.Missing()
	}
	return res
}

// discard removes a file that is no longer referenced by any slot. A file
// that cannot be deleted stays tracked for the sweeper.
func (s *registrationService) discard(ctx context.Context, id, fileURL string) {
	if s.opts.Storage == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.opts.Storage.Delete(ctx, fileURL); err != nil {
		s.log.Warn("failed to delete replaced document", zap.String("url", fileURL), zap.Error(err))
		return
	}
	if err := s.opts.Repo.ForgetUploads(ctx, id, fileURL); err != nil {
		s.log.Warn("failed to forget replaced document", zap.String("url", fileURL), zap.Error(err))
	}
}

func (s *registrationService) cleanDescription(d string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(d)))
}

func badRequest(err error) error {
	return apperror.New(http.StatusBadRequest, err.Error(), err)
}
