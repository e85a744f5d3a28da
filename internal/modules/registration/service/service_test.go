package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalconnect.io/portal/internal/metrics"
	"legalconnect.io/portal/internal/modules/registration/dto"
	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/pkg/apperror"
	"legalconnect.io/portal/pkg/token"
)

type harness struct {
	repo     *memoryRepo
	storage  *fakeStorage
	accounts *fakeAccounts
	auth     *fakeAuth
	metrics  *metrics.Metrics
	tokens   *token.Issuer
	svc      RegistrationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     newMemoryRepo(),
		storage:  &fakeStorage{},
		accounts: &fakeAccounts{},
		auth:     &fakeAuth{signIn: form.SignInResult{OK: true}},
		metrics:  metrics.New(),
		tokens:   token.NewIssuer("test-secret", time.Hour),
	}
	h.svc = NewRegistrationService(Options{
		Repo:     h.repo,
		Storage:  h.storage,
		Accounts: h.accounts,
		Auth:     h.auth,
		Catalogs: catalogSource{catalog: staticCatalog{
			form.GroupLanguages:   {"Amharic", "English"},
			form.GroupSpecialties: {"criminal_law", "family_law"},
			form.GroupCourts:      {"administrative_court", "supreme_court"},
		}},
		Tokens:       h.tokens,
		Metrics:      h.metrics,
		SessionTTL:   30 * time.Minute,
		UploadFolder: "registrations",
	})
	return h
}

func ptr(s string) *string { return &s }

func (h *harness) start(t *testing.T) string {
	t.Helper()
	res, err := h.svc.StartSession(context.Background(), nil)
	require.NoError(t, err)
	return res.Session.ID
}

func (h *harness) fillClient(t *testing.T, id string) {
	t.Helper()
	_, err := h.svc.UpdateFields(context.Background(), id, dto.UpdateSessionRequest{
		Email:           ptr("abebe@example.com"),
		Password:        ptr("abc123"),
		ConfirmPassword: ptr("abc123"),
		PhoneNumber:     ptr("0911223344"),
		FullName:        ptr("Abebe Bikila"),
		AccountType:     ptr(string(form.AccountClient)),
	})
	require.NoError(t, err)
}

func (h *harness) upload(t *testing.T, id string, slot form.DocumentSlot) *dto.SessionResponse {
	t.Helper()
	res, err := h.svc.UploadDocument(context.Background(), id, string(slot), DocumentFile{
		Reader: strings.NewReader("%PDF-1.7"),
		Name:   string(slot) + ".pdf",
		Size:   8,
	})
	require.NoError(t, err)
	return res
}

func statusOf(err error) int {
	return apperror.MapErrorToStatus(err)
}

func TestStartSession(t *testing.T) {
	h := newHarness(t)

	res, err := h.svc.StartSession(context.Background(), &form.Prefill{Email: "abebe@example.com", Password: "abc123"})
	require.NoError(t, err)

	subject, err := h.tokens.Parse(res.Token, token.AudienceRegistration)
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, subject)
	assert.Greater(t, res.ExpiresAt, time.Now().Unix())

	fields := res.Session.Fields
	assert.Equal(t, "abebe@example.com", fields.Email)
	assert.True(t, fields.HasPassword)
	assert.Equal(t, []string{"Amharic"}, fields.Languages)
	assert.Equal(t, "Required", res.Session.Errors["account_type"])
	assert.False(t, res.Session.CanSubmit)

	stored := h.repo.stored(res.Session.ID)
	assert.Equal(t, "abc123", stored.Password)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Sessions))
}

func TestGetSessionExpired(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.GetSession(context.Background(), "gone")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestUpdateFields(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.fillClient(t, id)

	res, err := h.svc.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.True(t, res.CanSubmit)
	assert.Nil(t, res.MissingDocuments)

	t.Run("description is sanitised", func(t *testing.T) {
		res, err := h.svc.UpdateFields(context.Background(), id, dto.UpdateSessionRequest{
			Description: ptr("  <b>Ten years</b> of <a href=\"x\">litigation</a> &amp; advice "),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ten years of litigation & advice", res.Fields.Description)
	})

	t.Run("unknown option is rejected", func(t *testing.T) {
		_, err := h.svc.UpdateFields(context.Background(), id, dto.UpdateSessionRequest{
			Languages: []string{"Klingon"},
		})
		assert.ErrorIs(t, err, form.ErrUnknownOption)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
		assert.Equal(t, []string{"Amharic"}, h.repo.stored(id).Languages)
	})

	t.Run("unknown account type is rejected", func(t *testing.T) {
		_, err := h.svc.UpdateFields(context.Background(), id, dto.UpdateSessionRequest{AccountType: ptr("ADMIN")})
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})
}

func TestToggleSelection(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)

	res, err := h.svc.ToggleSelection(context.Background(), id, "languages", "English")
	require.NoError(t, err)
	assert.Equal(t, []string{"Amharic", "English"}, res.Fields.Languages)
	assert.Equal(t, []string{"Amharic", "English"}, h.repo.stored(id).Languages)

	res, err = h.svc.ToggleSelection(context.Background(), id, "languages", "Amharic")
	require.NoError(t, err)
	assert.Equal(t, []string{"English"}, res.Fields.Languages)

	_, err = h.svc.ToggleSelection(context.Background(), id, "hobbies", "chess")
	assert.ErrorIs(t, err, form.ErrUnknownGroup)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = h.svc.ToggleSelection(context.Background(), id, "courts", "moon_court")
	assert.ErrorIs(t, err, form.ErrUnknownOption)
}

func TestCatalogUnavailable(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.svc = NewRegistrationService(Options{Repo: h.repo, Catalogs: catalogSource{err: errProvider}, Tokens: h.tokens})

	_, err := h.svc.ToggleSelection(context.Background(), id, "languages", "English")
	assert.ErrorIs(t, err, errProvider)
}

func TestUploadDocument(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)

	res := h.upload(t, id, form.SlotPhoto)
	photo := h.repo.stored(id).Documents.Photo
	assert.True(t, strings.HasPrefix(photo, "https://files.example.com/registrations/"+id+"/"))
	assert.Equal(t, photo, res.Fields.Documents.Photo)
	assert.Empty(t, res.Notifications)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Uploads.WithLabelValues("photo", "ok")))

	t.Run("replacing discards the old file", func(t *testing.T) {
		h.upload(t, id, form.SlotPhoto)
		assert.Equal(t, []string{photo}, h.storage.deleted)
		assert.NotEqual(t, photo, h.repo.stored(id).Documents.Photo)
		assert.Equal(t, []string{h.repo.stored(id).Documents.Photo}, h.repo.tracked())
	})

	t.Run("unknown slot", func(t *testing.T) {
		_, err := h.svc.UploadDocument(context.Background(), id, "passport", DocumentFile{Reader: strings.NewReader("x")})
		assert.ErrorIs(t, err, form.ErrUnknownSlot)
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})
}

func TestUploadDocumentFailures(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.upload(t, id, form.SlotIdentificationCard)
	before := h.repo.stored(id).Documents

	t.Run("too large", func(t *testing.T) {
		res, err := h.svc.UploadDocument(context.Background(), id, "photo", DocumentFile{
			Reader: strings.NewReader(""),
			Name:   "huge.png",
			Size:   MaxDocumentSize + 1,
		})
		require.NoError(t, err)
		require.Len(t, res.Notifications, 1)
		assert.Equal(t, "ERROR! file too large", res.Notifications[0].Title)
		assert.Equal(t, before, h.repo.stored(id).Documents)
	})

	t.Run("provider error", func(t *testing.T) {
		h.storage.err = errProvider
		defer func() { h.storage.err = nil }()

		res, err := h.svc.UploadDocument(context.Background(), id, "qualification", DocumentFile{
			Reader: strings.NewReader("x"),
			Name:   "degree.pdf",
			Size:   1,
		})
		require.NoError(t, err)
		require.Len(t, res.Notifications, 1)
		assert.Equal(t, "ERROR! provider unavailable", res.Notifications[0].Title)
		assert.Equal(t, before, h.repo.stored(id).Documents)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Uploads.WithLabelValues("photo", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Uploads.WithLabelValues("qualification", "error")))
}

func TestClearDocument(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.upload(t, id, form.SlotResume)
	resume := h.repo.stored(id).Documents.Resume

	res, err := h.svc.ClearDocument(context.Background(), id, "resume")
	require.NoError(t, err)
	assert.Empty(t, res.Fields.Documents.Resume)
	assert.Empty(t, h.repo.stored(id).Documents.Resume)
	assert.Equal(t, []string{resume}, h.storage.deleted)
	assert.Empty(t, h.repo.tracked())
}

func TestSubmitClient(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.fillClient(t, id)

	res, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, form.StageDone, res.Stage)
	assert.Equal(t, "/", res.Redirect)
	assert.True(t, res.Refresh)
	assert.Empty(t, res.Errors)
	require.Len(t, h.accounts.clients, 1)
	assert.Equal(t, "abebe@example.com", h.accounts.clients[0].Email)

	_, err = h.svc.GetSession(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "completed session ends")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Submissions.WithLabelValues("CLIENT", "done", "")))
}

func TestSubmitFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.fillClient(t, id)
	_, err := h.svc.UpdateFields(context.Background(), id, dto.UpdateSessionRequest{ConfirmPassword: ptr("abc124")})
	require.NoError(t, err)

	res, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, form.StageFailed, res.Stage)
	assert.Equal(t, form.StageValidating, res.FailedStage)
	assert.Equal(t, "Password don't match!", res.Errors["confirm_password"])
	assert.Empty(t, res.Redirect)
	assert.Empty(t, h.accounts.clients)

	_, err = h.svc.GetSession(context.Background(), id)
	assert.NoError(t, err)
	lock, _ := h.repo.AcquireSubmitLock(context.Background(), id)
	assert.NotNil(t, lock, "lock released after a failed submit")
}

func TestSubmitCreateFailureToast(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.fillClient(t, id)
	h.accounts.err = errProvider

	res, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, form.StageCreating, res.FailedStage)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, "Couldn't create account", res.Notifications[0].Title)
	assert.Equal(t, form.VariantDestructive, res.Notifications[0].Variant)
}

func TestSubmitInFlight(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.fillClient(t, id)

	lock, err := h.repo.AcquireSubmitLock(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, lock)

	_, err = h.svc.Submit(context.Background(), id)
	assert.ErrorIs(t, err, form.ErrSubmissionInFlight)
	assert.Equal(t, http.StatusConflict, statusOf(err))
	assert.Empty(t, h.accounts.clients)
}

func TestSubmitKeepsLockTakenAfterExpiry(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.fillClient(t, id)

	// The first holder's lock lapses while its submit is still running.
	stale, err := h.repo.AcquireSubmitLock(context.Background(), id)
	require.NoError(t, err)
	h.repo.expireLock(id)

	current, err := h.repo.AcquireSubmitLock(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, current)

	require.NoError(t, stale.Release(context.Background()))
	_, err = h.svc.Submit(context.Background(), id)
	assert.ErrorIs(t, err, form.ErrSubmissionInFlight, "stale release must not free the new holder")
	assert.Empty(t, h.accounts.clients)
}

func TestSubmitLawyer(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.fillClient(t, id)
	_, err := h.svc.UpdateFields(context.Background(), id, dto.UpdateSessionRequest{
		AccountType: ptr(string(form.AccountLawyer)),
		Description: ptr("Ten years of commercial litigation."),
	})
	require.NoError(t, err)

	res := h.upload(t, id, form.SlotIdentificationCard)
	assert.False(t, res.CanSubmit)
	assert.Len(t, res.MissingDocuments, 4)

	for _, slot := range []form.DocumentSlot{form.SlotQualification, form.SlotCurriculumVitae, form.SlotResume, form.SlotPhoto} {
		res = h.upload(t, id, slot)
	}
	assert.True(t, res.CanSubmit)
	assert.Empty(t, res.MissingDocuments)

	submitted, err := h.svc.Submit(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, form.StageDone, submitted.Stage)
	assert.Equal(t, "/", submitted.Redirect)

	require.Len(t, h.accounts.lawyers, 1)
	lawyer := h.accounts.lawyers[0]
	assert.Equal(t, res.Fields.Documents.Photo, lawyer.Photo)
	assert.Equal(t, res.Fields.Documents.IdentificationCard, lawyer.ID)
	assert.Equal(t, []string{"administrative_court"}, lawyer.Courts)
	assert.Empty(t, h.repo.tracked(), "submitted documents are no longer orphan candidates")
}

func TestEndSession(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	require.NoError(t, h.svc.EndSession(context.Background(), id))

	_, err := h.svc.GetSession(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
