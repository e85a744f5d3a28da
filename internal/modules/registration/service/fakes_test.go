package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/internal/modules/registration/repository"
	"legalconnect.io/portal/pkg/apperror"
	"legalconnect.io/portal/pkg/storage"
)

type memoryRepo struct {
	mu       sync.Mutex
	sessions map[string]form.Fields
	locks    map[string]int
	lockSeq  int
	uploads  map[string]repository.TrackedUpload
	saveErr  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sessions: map[string]form.Fields{},
		locks:    map[string]int{},
		uploads:  map[string]repository.TrackedUpload{},
	}
}

func (r *memoryRepo) Create(_ context.Context, id string, fields form.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = fields.Clone()
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (form.Fields, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.sessions[id]
	if !ok {
		return form.Fields{}, apperror.ErrNotFound
	}
	return f.Clone(), nil
}

func (r *memoryRepo) SaveFields(_ context.Context, id string, fields form.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	docs := r.sessions[id].Documents
	fields = fields.Clone()
	fields.Documents = docs
	r.sessions[id] = fields
	return nil
}

func (r *memoryRepo) SetDocument(_ context.Context, id string, slot form.DocumentSlot, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.sessions[id]
	f.Documents.Set(slot, url)
	r.sessions[id] = f
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memoryRepo) AcquireSubmitLock(_ context.Context, id string) (repository.SubmitLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.locks[id]; held {
		return nil, nil
	}
	r.lockSeq++
	r.locks[id] = r.lockSeq
	return &memoryLock{repo: r, id: id, token: r.lockSeq}, nil
}

// memoryLock only releases the lock it acquired.
type memoryLock struct {
	repo  *memoryRepo
	id    string
	token int
}

func (l *memoryLock) Release(context.Context) error {
	l.repo.mu.Lock()
	defer l.repo.mu.Unlock()
	if l.repo.locks[l.id] == l.token {
		delete(l.repo.locks, l.id)
	}
	return nil
}

func (r *memoryRepo) expireLock(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, id)
}

func (r *memoryRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok, nil
}

func (r *memoryRepo) TrackUpload(_ context.Context, id, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[url] = repository.TrackedUpload{SessionID: id, URL: url, UploadedAt: time.Now()}
	return nil
}

func (r *memoryRepo) ForgetUploads(_ context.Context, _ string, urls ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, url := range urls {
		delete(r.uploads, url)
	}
	return nil
}

func (r *memoryRepo) StaleUploads(_ context.Context, cutoff time.Time, offset, limit int64) ([]repository.TrackedUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.TrackedUpload
	for _, u := range r.uploads {
		if !u.UploadedAt.After(cutoff) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].URL < out[j].URL
	})
	if offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) tracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.uploads))
	for url := range r.uploads {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}

func (r *memoryRepo) stored(id string) form.Fields {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id].Clone()
}

type fakeStorage struct {
	mu        sync.Mutex
	n         int
	err       error
	deleteErr error
	deleted   []string
}

func (s *fakeStorage) Upload(_ context.Context, r io.Reader, folder, fileName string) (storage.UploadedFile, error) {
	if s.err != nil {
		return storage.UploadedFile{}, s.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return storage.UploadedFile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return storage.UploadedFile{
		URL:  fmt.Sprintf("https://files.example.com/%s/%d-%s", folder, s.n, fileName),
		Name: fileName,
	}, nil
}

func (s *fakeStorage) Delete(_ context.Context, fileURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, fileURL)
	return nil
}

type fakeAccounts struct {
	clients []form.ClientAccount
	lawyers []form.LawyerAccount
	err     error
}

func (a *fakeAccounts) CreateClient(_ context.Context, acc form.ClientAccount) error {
	a.clients = append(a.clients, acc)
	return a.err
}

func (a *fakeAccounts) CreateLawyer(_ context.Context, acc form.LawyerAccount) error {
	a.lawyers = append(a.lawyers, acc)
	return a.err
}

type fakeAuth struct {
	loginErr error
	signIn   form.SignInResult
}

func (a *fakeAuth) Login(context.Context, string, string) error { return a.loginErr }

func (a *fakeAuth) SignInWithCredentials(context.Context, string, string) (form.SignInResult, error) {
	return a.signIn, nil
}

type staticCatalog map[form.SelectionGroup][]string

func (c staticCatalog) Contains(group form.SelectionGroup, value string) bool {
	for _, v := range c[group] {
		if v == value {
			return true
		}
	}
	return false
}

type catalogSource struct {
	catalog form.Catalog
	err     error
}

func (c catalogSource) Snapshot(context.Context) (form.Catalog, error) { return c.catalog, c.err }

var errProvider = errors.New("provider unavailable")
