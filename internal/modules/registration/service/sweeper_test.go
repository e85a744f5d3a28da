package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/internal/modules/registration/repository"
)

func TestDocumentSweeper(t *testing.T) {
	h := newHarness(t)
	abandoned := h.start(t)
	open := h.start(t)
	h.upload(t, abandoned, form.SlotPhoto)
	h.upload(t, open, form.SlotResume)
	orphan := h.repo.stored(abandoned).Documents.Photo
	kept := h.repo.stored(open).Documents.Resume

	require.NoError(t, h.svc.EndSession(context.Background(), abandoned))

	sweeper := NewDocumentSweeper(h.repo, h.storage, 30*time.Minute, nil)

	t.Run("recent uploads are skipped", func(t *testing.T) {
		n, err := sweeper.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, h.storage.deleted)
	})

	t.Run("orphans of closed sessions are deleted", func(t *testing.T) {
		sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }

		n, err := sweeper.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{orphan}, h.storage.deleted)
		assert.Equal(t, []string{kept}, h.repo.tracked())
	})
}

func TestDocumentSweeperKeepsFailedDeletes(t *testing.T) {
	h := newHarness(t)
	id := h.start(t)
	h.upload(t, id, form.SlotPhoto)
	photo := h.repo.stored(id).Documents.Photo
	require.NoError(t, h.svc.EndSession(context.Background(), id))

	h.storage.deleteErr = errProvider
	sweeper := NewDocumentSweeper(h.repo, h.storage, 0, nil)
	sweeper.now = func() time.Time { return time.Now().Add(time.Minute) }

	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{photo}, h.repo.tracked(), "retried on the next pass")
}

func TestDocumentSweeperStart(t *testing.T) {
	h := newHarness(t)
	sweeper := NewDocumentSweeper(h.repo, h.storage, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func (r *memoryRepo) trackAt(id, url string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[url] = repository.TrackedUpload{SessionID: id, URL: url, UploadedAt: at}
}

func TestDocumentSweeperReachesPastOpenSessions(t *testing.T) {
	h := newHarness(t)
	open := h.start(t)
	old := time.Now().Add(-48 * time.Hour)

	for i := 0; i < 2*sweepBatch; i++ {
		h.repo.trackAt(open, fmt.Sprintf("https://files.example.com/open/%03d.pdf", i), old)
	}
	orphan := "https://files.example.com/closed/cv.pdf"
	h.repo.trackAt("closed-session", orphan, old.Add(time.Second))

	sweeper := NewDocumentSweeper(h.repo, h.storage, time.Hour, nil)
	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{orphan}, h.storage.deleted)
	assert.Len(t, h.repo.tracked(), 2*sweepBatch)
}

func TestDocumentSweeperDrainsBacklog(t *testing.T) {
	h := newHarness(t)
	old := time.Now().Add(-48 * time.Hour)
	total := sweepBatch + sweepBatch/2
	for i := 0; i < total; i++ {
		h.repo.trackAt(fmt.Sprintf("gone-%d", i), fmt.Sprintf("https://files.example.com/gone/%03d.pdf", i), old)
	}

	sweeper := NewDocumentSweeper(h.repo, h.storage, time.Hour, nil)
	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, total, n)
	assert.Len(t, h.storage.deleted, total)
	assert.Empty(t, h.repo.tracked())
}
