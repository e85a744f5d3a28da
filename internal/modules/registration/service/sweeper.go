package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"legalconnect.io/portal/internal/modules/registration/repository"
	"legalconnect.io/portal/pkg/storage"
)

const sweepBatch = 100

// DocumentSweeper deletes uploaded files whose registration session expired
// or was abandoned before a successful submit.
type DocumentSweeper struct {
	repo    repository.SessionRepository
	storage storage.DocumentStorage
	maxAge  time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// NewDocumentSweeper only considers files older than maxAge, which should be
// at least the session TTL.
func NewDocumentSweeper(repo repository.SessionRepository, store storage.DocumentStorage, maxAge time.Duration, logger *zap.Logger) *DocumentSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentSweeper{
		repo:    repo,
		storage: store,
		maxAge:  maxAge,
		log:     logger.Named("document_sweeper"),
		now:     time.Now,
	}
}

// Sweep runs one pass over every stale upload and returns how many files
// were deleted. Files of sessions that are still open, and files the
// provider failed to delete, stay tracked for a later pass.
func (s *DocumentSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)
	deleted := 0
	// Deleted entries leave the set, so only skipped ones advance the offset.
	var offset int64
	for {
		uploads, err := s.repo.StaleUploads(ctx, cutoff, offset, sweepBatch)
		if err != nil {
			return deleted, err
		}

		for _, u := range uploads {
			removed, err := s.sweepOne(ctx, u)
			if err != nil {
				return deleted, err
			}
			if removed {
				deleted++
			} else {
				offset++
			}
		}

		if len(uploads) < sweepBatch {
			return deleted, nil
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
	}
}

func (s *DocumentSweeper) sweepOne(ctx context.Context, u repository.TrackedUpload) (bool, error) {
	open, err := s.repo.Exists(ctx, u.SessionID)
	if err != nil || open {
		return false, err
	}

	if err := s.storage.Delete(ctx, u.URL); err != nil {
		s.log.Warn("failed to delete orphan document", zap.String("url", u.URL), zap.Error(err))
		return false, nil
	}
	if err := s.repo.ForgetUploads(ctx, u.SessionID, u.URL); err != nil {
		return false, err
	}
	return true, nil
}

// Start sweeps every interval until ctx is cancelled.
func (s *DocumentSweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error("document sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("deleted orphan documents", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
