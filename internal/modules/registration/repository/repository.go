package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/pkg/apperror"
	"legalconnect.io/portal/pkg/cache"
)

const (
	fieldsKey = "fields"
	docPrefix = "doc:"
)

func sessionKey(id string) string {
	return fmt.Sprintf("registration:session:%s", id)
}

func submitLockKey(id string) string {
	return fmt.Sprintf("registration:submit:%s", id)
}

// uploadsKey is a sorted set of "<session>|<url>" scored by upload time.
const uploadsKey = "registration:uploads"

// TrackedUpload is a stored file not yet claimed by a finished registration.
type TrackedUpload struct {
	SessionID  string
	URL        string
	UploadedAt time.Time
}

func (u TrackedUpload) member() string {
	return u.SessionID + "|" + u.URL
}

func parseTrackedUpload(member string, score float64) (TrackedUpload, bool) {
	id, url, ok := strings.Cut(member, "|")
	if !ok || id == "" || url == "" {
		return TrackedUpload{}, false
	}
	return TrackedUpload{SessionID: id, URL: url, UploadedAt: time.Unix(int64(score), 0)}, true
}

// SessionRepository keeps registration form sessions in a redis hash. The
// non-document fields live in one JSON member and every document slot in its
// own member, so uploads to different slots never overwrite each other.
type SessionRepository interface {
	Create(ctx context.Context, id string, fields form.Fields) error
	// Get returns apperror.ErrNotFound once the session expired.
	Get(ctx context.Context, id string) (form.Fields, error)
	SaveFields(ctx context.Context, id string, fields form.Fields) error
	// SetDocument stores url in slot; an empty url clears it.
	SetDocument(ctx context.Context, id string, slot form.DocumentSlot, url string) error
	Delete(ctx context.Context, id string) error

	Exists(ctx context.Context, id string) (bool, error)

	// AcquireSubmitLock returns nil when another submit holds the lock.
	AcquireSubmitLock(ctx context.Context, id string) (SubmitLock, error)

	// TrackUpload remembers url until ForgetUploads is called for it, so
	// files left behind by abandoned sessions can be found later.
	TrackUpload(ctx context.Context, id, url string) error
	ForgetUploads(ctx context.Context, id string, urls ...string) error
	// StaleUploads lists up to limit tracked files uploaded before cutoff,
	// oldest first, skipping the first offset of them.
	StaleUploads(ctx context.Context, cutoff time.Time, offset, limit int64) ([]TrackedUpload, error)
}

// SubmitLock is held for the length of one submit and renewed until
// released.
type SubmitLock interface {
	Release(ctx context.Context) error
}

type sessionRepository struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewSessionRepository(rdb *redis.Client, ttl, lockTTL time.Duration) SessionRepository {
	return &sessionRepository{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func (r *sessionRepository) Create(ctx context.Context, id string, fields form.Fields) error {
	return r.write(ctx, id, func(pipe redis.Pipeliner, key string) error {
		payload, err := encodeFields(fields)
		if err != nil {
			return err
		}
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldsKey, payload)
		for _, slot := range form.DocumentSlots {
			if url := fields.Documents.Get(slot); url != "" {
				pipe.HSet(ctx, key, docPrefix+string(slot), url)
			}
		}
		return nil
	})
}

func (r *sessionRepository) Get(ctx context.Context, id string) (form.Fields, error) {
	val, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return form.Fields{}, fmt.Errorf("failed to load registration session: %w", err)
	}

	raw, ok := val[fieldsKey]
	if !ok {
		return form.Fields{}, apperror.ErrNotFound
	}

	var fields form.Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return form.Fields{}, fmt.Errorf("corrupt registration session %s: %w", id, err)
	}

	fields.Documents = form.DocumentURLs{}
	for member, url := range val {
		name, isDoc := strings.CutPrefix(member, docPrefix)
		if !isDoc {
			continue
		}
		if slot, err := form.ParseDocumentSlot(name); err == nil {
			fields.Documents.Set(slot, url)
		}
	}
	return fields, nil
}

func (r *sessionRepository) SaveFields(ctx context.Context, id string, fields form.Fields) error {
	return r.write(ctx, id, func(pipe redis.Pipeliner, key string) error {
		payload, err := encodeFields(fields)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, key, fieldsKey, payload)
		return nil
	})
}

func (r *sessionRepository) SetDocument(ctx context.Context, id string, slot form.DocumentSlot, url string) error {
	return r.write(ctx, id, func(pipe redis.Pipeliner, key string) error {
		if url == "" {
			pipe.HDel(ctx, key, docPrefix+string(slot))
		} else {
			pipe.HSet(ctx, key, docPrefix+string(slot), url)
		}
		return nil
	})
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

func (r *sessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sessionRepository) AcquireSubmitLock(ctx context.Context, id string) (SubmitLock, error) {
	lock, err := cache.TryLock(ctx, r.rdb, submitLockKey(id), r.lockTTL)
	if err != nil || lock == nil {
		return nil, err
	}
	return lock, nil
}

func (r *sessionRepository) TrackUpload(ctx context.Context, id, url string) error {
	u := TrackedUpload{SessionID: id, URL: url}
	return r.rdb.ZAdd(ctx, uploadsKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: u.member(),
	}).Err()
}

func (r *sessionRepository) ForgetUploads(ctx context.Context, id string, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(urls))
	for _, url := range urls {
		members = append(members, TrackedUpload{SessionID: id, URL: url}.member())
	}
	return r.rdb.ZRem(ctx, uploadsKey, members...).Err()
}

func (r *sessionRepository) StaleUploads(ctx context.Context, cutoff time.Time, offset, limit int64) ([]TrackedUpload, error) {
	zs, err := r.rdb.ZRangeByScoreWithScores(ctx, uploadsKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatInt(cutoff.Unix(), 10),
		Offset: offset,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked uploads: %w", err)
	}

	uploads := make([]TrackedUpload, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		if u, ok := parseTrackedUpload(member, z.Score); ok {
			uploads = append(uploads, u)
		}
	}
	return uploads, nil
}

// write runs fn in a MULTI/EXEC block and refreshes the session TTL.
func (r *sessionRepository) write(ctx context.Context, id string, fn func(pipe redis.Pipeliner, key string) error) error {
	key := sessionKey(id)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := fn(pipe, key); err != nil {
			return err
		}
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save registration session: %w", err)
	}
	return nil
}

// encodeFields serialises everything but the documents, which have their
// own hash members.
func encodeFields(fields form.Fields) (string, error) {
	fields.Documents = form.DocumentURLs{}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
