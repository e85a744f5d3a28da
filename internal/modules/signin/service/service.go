package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"legalconnect.io/portal/internal/metrics"
	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/internal/modules/signin/dto"
	"legalconnect.io/portal/pkg/apperror"
	"legalconnect.io/portal/pkg/cache"
	"legalconnect.io/portal/pkg/token"
	"legalconnect.io/portal/pkg/validator"
)

const (
	failTitle  = "Couldn't log you in."
	failDetail = "Please check the credentials you provided."
)

// InvalidFieldsError carries one message per rejected sign-in field.
type InvalidFieldsError struct {
	Fields map[string]string
}

func (e *InvalidFieldsError) Error() string {
	return fmt.Sprintf("%d invalid fields", len(e.Fields))
}

func (e *InvalidFieldsError) Unwrap() error { return apperror.ErrValidation }

type Authenticator interface {
	Login(ctx context.Context, email, password string) error
}

type SignInService interface {
	// SignIn returns a response even when the login is rejected, so the
	// failure toast reaches the browser alongside the error.
	SignIn(ctx context.Context, req dto.SignInRequest) (*dto.SignInResponse, error)
}

type signInService struct {
	auth    Authenticator
	tokens  *token.Issuer
	rdb     *redis.Client
	lockTTL time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewSignInService builds the service. rdb may be nil, concurrent sign-ins
// for one email are then not serialised.
func NewSignInService(auth Authenticator, tokens *token.Issuer, rdb *redis.Client, lockTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) SignInService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &signInService{
		auth:    auth,
		tokens:  tokens,
		rdb:     rdb,
		lockTTL: lockTTL,
		metrics: m,
		log:     logger.Named("signin"),
	}
}

func (s *signInService) SignIn(ctx context.Context, req dto.SignInRequest) (*dto.SignInResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if fields := validator.Struct(req); fields != nil {
		return nil, &InvalidFieldsError{Fields: fields}
	}

	lockKey := "signin:" + strings.ToLower(req.Email)
	lock, err := cache.TryLock(ctx, s.rdb, lockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, apperror.ErrSubmissionInFlight
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release sign-in lock", zap.Error(err))
		}
	}()

	if err := s.auth.Login(ctx, req.Email, req.Password); err != nil {
		s.metrics.ObserveSignIn(false)
		s.log.Info("sign-in rejected", zap.Error(err))

		status := http.StatusUnauthorized
		if code := apperror.MapErrorToStatus(err); code >= http.StatusInternalServerError && !isRejection(err) {
			status = code
		}
		return &dto.SignInResponse{
			Error: failTitle,
			Notifications: []form.Toast{{
				Title:       failTitle,
				Description: failDetail,
				Variant:     form.VariantDestructive,
			}},
		}, apperror.New(status, failTitle, err)
	}

	tokenString, expiresAt, err := s.tokens.Issue(req.Email, token.AudienceAccess, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	s.metrics.ObserveSignIn(true)

	return &dto.SignInResponse{
		Token:         tokenString,
		ExpiresAt:     expiresAt,
		Redirect:      form.HomeRoute,
		Notifications: []form.Toast{},
	}, nil
}

// statusCoder is implemented by upstream errors that carry the HTTP status
// the auth service answered with.
type statusCoder interface {
	StatusCode() int
}

// isRejection reports whether the auth service answered with a client error,
// meaning the credentials were refused rather than the service failing.
func isRejection(err error) bool {
	var sc statusCoder
	return errors.As(err, &sc) && sc.StatusCode() < http.StatusInternalServerError
}
