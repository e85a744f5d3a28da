// Package client talks to the marketplace REST API and the authentication
// service on behalf of the portal forms.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/pkg/apperror"
)

const (
	clientsPath     = "/api/clients"
	lawyersPath     = "/api/lawyers"
	loginPath       = "/api/auth/login"
	credentialsPath = "/api/auth/callback/credentials"

	maxErrorBody = 64 << 10
)

type Config struct {
	MarketplaceURL string
	AuthURL        string
	// Timeout bounds a single request. Zero leaves requests unbounded.
	Timeout time.Duration
	// Transport overrides the base round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client implements form.AccountCreator and form.Authenticator.
type Client struct {
	http        *http.Client
	marketplace string
	auth        string
	log         *zap.Logger
}

var (
	_ form.AccountCreator = (*Client)(nil)
	_ form.Authenticator  = (*Client)(nil)
)

func New(cfg Config, logger *zap.Logger) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(base),
			Timeout:   cfg.Timeout,
		},
		marketplace: strings.TrimRight(cfg.MarketplaceURL, "/"),
		auth:        strings.TrimRight(cfg.AuthURL, "/"),
		log:         logger.Named("upstream"),
	}
}

// UpstreamError is returned for any non-2xx answer. Message holds the
// error text from the response body when the server sent one.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream responded %d", e.Status)
	}
	return fmt.Sprintf("upstream responded %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) UserMessage() string { return e.Message }

func (e *UpstreamError) StatusCode() int { return e.Status }

func (e *UpstreamError) Unwrap() error { return apperror.ErrUpstream }

func (c *Client) CreateClient(ctx context.Context, account form.ClientAccount) error {
	return c.post(ctx, c.marketplace+clientsPath, account, nil)
}

func (c *Client) CreateLawyer(ctx context.Context, account form.LawyerAccount) error {
	return c.post(ctx, c.marketplace+lawyersPath, account, nil)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login establishes an authenticated session for email. Any 2xx is success.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.post(ctx, c.auth+loginPath, credentials{Email: email, Password: password}, nil)
}

// SignInWithCredentials runs the credentials provider flow. A rejection
// reported in the body comes back as a result with OK false, not an error.
func (c *Client) SignInWithCredentials(ctx context.Context, email, password string) (form.SignInResult, error) {
	var res form.SignInResult
	err := c.post(ctx, c.auth+credentialsPath, credentials{Email: email, Password: password}, &res)

	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Status < http.StatusInternalServerError {
		return form.SignInResult{OK: false, Error: upstream.Message}, nil
	}
	if err != nil {
		return form.SignInResult{}, err
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls the human readable text out of an error body. Both
// {"error": "..."} and {"message": "..."} shapes are seen in the wild.
func errorMessage(raw []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	var s string
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &s) == nil && s != "" {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	return body.Message
}
