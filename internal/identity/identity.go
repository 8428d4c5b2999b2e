// Package identity talks to the hosted identity service that owns
// passwordless email sign-in. The service URL and its public (anon) API key
// are the only values the client needs; credentials never pass through here.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("identity service is not configured")
	ErrInvalidEmail  = errors.New("email is invalid")
	ErrInvalidToken  = errors.New("identity token is invalid")
)

// APIError is a non-retryable answer from the identity service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity: %d: %s", e.Status, e.Message)
}

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// DisplayName picks the best human name the service knows about.
func (u User) DisplayName() string {
	for _, k := range []string{"full_name", "name"} {
		if v, ok := u.UserMetadata[k].(string); ok && v != "" {
			return v
		}
	}
	return u.Email
}

func (u User) AvatarURL() string {
	v, _ := u.UserMetadata["avatar_url"].(string)
	return v
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type Client struct {
	baseURL    string
	apiKey     string
	jwtSecret  []byte
	httpClient *http.Client
	maxElapsed time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithJWTSecret enables verification of returned access tokens.
func WithJWTSecret(secret string) Option {
	return func(cl *Client) {
		if secret != "" {
			cl.jwtSecret = []byte(secret)
		}
	}
}

// WithMaxElapsed bounds the total time of one call, retries and the
// attempt in flight included.
func WithMaxElapsed(d time.Duration) Option {
	return func(cl *Client) { cl.maxElapsed = d }
}

func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("identity url: %w", err)
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxElapsed: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NormalizeEmail validates an address and returns it lower-cased.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(raw)
	if err != nil || parsed.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(parsed.Address), nil
}

// SendMagicLink asks the service to email a one-time sign-in link. Clicking
// it lands on redirectTo with a token_hash to pass to VerifyEmailLink.
func (c *Client) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	body := map[string]any{
		"email":       email,
		"create_user": true,
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/otp", q, body, nil)
}

// VerifyEmailLink exchanges the token_hash from an email link for a session.
func (c *Client) VerifyEmailLink(ctx context.Context, tokenHash string) (*Session, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, ErrInvalidToken
	}

	var s Session
	body := map[string]any{
		"type":       "email",
		"token_hash": tokenHash,
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", nil, body, &s); err != nil {
		return nil, err
	}
	if s.User.ID == "" {
		return nil, fmt.Errorf("verify email link: %w", ErrInvalidToken)
	}
	if err := c.checkAccessToken(s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) checkAccessToken(s Session) error {
	if c.jwtSecret == nil {
		return nil
	}
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(s.AccessToken, &claims, func(*jwt.Token) (any, error) {
		return c.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != s.User.ID {
		return fmt.Errorf("%w: subject does not match user", ErrInvalidToken)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if c.maxElapsed > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.maxElapsed)
		defer cancel()
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}

		if resp.StatusCode >= 300 {
			apiErr := decodeError(resp.StatusCode, raw)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = c.maxElapsed
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// decodeError understands both error shapes the service emits.
func decodeError(status int, raw []byte) *APIError {
	var body struct {
		ErrorCode        string `json:"error_code"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)

	e := &APIError{Status: status, Code: body.ErrorCode}
	switch {
	case body.Msg != "":
		e.Message = body.Msg
	case body.ErrorDescription != "":
		e.Message = body.ErrorDescription
		if e.Code == "" {
			e.Code = body.Error
		}
	case body.Message != "":
		e.Message = body.Message
	case body.Error != "":
		e.Message = body.Error
	default:
		e.Message = http.StatusText(status)
	}
	return e
}
