package tiqrclient

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	protocolHeader  = "X-TIQR-Protocol-Version"
	protocolVersion = "2"

	// maxResponseSize bounds how much of a server response is read; tiqr
	// responses are tiny and anything larger is hostile or broken.
	maxResponseSize = 1 << 20
)

// Client talks to identity provider endpoints: enrollment metadata,
// enrollment submission and authentication submission. Timeouts are the
// transport's responsibility; callers see every transport failure as
// ErrConnection.
type Client struct {
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes a custom http.Client (proxies, testing).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// New creates a Client with connection pooling sized for a handful of
// provider endpoints.
func New(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthenticationRequest carries one OTP submission.
type AuthenticationRequest struct {
	SessionKey          string
	UserID              string
	OTP                 string
	Language            string
	NotificationType    string
	NotificationAddress string
}

// EnrollmentRequest carries the generated shared secret to the one-time
// enrollment URL.
type EnrollmentRequest struct {
	Secret              []byte
	Language            string
	NotificationType    string
	NotificationAddress string
}

// FetchEnrollmentMetadata retrieves the JSON enrollment metadata document.
// The body is returned raw; validation belongs to the challenge parser.
func (c *Client) FetchEnrollmentMetadata(ctx context.Context, metadataURL string) ([]byte, error) {
	if err := validateURL(metadataURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, errors.Join(ErrConnection, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(protocolHeader, protocolVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrConnection, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Join(ErrConnection, err)
	}
	return body, nil
}

// SubmitAuthentication posts the OTP to the provider's authentication URL
// and decodes the protocol-versioned verdict. The response protocol is
// chosen by the X-TIQR-Protocol-Version response header: absent or "1"
// means a plain-text token, anything else the v2 JSON document.
func (c *Client) SubmitAuthentication(ctx context.Context, authenticationURL string, ar AuthenticationRequest) (*AuthenticationResult, error) {
	form := url.Values{}
	form.Set("sessionKey", ar.SessionKey)
	form.Set("userId", ar.UserID)
	form.Set("response", ar.OTP)
	form.Set("language", ar.Language)
	form.Set("operation", "login")
	if ar.NotificationType != "" {
		form.Set("notificationType", ar.NotificationType)
		form.Set("notificationAddress", ar.NotificationAddress)
	}

	version, body, err := c.postForm(ctx, authenticationURL, form)
	if err != nil {
		return nil, err
	}

	if version == "" || version == "1" {
		return parseV1Body(string(body))
	}
	return parseV2Body(body)
}

// SubmitEnrollment posts the hex-encoded shared secret to the enrollment
// URL. The secret is encoded lowercase, zero-padded per byte.
func (c *Client) SubmitEnrollment(ctx context.Context, enrollmentURL string, er EnrollmentRequest) error {
	form := url.Values{}
	form.Set("secret", hex.EncodeToString(er.Secret))
	form.Set("language", er.Language)
	form.Set("operation", "register")
	if er.NotificationType != "" {
		form.Set("notificationType", er.NotificationType)
		form.Set("notificationAddress", er.NotificationAddress)
	}

	version, body, err := c.postForm(ctx, enrollmentURL, form)
	if err != nil {
		return err
	}

	if version == "" || version == "1" {
		if strings.TrimSpace(string(body)) != "OK" {
			return fmt.Errorf("%w: %q", ErrEnrollmentRejected, strings.TrimSpace(string(body)))
		}
		return nil
	}

	result, err := parseV2Body(body)
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("%w: response code %d", ErrEnrollmentRejected, result.Code)
	}
	return nil
}

// postForm submits a form-encoded POST and returns the response protocol
// version header and body.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (string, []byte, error) {
	if err := validateURL(endpoint); err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", nil, errors.Join(ErrConnection, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(protocolHeader, protocolVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, errors.Join(ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: status %d", ErrConnection, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", nil, errors.Join(ErrConnection, err)
	}
	return resp.Header.Get(protocolHeader), body, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Join(ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
