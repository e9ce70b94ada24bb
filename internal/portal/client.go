// Package portal fetches and parses pages of the school portal website.
package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// SessionCookie is the portal's session cookie name.
	SessionCookie = "session_id"

	// DefaultTimeout bounds one fetch including body read.
	DefaultTimeout = 30 * time.Second

	maxBodySize = 8 << 20
	loginPath   = "/login"
)

// RawDocument is an unparsed portal page
type RawDocument struct {
	URL       string
	FetchedAt time.Time
	Body      []byte
}

// Client talks to the portal over HTTP with a cookie session.
type Client struct {
	BaseURL   string
	SessionID string
	Timeout   time.Duration
	HTTP      *http.Client
}

// New creates a portal client. The transport bounds dial and header waits
// separately from the per-request timeout so the two are distinguishable.
func New(baseURL, sessionID string) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: 20 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SessionID: sessionID,
		Timeout:   DefaultTimeout,
		HTTP: &http.Client{
			Transport:     transport,
			CheckRedirect: stopAtLogin,
		},
	}
}

// stopAtLogin keeps the redirect response when the portal bounces an
// expired session to the login page.
func stopAtLogin(req *http.Request, via []*http.Request) error {
	if req.URL.Path == loginPath {
		return http.ErrUseLastResponse
	}
	if len(via) >= 10 {
		return fmt.Errorf("stopped after %d redirects", len(via))
	}
	return nil
}

func (c *Client) resolve(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, c.BaseURL)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Fetch downloads the page named by sel. The whole exchange, including the
// body read, runs under the client timeout; a timed-out fetch returns no
// document.
func (c *Client) Fetch(ctx context.Context, sel Selector) (*RawDocument, error) {
	if c.SessionID == "" {
		return nil, ErrNotLoggedIn
	}
	path, err := sel.path()
	if err != nil {
		return nil, err
	}
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.SessionID})

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, target); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}

	slog.Debug("portal fetch", "page", sel.String(), "status", resp.StatusCode,
		"bytes", len(body), "took", time.Since(start))

	return &RawDocument{URL: target, FetchedAt: time.Now(), Body: body}, nil
}

func checkResponse(resp *http.Response, target string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		if loc, err := resp.Location(); err == nil && loc.Path == loginPath {
			return fmt.Errorf("%w: redirected to login", ErrUnauthorized)
		}
		return &StatusError{Code: resp.StatusCode, URL: target}
	case resp.StatusCode >= 400:
		return &StatusError{Code: resp.StatusCode, URL: target}
	}

	ct := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "text/html" {
		return fmt.Errorf("%w: %q", ErrUnexpectedContentType, ct)
	}
	return nil
}

// Login posts credentials and returns the new session cookie value. The
// client's SessionID is updated on success.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	target, err := c.resolve(loginPath)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Login answers with a redirect carrying the cookie; do not follow it
	hc := *c.HTTP
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := hc.Do(req)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if resp.StatusCode >= 400 {
		return "", &StatusError{Code: resp.StatusCode, URL: target}
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie && ck.Value != "" {
			c.SessionID = ck.Value
			slog.Debug("portal login ok", "user", username)
			return ck.Value, nil
		}
	}
	return "", fmt.Errorf("%w: no session cookie in login response", ErrUnauthorized)
}
