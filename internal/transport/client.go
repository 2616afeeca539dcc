package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/food_delivery/pkg/apierr"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
)

const (
	HeaderRequestID = "X-Request-ID"
	DefaultTimeout  = 10 * time.Second

	maxBodyBytes = 8 << 20
)

// SessionSource is what the transport needs from the session owner: the
// current bearer token and a way to recover once the server rejects it.
type SessionSource interface {
	AccessToken() string
	RecoverFrom(ctx context.Context, staleAccessToken string) (string, error)
	Invalidate(ctx context.Context, reason string)
}

type Request struct {
	Method string
	Path   string
	Body   any
	// Out receives the decoded response body. *json.RawMessage keeps it raw.
	Out any
	// Public requests never trigger credential recovery.
	Public bool
	// Bearer overrides the session token for this request only.
	Bearer string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger

	mu      sync.RWMutex
	session SessionSource
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetSession(s SessionSource) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) sessionSource() SessionSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends one logical request. A 401 on a non-public request is recovered
// through the session at most once; the retried outcome is returned as is,
// except that a second 401 invalidates the session.
func (c *Client) Do(ctx context.Context, r Request) error {
	op := r.Method + " " + r.Path

	payload, err := encodeBody(r.Body)
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}

	sess := c.sessionSource()
	token := r.Bearer
	if token == "" && sess != nil {
		token = sess.AccessToken()
	}

	status, body, err := c.send(ctx, r, payload, token)
	if err != nil {
		return apierr.FromTransport(op, err)
	}

	if status == http.StatusUnauthorized && c.recoverable(r, sess) {
		c.log.Info("request_unauthorized", "op", op)

		fresh, rerr := sess.RecoverFrom(ctx, token)
		if rerr != nil {
			return rerr
		}

		status, body, err = c.send(ctx, r, payload, fresh)
		if err != nil {
			return apierr.FromTransport(op, err)
		}
		if status == http.StatusUnauthorized {
			c.log.Warn("retry_unauthorized", "op", op)
			sess.Invalidate(ctx, "request rejected after refresh")
			return apierr.FromStatus(op, status, errorMessage(body))
		}
	}

	return decodeResponse(op, status, body, r.Out)
}

func (c *Client) recoverable(r Request, sess SessionSource) bool {
	return sess != nil && !r.Public && r.Bearer == ""
}

func (c *Client) send(ctx context.Context, r Request, payload []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	rid := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, rid)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request_failed",
			"method", r.Method,
			"path", r.Path,
			"request_id", rid,
			"timeout", apierr.IsTimeout(err),
			"err", err,
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}

	c.log.Debug("request_completed",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"request_id", rid,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.StatusCode, body, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(body)
	}
}

func decodeResponse(op string, status int, body []byte, out any) error {
	if err := apierr.FromStatus(op, status, errorMessage(body)); err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	trimmed := bytes.TrimSpace(body)
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], trimmed...)
		return nil
	}
	if len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return apierr.Decode(op, err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body. Backends answer
// with {"error": ...}, {"message": ...} or plain text.
func errorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		for _, key := range []string{"error", "message"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	const limit = 200
	if len(trimmed) > limit {
		trimmed = trimmed[:limit]
	}
	return string(trimmed)
}
