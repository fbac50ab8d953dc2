// Package rest implements the service.Service interface over the backend's JSON REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"dialdesk/internal/config"
	"dialdesk/internal/logger"
	"dialdesk/internal/service"
)

// APITimeout is the default timeout for API calls.
const APITimeout = config.DefaultAPITimeout

// Client implements service.Service over HTTP.
type Client struct {
	http           *http.Client
	baseURL        string
	timeout        time.Duration
	onUnauthorized func()
	log            *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUnauthorizedHook registers fn to run on every 401 response,
// whichever call triggered it.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = logger.OrDiscard(l) }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client that sends token as a bearer credential on every call.
func New(ctx context.Context, cfg *config.Config, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("auth token required")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	opts = append([]Option{WithTimeout(cfg.APITimeout)}, opts...)
	return NewWithHTTPClient(cfg.APIURL, oauth2.NewClient(ctx, ts), opts...)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// The HTTP client is responsible for authentication.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	c := &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: APITimeout,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	if err := req.Validate(); err != nil {
		return service.Task{}, err
	}
	var task service.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, req, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// GetTask implements service.Service.
func (c *Client) GetTask(ctx context.Context, taskID string) (service.Task, error) {
	if taskID == "" {
		return service.Task{}, service.ErrIDRequired
	}
	var task service.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, nil, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// ConfirmTask implements service.Service.
func (c *Client) ConfirmTask(ctx context.Context, taskID string, approve bool) (service.Task, error) {
	if taskID == "" {
		return service.Task{}, service.ErrIDRequired
	}
	body := struct {
		Approve bool `json:"approve"`
	}{approve}
	var task service.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/confirm", nil, body, &task); err != nil {
		return service.Task{}, err
	}
	return task, nil
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, filter service.TaskFilter) ([]service.Task, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	var resp struct {
		Items []service.Task `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ListActions implements service.Service.
func (c *Client) ListActions(ctx context.Context) ([]service.RelationshipAction, error) {
	var resp struct {
		Items []service.RelationshipAction `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/relationship-ops/actions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ApproveAction implements service.Service.
func (c *Client) ApproveAction(ctx context.Context, actionID string) error {
	return c.actionCall(ctx, actionID, "approve")
}

// ExecuteAction implements service.Service.
func (c *Client) ExecuteAction(ctx context.Context, actionID string) error {
	return c.actionCall(ctx, actionID, "execute")
}

// DismissAction implements service.Service.
func (c *Client) DismissAction(ctx context.Context, actionID string) error {
	return c.actionCall(ctx, actionID, "dismiss")
}

func (c *Client) actionCall(ctx context.Context, actionID, verb string) error {
	if actionID == "" {
		return service.ErrIDRequired
	}
	path := "/relationship-ops/actions/" + url.PathEscape(actionID) + "/" + verb
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// CreateChatSession implements service.Service.
func (c *Client) CreateChatSession(ctx context.Context) (service.ChatSession, error) {
	var sess service.ChatSession
	if err := c.do(ctx, http.MethodPost, "/chat/sessions", nil, struct{}{}, &sess); err != nil {
		return service.ChatSession{}, err
	}
	return sess, nil
}

// GetChatSession implements service.Service.
func (c *Client) GetChatSession(ctx context.Context, sessionID string, limit int) (service.ChatSession, error) {
	if sessionID == "" {
		return service.ChatSession{}, service.ErrIDRequired
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var sess service.ChatSession
	if err := c.do(ctx, http.MethodGet, "/chat/sessions/"+url.PathEscape(sessionID), q, nil, &sess); err != nil {
		return service.ChatSession{}, err
	}
	return sess, nil
}

// Logout implements service.Service.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// do performs one JSON call. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api call failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return wrapError(err)
	}
	defer googleapi.CloseBody(resp)
	c.log.Debug("api call", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if err := googleapi.CheckResponse(resp); err != nil {
		apiErr := decodeError(err, resp.StatusCode)
		if apiErr.Status == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into the backend error envelope.
// googleapi only understands numeric codes, so the body is decoded here.
func decodeError(err error, status int) *service.APIError {
	apiErr := &service.APIError{Status: status}
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		apiErr.Message = err.Error()
		return apiErr
	}

	var envelope struct {
		Error struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(gErr.Body), &envelope) == nil {
		apiErr.Message = envelope.Error.Message
		apiErr.Details = envelope.Error.Details
		apiErr.Code = rawCode(envelope.Error.Code)
	}
	if apiErr.Message == "" {
		apiErr.Message = gErr.Message
	}
	return apiErr
}

// rawCode accepts both string and numeric error codes.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("backend unreachable: %w", err)
}
