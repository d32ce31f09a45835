// Package apiclient is the single pipeline every call to the SIS REST API goes
// through: it attaches credentials, unwraps the response envelope, maps
// failures onto typed errors and replays a request once after a token refresh.
package apiclient

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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 30 * time.Second

const refreshPath = "/auth/refresh"

// Credentials is the view of the session the client needs. The session
// manager implements it and is injected with UseCredentials.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	// Refresh exchanges the refresh token for a new access token.
	Refresh(ctx context.Context) error
	// Expire drops the session locally and sends the operator to login.
	Expire(ctx context.Context)
}

type Notifier interface {
	Error(message string)
}

type ResponseType int

const (
	ResponseJSON ResponseType = iota
	ResponseBinary
)

type RequestOptions struct {
	Params       url.Values
	Body         any
	Headers      map[string]string
	ResponseType ResponseType
	// SkipAuth sends no Authorization header and treats a 401 as final.
	SkipAuth bool
	// SkipErrorHandler suppresses the operator notification on failure.
	SkipErrorHandler bool
	// SkipRefresh turns a 401 into an AuthError without trying a refresh.
	SkipRefresh bool
	NoLoading   bool
}

// Response holds exactly one of Envelope or Raw.
type Response struct {
	Status   int
	Header   http.Header
	Envelope *Envelope
	Raw      *Raw
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Notifier   Notifier
	Indicator  Indicator
	Metrics    *Metrics
	Logger     *slog.Logger
}

type Client struct {
	baseURL *url.URL
	timeout time.Duration
	http    *http.Client
	notify  Notifier
	loading *LoadingTracker
	metrics *Metrics
	log     *slog.Logger
	nowFunc func() time.Time

	lastStamp atomic.Int64
	refreshes singleflight.Group

	credsMu sync.RWMutex
	creds   Credentials
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: base,
		timeout: timeout,
		http:    httpClient,
		notify:  opts.Notifier,
		loading: NewLoadingTracker(opts.Indicator, opts.Metrics),
		metrics: opts.Metrics,
		log:     log,
		nowFunc: time.Now,
	}, nil
}

func (c *Client) UseCredentials(creds Credentials) {
	c.credsMu.Lock()
	c.creds = creds
	c.credsMu.Unlock()
}

func (c *Client) credentials() Credentials {
	c.credsMu.RLock()
	defer c.credsMu.RUnlock()
	return c.creds
}

func (c *Client) Loading() *LoadingTracker { return c.loading }

func (c *Client) BaseURL() string { return c.baseURL.String() }

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Send performs one logical request. It returns a Response carrying either the
// decoded envelope or the raw body, or one of the typed errors of this package.
func (c *Client) Send(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if strings.Contains(path, "://") {
		return nil, fmt.Errorf("path must be server relative, got %q", path)
	}

	if !opts.NoLoading {
		c.loading.Begin()
		defer c.loading.End()
	}

	start := c.nowFunc()
	resp, err := c.do(ctx, method, path, opts)
	c.metrics.observe(method, outcomeOf(err), c.nowFunc().Sub(start))

	if err != nil {
		c.log.Warn("api request failed", "method", method, "path", path, "error", err)
		if !opts.SkipErrorHandler {
			c.report(err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	return c.Send(ctx, http.MethodGet, path, RequestOptions{Params: params})
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Send(ctx, http.MethodPost, path, RequestOptions{Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Send(ctx, http.MethodPut, path, RequestOptions{Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Send(ctx, http.MethodPatch, path, RequestOptions{Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Send(ctx, http.MethodDelete, path, RequestOptions{})
}

// report surfaces a failure to the operator. An expired session is announced
// by the session itself and cancellations are not failures.
func (c *Client) report(err error) {
	if c.notify == nil {
		return
	}
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.SessionExpired() {
		return
	}
	var te *TransportError
	if errors.As(err, &te) && te.Kind == TransportCanceled {
		return
	}
	c.notify.Error(MessageOf(err, msgRequestFailed))
}

type retryPolicy struct {
	refreshed bool
	replayed  bool
}

type wireResponse struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	var policy retryPolicy
	for {
		token := ""
		creds := c.credentials()
		if !opts.SkipAuth && creds != nil {
			token = creds.AccessToken()
		}

		wire, err := c.roundTrip(ctx, method, path, opts, body, contentType, token)
		if err != nil {
			return nil, err
		}
		if wire.status != http.StatusUnauthorized || opts.SkipAuth {
			return c.interpret(wire, opts)
		}
		if err := c.recoverUnauthorized(ctx, path, opts, creds, token, &policy); err != nil {
			return nil, err
		}
		c.log.Debug("replaying request after 401", "method", method, "path", path, "refreshed", policy.refreshed)
	}
}

// recoverUnauthorized decides whether a 401 may be replayed. A nil return
// means replay with the current access token.
func (c *Client) recoverUnauthorized(ctx context.Context, path string, opts RequestOptions, creds Credentials, used string, policy *retryPolicy) error {
	if creds == nil || opts.SkipRefresh || isRefreshPath(path) {
		return &AuthError{Msg: msgUnauthorized, Status: http.StatusUnauthorized}
	}
	if policy.replayed {
		creds.Expire(ctx)
		return &AuthError{Msg: msgUnauthorized, Status: http.StatusUnauthorized, cause: ErrSessionExpired, expired: true}
	}

	current := creds.AccessToken()
	switch {
	case current == "":
		// Someone else already cleared the session.
		return &AuthError{Msg: msgUnauthorized, Status: http.StatusUnauthorized, expired: true}
	case current != used:
		policy.replayed = true
		return nil
	case creds.RefreshToken() == "" || policy.refreshed:
		creds.Expire(ctx)
		return &AuthError{Msg: msgUnauthorized, Status: http.StatusUnauthorized, cause: ErrSessionExpired, expired: true}
	}

	_, err, _ := c.refreshes.Do(used, func() (any, error) {
		return nil, creds.Refresh(context.WithoutCancel(ctx))
	})
	policy.refreshed = true
	policy.replayed = true
	if err != nil {
		c.log.Warn("token refresh failed", "error", err)
		creds.Expire(ctx)
		return &AuthError{Msg: msgUnauthorized, Status: http.StatusUnauthorized, cause: err, expired: true}
	}
	return nil
}

func isRefreshPath(path string) bool {
	p := path
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.TrimRight(p, "/") == refreshPath
}

func (c *Client) roundTrip(ctx context.Context, method, path string, opts RequestOptions, body []byte, contentType, token string) (*wireResponse, error) {
	target, err := c.buildURL(method, path, opts.Params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("X-Request-Id", uuid.NewString())
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	return &wireResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (c *Client) buildURL(method, path string, params url.Values) (string, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path %q: %w", path, err)
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(rel.EscapedPath(), "/")

	q := rel.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if method == http.MethodGet {
		q.Set("_t", strconv.FormatInt(c.stamp(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// stamp returns the cache-busting value for GET requests. It is the current
// unix time in milliseconds, bumped so that it strictly increases per client.
func (c *Client) stamp() int64 {
	for {
		last := c.lastStamp.Load()
		now := c.nowFunc().UnixMilli()
		if now <= last {
			now = last + 1
		}
		if c.lastStamp.CompareAndSwap(last, now) {
			return now
		}
	}
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Upload:
		return b.encode()
	case Upload:
		return b.encode()
	case json.RawMessage:
		return b, "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func (c *Client) interpret(w *wireResponse, opts RequestOptions) (*Response, error) {
	contentType := w.header.Get("Content-Type")
	ok := w.status >= 200 && w.status < 300

	if ok && (isBinary(contentType) || (opts.ResponseType == ResponseBinary && !isJSON(contentType))) {
		return &Response{Status: w.status, Header: w.header, Raw: newRaw(w)}, nil
	}

	env, isEnvelope := parseEnvelope(w.body)
	if !ok {
		if w.status == http.StatusUnauthorized && isEnvelope && strings.TrimSpace(env.Message) != "" {
			return nil, &AuthError{Msg: env.Message, Status: w.status}
		}
		return nil, statusError(w.status, env)
	}
	if !isEnvelope {
		return &Response{Status: w.status, Header: w.header, Raw: newRaw(w)}, nil
	}
	if !env.Success {
		return nil, &BusinessError{Msg: firstNonEmpty(strings.TrimSpace(env.Message), msgRequestFailed), Code: env.Code, Status: w.status, Envelope: env}
	}
	return &Response{Status: w.status, Header: w.header, Envelope: env}, nil
}

func isBinary(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/octet-stream") ||
		strings.Contains(ct, "application/vnd.openxmlformats-officedocument") ||
		strings.Contains(ct, "application/pdf")
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var (
		be *BusinessError
		ae *AuthError
		pe *PermissionError
		ve *ValidationError
		se *StatusError
		te *TransportError
	)
	switch {
	case errors.As(err, &be):
		return "business"
	case errors.As(err, &ae):
		return "auth"
	case errors.As(err, &pe):
		return "permission"
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &se):
		return "status"
	case errors.As(err, &te):
		return "transport"
	default:
		return "error"
	}
}
