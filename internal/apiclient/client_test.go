package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeCreds struct {
	mu      sync.Mutex
	access  string
	refresh string

	next         string
	refreshErr   error
	refreshDelay time.Duration
	refreshCalls atomic.Int32
	expireCalls  atomic.Int32
}

func (f *fakeCreds) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeCreds) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

func (f *fakeCreds) setAccess(token string) {
	f.mu.Lock()
	f.access = token
	f.mu.Unlock()
}

func (f *fakeCreds) Refresh(ctx context.Context) error {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.setAccess(f.next)
	return nil
}

func (f *fakeCreds) Expire(ctx context.Context) {
	f.expireCalls.Add(1)
	f.mu.Lock()
	f.access, f.refresh = "", ""
	f.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	opts.BaseURL = srv.URL + "/api"
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSendAttachesBearerTokenUnlessSkipAuth(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("X-Request-Id") == "" {
			t.Errorf("missing X-Request-Id header")
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": 1}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	c.UseCredentials(&fakeCreds{access: "T"})

	if _, err := c.Get(context.Background(), "/students", nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if _, err := c.Send(context.Background(), http.MethodPost, "/auth/login", RequestOptions{SkipAuth: true, Body: map[string]string{"username": "a"}}); err != nil {
		t.Fatalf("Send(SkipAuth) error: %v", err)
	}

	if seen[0] != "Bearer T" {
		t.Fatalf("expected bearer header, got %q", seen[0])
	}
	if seen[1] != "" {
		t.Fatalf("expected no authorization header with SkipAuth, got %q", seen[1])
	}
}

func TestGetCacheBusterStrictlyIncreases(t *testing.T) {
	var mu sync.Mutex
	var stamps []int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, err := strconv.ParseInt(r.URL.Query().Get("_t"), 10, 64)
		if err != nil {
			t.Errorf("bad _t param %q", r.URL.Query().Get("_t"))
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("expected page param to be kept, got %q", r.URL.RawQuery)
		}
		mu.Lock()
		stamps = append(stamps, v)
		mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	frozen := time.UnixMilli(1_700_000_000_000)
	c.nowFunc = func() time.Time { return frozen }

	params := url.Values{"page": {"2"}}
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), "/students", params); err != nil {
			t.Fatalf("Get() error: %v", err)
		}
	}
	for i := 1; i < len(stamps); i++ {
		if stamps[i] <= stamps[i-1] {
			t.Fatalf("expected strictly increasing _t, got %v", stamps)
		}
	}
}

func TestEscapedPathSegmentsArePreserved(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.URL.EscapedPath())
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	if _, err := c.Delete(context.Background(), "/system-config/a%2Fb"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if got := seen.Load(); got != "/api/system-config/a%2Fb" {
		t.Fatalf("expected escaped segment on the wire, got %v", got)
	}

	if _, err := c.Get(context.Background(), "/students/42", nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got := seen.Load(); got != "/api/students/42" {
		t.Fatalf("unexpected plain path %v", got)
	}
}

func TestPostHasNoCacheBuster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("_t") {
			t.Errorf("unexpected _t on %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	if _, err := c.Post(context.Background(), "/courses", map[string]string{"name": "Math"}); err != nil {
		t.Fatalf("Post() error: %v", err)
	}
}

func TestSuccessFalseIsBusinessError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": false, "message": "Course is full", "code": 4009})
	}))
	defer srv.Close()

	notes := &recordingNotifier{}
	c := newTestClient(t, srv, Options{Notifier: notes})

	_, err := c.Post(context.Background(), "/enrollments", map[string]int{"courseId": 3})
	var be *BusinessError
	if !errors.As(err, &be) {
		t.Fatalf("expected BusinessError, got %v", err)
	}
	if be.Message() != "Course is full" || be.Code != 4009 {
		t.Fatalf("unexpected business error %+v", be)
	}
	if got := notes.messages(); len(got) != 1 || got[0] != "Course is full" {
		t.Fatalf("expected one notification with server message, got %v", got)
	}

	_, err = c.Send(context.Background(), http.MethodPost, "/enrollments", RequestOptions{SkipErrorHandler: true})
	if !errors.As(err, &be) {
		t.Fatalf("expected BusinessError, got %v", err)
	}
	if got := notes.messages(); len(got) != 1 {
		t.Fatalf("SkipErrorHandler should suppress notification, got %v", got)
	}
}

func TestEnvelopeDataDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "message": "ok", "data": map[string]any{"id": 7, "name": "Ada"}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	resp, err := c.Get(context.Background(), "/students/7", nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Envelope == nil || resp.Raw != nil {
		t.Fatalf("expected envelope response only, got %+v", resp)
	}
	var student struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := resp.Envelope.Decode(&student); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if student.ID != 7 || student.Name != "Ada" {
		t.Fatalf("unexpected decoded data %+v", student)
	}
}

func TestConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	const callers = 5
	var oldHits atomic.Int32
	release := make(chan struct{})
	var once sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new" {
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
			return
		}
		if oldHits.Add(1) == callers {
			once.Do(func() { close(release) })
		}
		<-release
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "token expired"})
	}))
	defer srv.Close()

	creds := &fakeCreds{access: "old", refresh: "R", next: "new", refreshDelay: 100 * time.Millisecond}
	c := newTestClient(t, srv, Options{})
	c.UseCredentials(creds)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "/students", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("expected every caller to succeed after refresh, got %v", err)
		}
	}
	if got := creds.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh, got %d", got)
	}
	if got := creds.expireCalls.Load(); got != 0 {
		t.Fatalf("expected no expiry, got %d", got)
	}
}

func TestReplayWithoutRefreshWhenTokenAlreadyChanged(t *testing.T) {
	creds := &fakeCreds{access: "old", refresh: "R"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer old" {
			creds.setAccess("rotated")
			writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	c.UseCredentials(creds)

	if _, err := c.Get(context.Background(), "/grades", nil); err != nil {
		t.Fatalf("expected replay to succeed, got %v", err)
	}
	if got := creds.refreshCalls.Load(); got != 0 {
		t.Fatalf("expected no refresh, got %d", got)
	}
}

func TestSecondUnauthorizedIsTerminal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false})
	}))
	defer srv.Close()

	creds := &fakeCreds{access: "old", refresh: "R", next: "new"}
	notes := &recordingNotifier{}
	c := newTestClient(t, srv, Options{Notifier: notes})
	c.UseCredentials(creds)

	_, err := c.Get(context.Background(), "/students", nil)
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected session expired cause, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected original request plus one replay, got %d", hits.Load())
	}
	if creds.refreshCalls.Load() != 1 || creds.expireCalls.Load() != 1 {
		t.Fatalf("expected one refresh and one expiry, got %d/%d", creds.refreshCalls.Load(), creds.expireCalls.Load())
	}
	if !ae.SessionExpired() {
		t.Fatalf("expected the error to report the expired session")
	}
	if len(notes.messages()) != 0 {
		t.Fatalf("an expired session is announced by the session, got %v", notes.messages())
	}
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false})
	}))
	defer srv.Close()

	creds := &fakeCreds{access: "old", refresh: "R", refreshErr: errors.New("refresh rejected")}
	c := newTestClient(t, srv, Options{})
	c.UseCredentials(creds)

	_, err := c.Get(context.Background(), "/students", nil)
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if creds.expireCalls.Load() != 1 {
		t.Fatalf("expected expiry after failed refresh, got %d", creds.expireCalls.Load())
	}
}

func TestUnauthorizedAfterSessionClearedDoesNotExpireAgain(t *testing.T) {
	creds := &fakeCreds{access: "old", refresh: "R"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds.setAccess("")
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	c.UseCredentials(creds)

	_, err := c.Get(context.Background(), "/students", nil)
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if creds.refreshCalls.Load() != 0 || creds.expireCalls.Load() != 0 {
		t.Fatalf("expected neither refresh nor expiry, got %d/%d", creds.refreshCalls.Load(), creds.expireCalls.Load())
	}
}

func TestUnauthorizedWithoutRefreshTokenExpires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false})
	}))
	defer srv.Close()

	creds := &fakeCreds{access: "old"}
	c := newTestClient(t, srv, Options{})
	c.UseCredentials(creds)

	if _, err := c.Get(context.Background(), "/students", nil); err == nil {
		t.Fatalf("expected error")
	}
	if creds.refreshCalls.Load() != 0 || creds.expireCalls.Load() != 1 {
		t.Fatalf("expected expiry without refresh, got %d/%d", creds.refreshCalls.Load(), creds.expireCalls.Load())
	}
}

func TestSkipAuthUnauthorizedKeepsServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Wrong username or password"})
	}))
	defer srv.Close()

	creds := &fakeCreds{access: "T", refresh: "R"}
	c := newTestClient(t, srv, Options{})
	c.UseCredentials(creds)

	_, err := c.Send(context.Background(), http.MethodPost, "/auth/login", RequestOptions{SkipAuth: true})
	if MessageOf(err, "") != "Wrong username or password" {
		t.Fatalf("expected server message, got %v", err)
	}
	if creds.expireCalls.Load() != 0 || creds.refreshCalls.Load() != 0 {
		t.Fatalf("login failures must not touch the session")
	}
}

func TestUnauthorizedNotifiesUnlessSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "captcha expired"})
	}))
	defer srv.Close()

	tests := []struct {
		name  string
		creds *fakeCreds
		opts  RequestOptions
		want  []string
	}{
		{name: "skip auth", creds: &fakeCreds{access: "T", refresh: "R"}, opts: RequestOptions{SkipAuth: true}, want: []string{"captcha expired"}},
		{name: "skip refresh", creds: &fakeCreds{access: "T", refresh: "R"}, opts: RequestOptions{SkipRefresh: true}, want: []string{"Unauthorized, please log in again"}},
		{name: "no credentials", opts: RequestOptions{}, want: []string{"Unauthorized, please log in again"}},
		{name: "skip error handler", creds: &fakeCreds{access: "T", refresh: "R"}, opts: RequestOptions{SkipAuth: true, SkipErrorHandler: true}, want: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			notes := &recordingNotifier{}
			c := newTestClient(t, srv, Options{Notifier: notes})
			if tc.creds != nil {
				c.UseCredentials(tc.creds)
			}

			_, err := c.Send(context.Background(), http.MethodGet, "/auth/captcha", tc.opts)
			var ae *AuthError
			if !errors.As(err, &ae) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if ae.SessionExpired() {
				t.Fatalf("session was not touched, expected SessionExpired false")
			}
			got := notes.messages()
			if len(got) != len(tc.want) {
				t.Fatalf("expected notifications %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected notifications %v, got %v", tc.want, got)
				}
			}
			if tc.creds != nil && tc.creds.expireCalls.Load() != 0 {
				t.Fatalf("session must not expire")
			}
		})
	}
}

func TestValidationErrorsFlattened(t *testing.T) {
	tests := []struct {
		name   string
		errors map[string][]string
		want   string
	}{
		{name: "single field", errors: map[string][]string{"email": {"invalid"}}, want: "invalid"},
		{name: "sorted fields", errors: map[string][]string{"name": {"required"}, "email": {"invalid", "taken"}}, want: "invalid, taken, required"},
		{name: "no field errors", errors: nil, want: "Data validation failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "errors": tc.errors})
			}))
			defer srv.Close()

			c := newTestClient(t, srv, Options{})
			_, err := c.Post(context.Background(), "/users", map[string]string{})
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Message() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, ve.Message())
			}
		})
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   string
		check  func(error) bool
	}{
		{status: 400, body: `{"success":false,"message":"Term is closed"}`, want: "Term is closed"},
		{status: 400, body: `oops`, want: "Invalid request parameters"},
		{status: 403, want: "Insufficient permission, access denied", check: func(err error) bool { var e *PermissionError; return errors.As(err, &e) }},
		{status: 404, want: "The requested resource does not exist"},
		{status: 408, want: "Request timed out"},
		{status: 429, want: "Too many requests, please try again later"},
		{status: 500, want: "Internal server error"},
		{status: 502, want: "Bad gateway"},
		{status: 503, want: "Service unavailable"},
		{status: 504, want: "Gateway timeout"},
		{status: 418, want: "Request failed (418)"},
		{status: 409, body: `{"success":false,"message":"Already enrolled"}`, want: "Already enrolled"},
	}
	for _, tc := range tests {
		t.Run(strconv.Itoa(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv, Options{})
			_, err := c.Get(context.Background(), "/reports", nil)
			if err == nil {
				t.Fatalf("expected error for status %d", tc.status)
			}
			if got := MessageOf(err, ""); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if tc.check != nil && !tc.check(err) {
				t.Fatalf("unexpected error type %T", err)
			}
		})
	}
}

func TestTransportErrors(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		c := newTestClient(t, srv, Options{})
		srv.Close()

		_, err := c.Get(context.Background(), "/students", nil)
		var te *TransportError
		if !errors.As(err, &te) || te.Kind != TransportNetwork {
			t.Fatalf("expected network transport error, got %v", err)
		}
		if te.Message() != "Network connection failed" {
			t.Fatalf("unexpected message %q", te.Message())
		}
	})

	t.Run("timeout", func(t *testing.T) {
		done := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-done:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(done)

		c := newTestClient(t, srv, Options{Timeout: 30 * time.Millisecond})
		_, err := c.Get(context.Background(), "/students", nil)
		var te *TransportError
		if !errors.As(err, &te) || te.Kind != TransportTimeout {
			t.Fatalf("expected timeout transport error, got %v", err)
		}
		if te.Message() != "Request timed out" {
			t.Fatalf("unexpected message %q", te.Message())
		}
	})

	t.Run("canceled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
		}))
		defer srv.Close()

		notes := &recordingNotifier{}
		c := newTestClient(t, srv, Options{Notifier: notes})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Get(ctx, "/students", nil)
		var te *TransportError
		if !errors.As(err, &te) || te.Kind != TransportCanceled {
			t.Fatalf("expected canceled transport error, got %v", err)
		}
		if len(notes.messages()) != 0 {
			t.Fatalf("cancellation should not notify, got %v", notes.messages())
		}
	})
}

func TestBinaryResponseReturnedRaw(t *testing.T) {
	payload := []byte("PK\x03\x04 spreadsheet bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="students.xlsx"`)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	resp, err := c.Send(context.Background(), http.MethodGet, "/data/export/students", RequestOptions{ResponseType: ResponseBinary})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.Raw == nil || resp.Envelope != nil {
		t.Fatalf("expected raw response, got %+v", resp)
	}
	if string(resp.Raw.Body) != string(payload) {
		t.Fatalf("body was modified: %q", resp.Raw.Body)
	}
	if resp.Raw.Filename != "students.xlsx" {
		t.Fatalf("unexpected filename %q", resp.Raw.Filename)
	}
}

func TestNonEnvelopeBodyReturnedRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "pong")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	resp, err := c.Get(context.Background(), "/ping", nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Raw == nil || string(resp.Raw.Body) != "pong" {
		t.Fatalf("expected raw pong, got %+v", resp)
	}
}

type countingIndicator struct {
	shows, hides atomic.Int32
}

func (c *countingIndicator) Show() { c.shows.Add(1) }
func (c *countingIndicator) Hide() { c.hides.Add(1) }

func TestLoadingIndicatorBalanced(t *testing.T) {
	release := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("quiet") == "" {
			arrived.Done()
			<-release
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	ind := &countingIndicator{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestClient(t, srv, Options{Indicator: ind, Metrics: metrics})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(context.Background(), "/students", nil)
		}()
	}
	arrived.Wait()

	if got := c.Loading().Count(); got != 3 {
		t.Fatalf("expected 3 in-flight requests, got %d", got)
	}
	if got := testutil.ToFloat64(metrics.inflight); got != 3 {
		t.Fatalf("expected inflight gauge 3, got %v", got)
	}
	if _, err := c.Send(context.Background(), http.MethodGet, "/students", RequestOptions{NoLoading: true, Params: url.Values{"quiet": {"1"}}}); err != nil {
		t.Fatalf("NoLoading request failed: %v", err)
	}
	if got := c.Loading().Count(); got != 3 {
		t.Fatalf("NoLoading request must not touch the counter, got %d", got)
	}

	close(release)
	wg.Wait()

	if c.Loading().Count() != 0 {
		t.Fatalf("expected counter back to zero, got %d", c.Loading().Count())
	}
	if ind.shows.Load() != 1 || ind.hides.Load() != 1 {
		t.Fatalf("expected one show and one hide, got %d/%d", ind.shows.Load(), ind.hides.Load())
	}
	if got := testutil.ToFloat64(metrics.requests.WithLabelValues("GET", "success")); got != 4 {
		t.Fatalf("expected 4 successful GETs counted, got %v", got)
	}
}

func TestLoadingEndsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ind := &FlagIndicator{}
	c := newTestClient(t, srv, Options{Indicator: ind})
	if _, err := c.Get(context.Background(), "/students", nil); err == nil {
		t.Fatalf("expected error")
	}
	if ind.Visible() || c.Loading().Count() != 0 {
		t.Fatalf("indicator should be hidden after failure")
	}
	if shows, hides := ind.Transitions(); shows != 1 || hides != 1 {
		t.Fatalf("expected one show/hide pair, got %d/%d", shows, hides)
	}
}

func TestUnsupportedMethodFailsBeforeDispatch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	_, err := c.Send(context.Background(), "TRACE", "/students", RequestOptions{})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
	if hits.Load() != 0 || c.Loading().Count() != 0 {
		t.Fatalf("request should not have been dispatched")
	}
}

func TestUploadSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("mode") != "upsert" {
			t.Errorf("expected mode field, got %q", r.FormValue("mode"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if hdr.Filename != "students.csv" || !strings.HasPrefix(string(data), "name,") {
				t.Errorf("unexpected upload %s %q", hdr.Filename, data)
			}
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]int{"imported": 1}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Options{})
	up := &Upload{FileName: "students.csv", Content: strings.NewReader("name,email\nAda,ada@example.edu\n"), Fields: map[string]string{"mode": "upsert"}}
	if _, err := c.Post(context.Background(), "/data/import/students", up); err != nil {
		t.Fatalf("Post(upload) error: %v", err)
	}
}
