package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SahilBhatkande/portfolio/internal/config"
	"github.com/SahilBhatkande/portfolio/internal/portfolio"
	"github.com/SahilBhatkande/portfolio/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRelay records payloads and fails while err is set.
type fakeRelay struct {
	mu       sync.Mutex
	err      error
	payloads []relay.Payload
}

func (f *fakeRelay) Send(ctx context.Context, p relay.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return f.err
}

func (f *fakeRelay) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func testConfig() *config.Config {
	return &config.Config{
		TemplateGlob:      "templates/*",
		StaticDir:         "./static",
		ContactToName:     "Sahil Bhatkande",
		ContactFallback:   "sahil@example.com",
		FormTTL:           time.Hour,
		ContactRateLimit:  100,
		ContactRateWindow: time.Minute,
		AdminUsername:     "admin",
		AdminPassword:     "secret",
		AdminJWTSecret:    "test-secret",
		AdminSessionTTL:   time.Hour,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, r *fakeRelay) (*server, *gin.Engine) {
	t.Helper()
	st, err := openStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	content, err := portfolio.Load("")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newServer(cfg, content, r, st, nil, log)
	return s, s.routes()
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHomePage(t *testing.T) {
	_, router := newTestServer(t, testConfig(), &fakeRelay{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Sahil Bhatkande")
	assert.Contains(t, body, `name="form"`)
	assert.Contains(t, body, "Send Message")
	assert.Contains(t, body, `class="dark"`)
	assert.Contains(t, body, "Built with Go and HTMX.")
}

func TestContactFormSuccess(t *testing.T) {
	r := &fakeRelay{}
	_, router := newTestServer(t, testConfig(), r)

	w := postForm(router, "/contact", url.Values{
		"fullName": {"Ann"},
		"email":    {"a@x.com"},
		"message":  {"Hi"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, r.calls())
	assert.Equal(t, relay.Payload{
		FromName:  "Ann",
		FromEmail: "a@x.com",
		Message:   "Hi",
		ToName:    "Sahil Bhatkande",
		ReplyTo:   "a@x.com",
	}, r.payloads[0])

	body := w.Body.String()
	assert.Contains(t, body, ContactSuccess)
	assert.Contains(t, body, `value=""`)
	assert.NotContains(t, body, `value="Ann"`)
	assert.Contains(t, body, `<button type="submit">Send Message</button>`)
}

func TestContactFormFailureKeepsFields(t *testing.T) {
	r := &fakeRelay{err: errors.New("NetworkError")}
	_, router := newTestServer(t, testConfig(), r)

	w := postForm(router, "/contact", url.Values{
		"fullName": {"Ann"},
		"email":    {"a@x.com"},
		"message":  {"Hi"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Failed to send message")
	assert.Contains(t, body, "mailto:sahil@example.com")
	assert.Contains(t, body, `value="Ann"`)
	assert.Contains(t, body, `value="a@x.com"`)
	assert.Contains(t, body, ">Hi</textarea>")
	assert.Contains(t, body, "Send Message")
}

func TestContactFormIncomplete(t *testing.T) {
	r := &fakeRelay{}
	_, router := newTestServer(t, testConfig(), r)

	w := postForm(router, "/contact", url.Values{
		"fullName": {""},
		"email":    {"a@x.com"},
		"message":  {"Hi"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, r.calls())
	assert.NotContains(t, w.Body.String(), "notice")
	assert.Contains(t, w.Body.String(), `value="a@x.com"`)
}

func TestContactFormReusesInstance(t *testing.T) {
	r := &fakeRelay{err: errors.New("down")}
	s, router := newTestServer(t, testConfig(), r)
	id, _ := s.forms.New()

	postForm(router, "/contact", url.Values{
		"form":     {id},
		"fullName": {"Ann"},
		"email":    {"a@x.com"},
		"message":  {"Hi"},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contact-form?form="+id, nil))
	assert.Contains(t, w.Body.String(), `value="Ann"`)
	assert.Equal(t, 1, s.forms.Len())
}

func TestContactAPI(t *testing.T) {
	tests := []struct {
		name     string
		relayErr error
		body     string
		wantCode int
		wantMsg  string
		calls    int
	}{
		{"sent", nil, `{"name":"Ann","email":"a@x.com","message":"Hi"}`, http.StatusOK, ContactSuccess, 1},
		{"incomplete", nil, `{"name":"","email":"a@x.com","message":"Hi"}`, http.StatusUnprocessableEntity, "required", 0},
		{"relay down", errors.New("NetworkError"), `{"name":"Ann","email":"a@x.com","message":"Hi"}`, http.StatusBadGateway, "sahil@example.com", 1},
		{"not json", nil, `name=Ann`, http.StatusBadRequest, "JSON", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRelay{err: tt.relayErr}
			_, router := newTestServer(t, testConfig(), r)

			req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			var resp struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode == http.StatusOK, resp.Success)
			assert.Contains(t, resp.Message, tt.wantMsg)
			assert.NotContains(t, resp.Message, "NetworkError")
			assert.Equal(t, tt.calls, r.calls())
		})
	}
}

func TestContactRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ContactRateLimit = 1
	r := &fakeRelay{}
	_, router := newTestServer(t, cfg, r)

	form := url.Values{"fullName": {"Ann"}, "email": {"a@x.com"}, "message": {"Hi"}}
	assert.Equal(t, http.StatusOK, postForm(router, "/contact", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, postForm(router, "/contact", form).Code)
	assert.Equal(t, 1, r.calls())
}

func TestContactAttemptsRecorded(t *testing.T) {
	r := &fakeRelay{}
	s, router := newTestServer(t, testConfig(), r)

	postForm(router, "/contact", url.Values{"fullName": {"Ann"}, "email": {"a@x.com"}, "message": {"Hi"}})
	postForm(router, "/contact", url.Values{"fullName": {"Ann"}})

	stats, err := s.adminStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ContactSent)
	assert.Equal(t, int64(1), stats.ContactRejected)
	assert.Equal(t, int64(0), stats.ContactFailed)
}

func TestSectionFragments(t *testing.T) {
	_, router := newTestServer(t, testConfig(), &fakeRelay{})

	tests := map[string]string{
		"/work-content":      "DNG Technology",
		"/education-content": "React, JavaScript",
		"/projects-content":  "AI Mock Interviewer",
	}
	for path, want := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), want, path)
	}
}

func TestToggleTheme(t *testing.T) {
	_, router := newTestServer(t, testConfig(), &fakeRelay{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/theme", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "theme=light")

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.AddCookie(&http.Cookie{Name: "theme", Value: "light"})
	req.Header.Set("HX-Request", "true")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "theme=dark")
	assert.Equal(t, "true", w.Header().Get("HX-Refresh"))
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, testConfig(), &fakeRelay{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	assert.Contains(t, w.Body.String(), `"redis":"disabled"`)
}

func TestContactFormRejectedHidesPreviousNotice(t *testing.T) {
	r := &fakeRelay{}
	s, router := newTestServer(t, testConfig(), r)
	id, _ := s.forms.New()

	w := postForm(router, "/contact", url.Values{
		"form":     {id},
		"fullName": {"Ann"},
		"email":    {"a@x.com"},
		"message":  {"Hi"},
	})
	require.Contains(t, w.Body.String(), ContactSuccess)

	w = postForm(router, "/contact", url.Values{
		"form":     {id},
		"fullName": {"   "},
		"email":    {"b@x.com"},
		"message":  {"again"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.NotContains(t, body, "notice")
	assert.NotContains(t, body, ContactSuccess)
	assert.Contains(t, body, `value="b@x.com"`)
	assert.Contains(t, body, ">again</textarea>")
	assert.Equal(t, 1, r.calls())
}

func TestRenderingFormsDoesNotRegister(t *testing.T) {
	s, router := newTestServer(t, testConfig(), &fakeRelay{})

	for i := 0; i < 3; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	fresh := uuid.NewString()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contact-form?form="+fresh, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="`+fresh+`"`)
	assert.Contains(t, w.Body.String(), `<button type="submit">Send Message</button>`)

	assert.Equal(t, 0, s.forms.Len())
}

// heldRelay blocks each send until release is closed.
type heldRelay struct {
	started chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (h *heldRelay) Send(ctx context.Context, p relay.Payload) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	h.started <- struct{}{}
	<-h.release
	return nil
}

func TestContactBusyWhileSending(t *testing.T) {
	h := &heldRelay{started: make(chan struct{}, 1), release: make(chan struct{})}

	st, err := openStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	content, err := portfolio.Load("")
	require.NoError(t, err)
	s := newServer(testConfig(), content, h, st, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := s.routes()

	id := uuid.NewString()
	body := `{"form_id":"` + id + `","name":"Ann","email":"a@x.com","message":"Hi"}`
	postJSON := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- postJSON() }()

	select {
	case <-h.started:
	case <-time.After(time.Second):
		t.Fatal("relay was never called")
	}

	w := postJSON()
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "still being sent")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contact-form?form="+id, nil))
	fragment := w.Body.String()
	assert.Contains(t, fragment, "Sending...")
	assert.Contains(t, fragment, "disabled>")
	assert.Contains(t, fragment, `hx-trigger="every 2s"`)

	close(h.release)
	select {
	case w = <-first:
	case <-time.After(time.Second):
		t.Fatal("first submit never finished")
	}
	assert.Equal(t, http.StatusOK, w.Code)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, 1, h.calls)
}
