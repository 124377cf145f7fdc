package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRequiresSession(t *testing.T) {
	_, router := newTestServer(t, testConfig(), &fakeRelay{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: "forged"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestAdminLoginFlow(t *testing.T) {
	_, router := newTestServer(t, testConfig(), &fakeRelay{})

	w := postForm(router, "/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = postForm(router, "/admin/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dashboard")

	req = httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"contact_sent":0`)
}

func TestAdminLoginDisabledWithoutPassword(t *testing.T) {
	cfg := testConfig()
	cfg.AdminPassword = ""
	s, _ := newTestServer(t, cfg, &fakeRelay{})

	assert.False(t, s.admin.checkCredentials("admin", ""))
}

func TestAdminTokenExpiry(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), &fakeRelay{})

	token, err := s.admin.issueToken(time.Now().Add(-2 * time.Hour))
	require.NoError(t, err)
	assert.Error(t, s.admin.verifyToken(token))

	token, err = s.admin.issueToken(time.Now())
	require.NoError(t, err)
	assert.NoError(t, s.admin.verifyToken(token))
}

func TestHashIPIsStableAndOpaque(t *testing.T) {
	s, _ := newTestServer(t, testConfig(), &fakeRelay{})

	h := s.admin.hashIP("203.0.113.7")
	assert.Len(t, h, 16)
	assert.Equal(t, h, s.admin.hashIP("203.0.113.7"))
	assert.NotEqual(t, h, s.admin.hashIP("203.0.113.8"))
	assert.NotContains(t, h, "203")
}

func TestVisitorTracking(t *testing.T) {
	cfg := testConfig()
	cfg.VisitorTracking = true
	s, router := newTestServer(t, cfg, &fakeRelay{})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	router.ServeHTTP(httptest.NewRecorder(), dnt)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/privacy", nil))

	assert.Eventually(t, func() bool {
		stats, err := s.store.stats(context.Background(), time.Now())
		return err == nil && stats.TotalVisitors == 1
	}, time.Second, 10*time.Millisecond)
}
