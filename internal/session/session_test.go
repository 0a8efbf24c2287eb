package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yanizio/adept-redirects/internal/auth"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New([]byte("session-key-session-key-session-key!"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// login returns the cookie LoginUser sets for id.
func login(m *Manager, id int64) *http.Cookie {
	rr := httptest.NewRecorder()
	m.LoginUser(rr, httptest.NewRequest(http.MethodPost, "/login", nil), id)
	return rr.Result().Cookies()[0]
}

func TestLoadAttachesUser(t *testing.T) {
	m := newManager(t)
	var got int64
	var ok bool
	h := m.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(login(m, 42))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got != 42 {
		t.Fatalf("UserID = %d, %v; want 42, true", got, ok)
	}

	ok = false
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin", nil))
	if ok {
		t.Fatalf("user attached without a cookie")
	}
}

func TestRejectsTamperedAndExpired(t *testing.T) {
	m := newManager(t)
	c := login(m, 7)

	other, _ := New([]byte("another-key-another-key-another-key"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if _, ok := other.CurrentUser(req); ok {
		t.Fatalf("cookie verified under another key")
	}

	m.now = func() time.Time { return time.Now().Add(Lifetime + time.Hour) }
	if _, ok := m.CurrentUser(req); ok {
		t.Fatalf("expired cookie accepted")
	}
}

func TestLogoutClears(t *testing.T) {
	rr := httptest.NewRecorder()
	LogoutUser(rr, httptest.NewRequest(http.MethodPost, "/logout", nil))
	c := rr.Result().Cookies()[0]
	if c.Name != CookieName || c.MaxAge >= 0 {
		t.Fatalf("unexpected cookie: %+v", c)
	}
}
