// internal/session/session.go
//
// Signed session cookie carrying the logged-in user id.
//
// Context
//   Login itself lives in the host application.  This package only needs
//   to agree with it on one cookie, “adept_session”, whose value is
//
//      base64url( userID | expiryUnix | HMAC_SHA256(key, userID+expiryUnix) )
//
//   with both integers 8 bytes, big-endian.  Load verifies the cookie on
//   every admin request and attaches the user id to the context through
//   auth.WithUser.  A missing or invalid cookie is not an error; the request
//   simply carries no user and handlers answer 401.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"time"

	"github.com/yanizio/adept-redirects/internal/auth"
)

const (
	CookieName = "adept_session"
	Lifetime   = 14 * 24 * time.Hour

	valueBytes = 8 + 8 + sha256.Size
)

// ErrShortKey is returned by New for keys under 32 bytes.
var ErrShortKey = errors.New("session: key must be at least 32 bytes")

// Manager signs and verifies session cookies.
type Manager struct {
	key []byte
	now func() time.Time
}

// New returns a Manager keyed with key.
func New(key []byte) (*Manager, error) {
	if len(key) < 32 {
		return nil, ErrShortKey
	}
	return &Manager{key: append([]byte(nil), key...), now: time.Now}, nil
}

// LoginUser sets a session cookie for userID.
//
// Callers typically invoke this after credential verification succeeds.
func (m *Manager) LoginUser(w http.ResponseWriter, r *http.Request, userID int64) {
	exp := m.now().Add(Lifetime)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.encode(userID, exp),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil, // only send over HTTPS
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// LogoutUser clears the session cookie.
func LogoutUser(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// CurrentUser returns the user id stored in a valid session cookie.
//
// ok == false when the cookie is missing, tampered with, or expired.
func (m *Manager) CurrentUser(r *http.Request) (userID int64, ok bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	return m.decode(c.Value)
}

// Load attaches the session user, if any, to the request context.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.CurrentUser(r); ok {
			r = r.WithContext(auth.WithUser(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) encode(userID int64, exp time.Time) string {
	buf := make([]byte, 16, valueBytes)
	binary.BigEndian.PutUint64(buf[:8], uint64(userID))
	binary.BigEndian.PutUint64(buf[8:], uint64(exp.Unix()))
	buf = append(buf, m.sign(buf)...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

func (m *Manager) decode(v string) (int64, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil || len(raw) != valueBytes {
		return 0, false
	}
	if !hmac.Equal(raw[16:], m.sign(raw[:16])) {
		return 0, false
	}
	exp := time.Unix(int64(binary.BigEndian.Uint64(raw[8:16])), 0)
	if !m.now().Before(exp) {
		return 0, false
	}
	id := int64(binary.BigEndian.Uint64(raw[:8]))
	return id, id > 0
}

func (m *Manager) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
