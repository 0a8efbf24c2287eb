// internal/csrf/csrf.go
//
// Stateless CSRF protection for the admin endpoints.
//
// Context
// -------
// Admin pages call JSON endpoints from script, so the token travels as a
// double-submit pair: a `csrftoken` cookie the browser stores, and the same
// value copied into the `X-CSRFToken` header by the page.  The token itself
// is stateless:
//
//	base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   - nonce: 16 random bytes.
//   - unixMicro: microseconds since Unix epoch, 8 bytes, big-endian.
//   - HMAC: keyed with the configured secret, so a cookie planted by a
//     sibling subdomain does not verify.
//
// Workflow
// --------
//   - Protect issues a fresh cookie on safe methods when the request has no
//     valid one.
//   - Unsafe methods need header == cookie and a verifying token, or the
//     request ends with 403 and a JSON failure body.
//
// Notes
// -----
// • Multi-instance safe; every instance only needs the same secret.
// • Oxford commas, two spaces after periods.

package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	CookieName = "csrftoken"
	HeaderName = "X-CSRFToken"

	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig
	MaxAge     = 12 * time.Hour       // token valid window
	skew       = time.Minute
)

// ErrShortSecret is returned by New for secrets under 32 bytes.
var ErrShortSecret = errors.New("csrf: secret must be at least 32 bytes")

// Guard issues and verifies tokens.
type Guard struct {
	secret []byte
	now    func() time.Time
}

// New returns a Guard keyed with secret.
func New(secret []byte) (*Guard, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &Guard{secret: append([]byte(nil), secret...), now: time.Now}, nil
}

// Token creates a new token.
func (g *Guard) Token() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(g.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, g.sign(nonce, ts)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify returns true if tok passes HMAC and age checks.
func (g *Guard) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	nonce, ts, sig := raw[:16], raw[16:24], raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(ts)))
	now := g.now()
	if now.Sub(issued) > MaxAge || issued.Sub(now) > skew {
		return false
	}
	return hmac.Equal(sig, g.sign(nonce, ts))
}

func (g *Guard) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}

// Check reports whether r carries a matching, verifying cookie/header pair.
func (g *Guard) Check(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	h := r.Header.Get(HeaderName)
	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(h)) != 1 {
		return false
	}
	return g.Verify(c.Value)
}

// Protect is the middleware form.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			if c, err := r.Cookie(CookieName); err != nil || !g.Verify(c.Value) {
				g.issue(w, r)
			}
			next.ServeHTTP(w, r)
			return
		}
		if !g.Check(r) {
			zap.L().Info("csrf check failed",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "csrf check failed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) issue(w http.ResponseWriter, r *http.Request) {
	tok, err := g.Token()
	if err != nil {
		zap.L().Error("csrf token", zap.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(MaxAge / time.Second),
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		// Readable by script: the page copies it into the header.
		HttpOnly: false,
	})
}
