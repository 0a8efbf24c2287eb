// internal/toggle/toggle.go
//
// Toggle endpoints: flip one boolean field of a redirect entry and return
// the re-rendered indicator and control for the admin list.
//
// Context
// -------
// The admin list renders, for every entry, an indicator keyed by
// `data-redirect-active-indicator="<id>"` and a button keyed by
// `data-redirect-toggle-button="<id>"`.  The button POSTs to
//
//	POST /admin/redirects/{id}/toggle-active
//
// and the page swaps both elements with the fragments in the reply:
//
//	{"ok":true,"id":N,"is_active":B,"badge_html":"…","button_html":"…"}
//
// The same contract covers the status and fallback columns:
//
//	POST /admin/redirects/{id}/toggle-permanent   → "is_permanent" (301 vs 302)
//	POST /admin/redirects/{id}/toggle-fallback    → "is_fallback"
//
// keyed by data-redirect-permanent-* and data-redirect-fallback-*.
//
// Failures reply {"ok":false,"error":"…"} and carry no fragments, so the
// page never shows a half-updated row.
//
// Status codes
// ------------
//	400  id is not a positive integer
//	401  no session user
//	403  CSRF failure (csrf.Protect, before this handler)
//	404  unknown entry, or an entry on a site the user may not change
//	409  activation rejected by validation
//	500  store or ACL failure
//
// Notes
// -----
// • Fragments for the prospective state are rendered before the store is
//   touched; a render failure leaves the entry unchanged.
// • Oxford commas, two spaces after periods.

package toggle

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/auth"
	"github.com/yanizio/adept-redirects/internal/redirect"
)

// Route patterns served by Routes.
const (
	Path          = "/admin/redirects/{id}/toggle-active"
	PermanentPath = "/admin/redirects/{id}/toggle-permanent"
	FallbackPath  = "/admin/redirects/{id}/toggle-fallback"
)

// Authorizer is satisfied by acl.SiteAuthorizer.
type Authorizer interface {
	CanChange(ctx context.Context, userID int64, siteID uint64) (bool, error)
}

// field is one switchable column of an entry.
type field struct {
	key    string // reply key
	prefix string // fragment template prefix
	value  func(redirect.Entry) bool
	flip   func(*redirect.Store, context.Context, uint64) (bool, error)
}

var (
	activeField = field{
		key: "is_active", prefix: "active",
		value: func(e redirect.Entry) bool { return e.Active },
		flip:  (*redirect.Store).Toggle,
	}
	permanentField = field{
		key: "is_permanent", prefix: "permanent",
		value: func(e redirect.Entry) bool { return e.Status == redirect.StatusPermanent },
		flip: func(st *redirect.Store, ctx context.Context, id uint64) (bool, error) {
			status, err := st.TogglePermanent(ctx, id)
			return status == redirect.StatusPermanent, err
		},
	}
	fallbackField = field{
		key: "is_fallback", prefix: "fallback",
		value: func(e redirect.Entry) bool { return e.Fallback },
		flip:  (*redirect.Store).ToggleFallback,
	}
)

// Result is a successful toggle.  Value is the new state of Field.
type Result struct {
	ID         uint64
	Field      string
	Value      bool
	BadgeHTML  template.HTML
	ButtonHTML template.HTML
}

func (r Result) reply() map[string]any {
	return map[string]any{
		"ok":          true,
		"id":          r.ID,
		r.Field:       r.Value,
		"badge_html":  r.BadgeHTML,
		"button_html": r.ButtonHTML,
	}
}

// Handler is safe for concurrent use.
type Handler struct {
	store *redirect.Store
	authz Authorizer
}

// New returns a Handler.
func New(st *redirect.Store, authz Authorizer) *Handler {
	return &Handler{store: st, authz: authz}
}

// Routes mounts the endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post(Path, h.serve(activeField))
	r.Post(PermanentPath, h.serve(permanentField))
	r.Post(FallbackPath, h.serve(fallbackField))
}

// Toggle flips entry id's active flag on behalf of userID.  It returns
// redirect.ErrForbidden when the user may not change the entry's site.
func (h *Handler) Toggle(ctx context.Context, userID int64, id uint64) (Result, error) {
	return h.toggle(ctx, userID, id, activeField)
}

// TogglePermanent switches entry id between 301 and 302.
func (h *Handler) TogglePermanent(ctx context.Context, userID int64, id uint64) (Result, error) {
	return h.toggle(ctx, userID, id, permanentField)
}

// ToggleFallback flips entry id's fallback flag.
func (h *Handler) ToggleFallback(ctx context.Context, userID int64, id uint64) (Result, error) {
	return h.toggle(ctx, userID, id, fallbackField)
}

func (h *Handler) toggle(ctx context.Context, userID int64, id uint64, f field) (Result, error) {
	e, err := h.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	ok, err := h.authz.CanChange(ctx, userID, e.SiteID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, redirect.ErrForbidden
	}

	want := !f.value(e)
	badge, button, err := render(f.prefix, id, want)
	if err != nil {
		return Result{}, err
	}

	got, err := f.flip(h.store, ctx, id)
	if err != nil {
		return Result{}, err
	}
	if got != want {
		// Another writer flipped it between Get and the write.
		if badge, button, err = render(f.prefix, id, got); err != nil {
			return Result{}, err
		}
	}

	zap.L().Info("redirect toggled",
		zap.Int64("user_id", userID),
		zap.Uint64("site_id", e.SiteID),
		zap.Uint64("entry_id", id),
		zap.Bool(f.key, got))
	return Result{ID: id, Field: f.key, Value: got, BadgeHTML: badge, ButtonHTML: button}, nil
}

func (h *Handler) serve(f field) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id == 0 {
			fail(w, http.StatusBadRequest, "invalid id")
			return
		}
		userID, ok := auth.UserID(r.Context())
		if !ok {
			fail(w, http.StatusUnauthorized, "login required")
			return
		}

		res, err := h.toggle(r.Context(), userID, id, f)
		var ve *redirect.ValidationError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, res.reply())
		case errors.Is(err, redirect.ErrNotFound), errors.Is(err, redirect.ErrForbidden):
			fail(w, http.StatusNotFound, "redirect not found")
		case errors.As(err, &ve):
			fail(w, http.StatusConflict, ve.Error())
		default:
			zap.L().Error("redirect toggle failed",
				zap.String("field", f.key),
				zap.Uint64("entry_id", id), zap.Int64("user_id", userID), zap.Error(err))
			fail(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("toggle reply", zap.Error(err))
	}
}
