// internal/routing/notfound.go
//
// Not-found redirect middleware.
//
// Context
// -------
// The host application owns routing.  This middleware sits in front of it
// and only acts when the host answers 404: the response is held back, the
// path is resolved against the request's site, and either a redirect is
// written or the host's original 404 is replayed untouched.
//
// Workflow
// --------
//  1. tenant.Middleware has stored the request's site in the context.
//  2. next runs with a writer that buffers a 404 instead of sending it.
//  3. GET and HEAD misses are resolved; a hit becomes a 301/302 with an
//     absolute Location.
//  4. On no match, the path may be recorded as an inactive entry for
//     operators (non-bot traffic only), and the buffered 404 is replayed.
//
// Notes
// -----
// • Resolution never fails the request; the resolver logs and reports "no
//   match" on any internal error.
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.

package routing

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/metrics"
	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/tenant"
	"github.com/yanizio/adept-redirects/internal/ua"
)

// Resolver is satisfied by *redirect.Resolver.
type Resolver interface {
	ResolveRequest(ctx context.Context, siteID uint64, path, rawQuery string) (redirect.Target, bool)
}

// MissRecorder is satisfied by *redirect.Store.
type MissRecorder interface {
	RecordMiss(ctx context.Context, siteID uint64, path string) (bool, error)
}

// NotFound holds the middleware's dependencies.  Construct with NewNotFound.
type NotFound struct {
	resolver     Resolver
	misses       MissRecorder
	recordMisses bool
	ignored      []*regexp.Regexp
}

// NewNotFound compiles ignored and returns a ready NotFound.  misses may be
// nil, which disables miss recording whatever the site settings say.
// recordMisses is the default for sites without a `redirects.record_misses`
// override.
func NewNotFound(res Resolver, misses MissRecorder, recordMisses bool, ignored []string) (*NotFound, error) {
	n := &NotFound{resolver: res, misses: misses, recordMisses: recordMisses}
	for _, p := range ignored {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("ignored path %q: %w", p, err)
		}
		n.ignored = append(n.ignored, re)
	}
	return n, nil
}

// Middleware wraps next, the host handler.
func (n *NotFound) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, ok := tenant.FromContext(r.Context())
		if !ok || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			next.ServeHTTP(w, r)
			return
		}

		bw := &bufferedWriter{ResponseWriter: w}
		next.ServeHTTP(bw, r)
		if !bw.held {
			return
		}

		path := r.URL.Path
		if n.isIgnored(path) {
			metrics.RedirectResolveTotal.WithLabelValues(metrics.OutcomeIgnored).Inc()
			bw.replay()
			return
		}

		if target, ok := n.resolver.ResolveRequest(r.Context(), t.ID(), path, r.URL.RawQuery); ok {
			loc := absolute(r, target.Location)
			zap.L().Debug("redirect",
				zap.Uint64("site_id", t.ID()),
				zap.Uint64("entry_id", target.Entry.ID),
				zap.String("path", path),
				zap.String("location", loc))
			h := w.Header()
			h.Del("Content-Length")
			h.Del("Content-Type")
			http.Redirect(w, r, loc, target.Status)
			return
		}

		n.recordMiss(r, t, path)
		bw.replay()
	})
}

func (n *NotFound) isIgnored(path string) bool {
	for _, re := range n.ignored {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (n *NotFound) recordMiss(r *http.Request, t *tenant.Tenant, path string) {
	if n.misses == nil || !t.RecordMisses(n.recordMisses) || ua.FromRequest(r) {
		return
	}
	created, err := n.misses.RecordMiss(context.WithoutCancel(r.Context()), t.ID(), path)
	switch {
	case err != nil && redirect.IsValidationError(err):
		zap.L().Debug("miss not recorded", zap.String("path", path), zap.Error(err))
	case err != nil:
		zap.L().Warn("miss recording failed",
			zap.Uint64("site_id", t.ID()), zap.String("path", path), zap.Error(err))
	case created:
		metrics.RedirectMissesRecordedTotal.Inc()
	}
}

// absolute makes a scheme-less, host-less destination absolute using the
// request's scheme and host.
func absolute(r *http.Request, loc string) string {
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return loc
	}
	if !strings.HasPrefix(loc, "/") {
		loc = "/" + loc
	}
	return scheme(r) + "://" + r.Host + loc
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "https" || p == "http" {
		return p
	}
	return "http"
}

// -----------------------------------------------------------------------------
// bufferedWriter
// -----------------------------------------------------------------------------

// bufferedWriter passes every response straight through except a 404, whose
// body is held until replay.
type bufferedWriter struct {
	http.ResponseWriter
	wrote bool
	held  bool
	body  bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wrote {
		return
	}
	b.wrote = true
	if code == http.StatusNotFound {
		b.held = true
		return
	}
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.wrote {
		b.WriteHeader(http.StatusOK)
	}
	if b.held {
		return b.body.Write(p)
	}
	return b.ResponseWriter.Write(p)
}

// Flush is a no-op while a 404 is held.
func (b *bufferedWriter) Flush() {
	if b.held {
		return
	}
	if f, ok := b.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (b *bufferedWriter) Unwrap() http.ResponseWriter { return b.ResponseWriter }

func (b *bufferedWriter) replay() {
	b.ResponseWriter.WriteHeader(http.StatusNotFound)
	if b.body.Len() > 0 {
		b.ResponseWriter.Write(b.body.Bytes())
	}
}
