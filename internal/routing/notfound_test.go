// internal/routing/notfound_test.go
//
// Unit-tests for the not-found redirect middleware.
//
// Context
// -------
// Each test builds a real Store + Cache + Resolver over the in-memory
// repository, wraps a fake host handler, and fires httptest requests with
// a Tenant already in the context.
//
// Run: go test ./internal/routing -v

package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/site"
	"github.com/yanizio/adept-redirects/internal/tenant"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// host serves /exists and 404s everything else with a body.
var host = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/exists" {
		w.Write([]byte("page"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("host 404"))
})

type fixture struct {
	store *redirect.Store
	repo  *redirect.MemoryRepository
	h     http.Handler
}

func newFixture(t *testing.T, record bool, ignored ...string) *fixture {
	t.Helper()
	repo := redirect.NewMemoryRepository()
	c := redirect.NewCache(repo, 0, 0)
	t.Cleanup(c.Close)
	st := redirect.NewStore(repo, c)

	nf, err := NewNotFound(redirect.NewResolver(c, nil), st, record, ignored)
	if err != nil {
		t.Fatalf("NewNotFound: %v", err)
	}
	return &fixture{store: st, repo: repo, h: nf.Middleware(host)}
}

func (f *fixture) do(method, target string, siteID uint64, cfg map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("User-Agent", browserUA)
	if siteID != 0 {
		ten := &tenant.Tenant{Site: site.Record{ID: siteID, Host: req.Host}, Config: cfg}
		req = req.WithContext(tenant.WithTenant(req.Context(), ten))
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) add(t *testing.T, e redirect.Entry) {
	t.Helper()
	e.Active = true
	if _, err := f.store.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestRedirectsOnHostNotFound(t *testing.T) {
	f := newFixture(t, false)
	f.add(t, redirect.Entry{SiteID: 1, Source: "/old", Destination: redirect.URL("/new"),
		Status: redirect.StatusPermanent})

	rr := f.do(http.MethodGet, "http://one.example/old", 1, nil)
	if rr.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "http://one.example/new" {
		t.Fatalf("Location = %q", got)
	}
}

func TestAbsoluteDestinationKept(t *testing.T) {
	f := newFixture(t, false)
	f.add(t, redirect.Entry{SiteID: 1, Source: `/blog/(\d+)/.*`, IsRegex: true,
		Destination: redirect.URL("https://news.example/posts/$1")})

	rr := f.do(http.MethodGet, "http://one.example/blog/42/hello", 1, nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "https://news.example/posts/42" {
		t.Fatalf("got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestPatternMatchesQueryString(t *testing.T) {
	f := newFixture(t, false)
	f.add(t, redirect.Entry{SiteID: 1, Source: `/search\?q=.*union.*`, IsRegex: true,
		Destination: redirect.URL("/")})

	rr := f.do(http.MethodGet, "http://one.example/search?q=1+union+select+1", 1, nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "http://one.example/" {
		t.Fatalf("got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if rr := f.do(http.MethodGet, "http://one.example/search?q=shoes", 1, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unrelated query: status = %d, want 404", rr.Code)
	}
}

func TestPatternMatchIgnoresCase(t *testing.T) {
	f := newFixture(t, false)
	f.add(t, redirect.Entry{SiteID: 1, Source: `/wp-login\.php`, IsRegex: true,
		Destination: redirect.URL("/")})

	if rr := f.do(http.MethodGet, "http://one.example/WP-Login.PHP", 1, nil); rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
}

func TestHostPagesUntouched(t *testing.T) {
	f := newFixture(t, false)
	f.add(t, redirect.Entry{SiteID: 1, Source: "/exists", Destination: redirect.URL("/elsewhere")})

	rr := f.do(http.MethodGet, "http://one.example/exists", 1, nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "page" {
		t.Fatalf("got %d %q", rr.Code, rr.Body.String())
	}
}

func TestNoMatchReplaysHost404(t *testing.T) {
	f := newFixture(t, false)
	rr := f.do(http.MethodGet, "http://one.example/missing", 1, nil)
	if rr.Code != http.StatusNotFound || rr.Body.String() != "host 404" {
		t.Fatalf("got %d %q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestOtherSitesEntriesIgnored(t *testing.T) {
	f := newFixture(t, false)
	f.add(t, redirect.Entry{SiteID: 2, Source: "/old", Destination: redirect.URL("/new")})

	if rr := f.do(http.MethodGet, "http://one.example/old", 1, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestNoTenantOrPost(t *testing.T) {
	f := newFixture(t, false)
	f.add(t, redirect.Entry{SiteID: 1, Source: "/old", Destination: redirect.URL("/new")})

	if rr := f.do(http.MethodGet, "http://unknown.example/old", 0, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("no tenant: status = %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "http://one.example/old", 1, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("POST: status = %d", rr.Code)
	}
}

func TestIgnoredPaths(t *testing.T) {
	f := newFixture(t, true, `^/static/`)
	f.add(t, redirect.Entry{SiteID: 1, Source: `/static/.*`, IsRegex: true,
		Destination: redirect.URL("/")})

	if rr := f.do(http.MethodGet, "http://one.example/static/app.css", 1, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	rows, _ := f.repo.List(context.Background(), redirect.Filter{SiteID: 1, IsRegex: redirect.Bool(false)})
	if len(rows) != 0 {
		t.Fatalf("ignored path recorded: %+v", rows)
	}
}

func TestRecordsMisses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	// Global default off, site override on.
	f.do(http.MethodGet, "http://one.example/gone/", 1, map[string]string{"redirects.record_misses": "true"})
	f.do(http.MethodGet, "http://one.example/gone", 1, map[string]string{"redirects.record_misses": "true"})
	f.do(http.MethodGet, "http://two.example/gone", 2, nil)

	rows, _ := f.repo.List(ctx, redirect.Filter{})
	if len(rows) != 1 {
		t.Fatalf("want 1 recorded miss, got %+v", rows)
	}
	if e := rows[0]; e.SiteID != 1 || e.Source != "/gone" || e.Active || !e.Destination.Empty() {
		t.Fatalf("unexpected recorded entry: %+v", e)
	}
}

func TestBotMissesNotRecorded(t *testing.T) {
	f := newFixture(t, true)
	req := httptest.NewRequest(http.MethodGet, "http://one.example/wp-login.php", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	ten := &tenant.Tenant{Site: site.Record{ID: 1}}
	req = req.WithContext(tenant.WithTenant(req.Context(), ten))
	f.h.ServeHTTP(httptest.NewRecorder(), req)

	if rows, _ := f.repo.List(context.Background(), redirect.Filter{}); len(rows) != 0 {
		t.Fatalf("bot miss recorded: %+v", rows)
	}
}

func TestNewNotFoundRejectsBadPattern(t *testing.T) {
	if _, err := NewNotFound(nil, nil, false, []string{"("}); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestAbsolute(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://one.example/x", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	cases := map[string]string{
		"/a":                 "https://one.example/a",
		"b":                  "https://one.example/b",
		"http://other.test/": "http://other.test/",
	}
	for in, want := range cases {
		if got := absolute(r, in); got != want {
			t.Errorf("absolute(%q) = %q, want %q", in, got, want)
		}
	}
}
