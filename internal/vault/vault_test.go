package vault

import (
	"context"
	"testing"
	"time"
)

type fakeKV struct {
	calls int
	data  map[string]map[string]any
}

func (f *fakeKV) Get(_ context.Context, mount, rel string) (map[string]any, error) {
	f.calls++
	return f.data[mount+"/"+rel], nil
}

func TestGetKVCaches(t *testing.T) {
	f := &fakeKV{data: map[string]map[string]any{
		"secret/adept/db": {"password": "s3cret", "port": 3306},
	}}
	c := &Client{kv: f, cache: make(map[string]cached)}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := c.GetKV(ctx, "secret/adept/db", "password", time.Minute)
		if err != nil || got != "s3cret" {
			t.Fatalf("GetKV = %q, %v", got, err)
		}
	}
	if f.calls != 1 {
		t.Fatalf("want 1 backend call, got %d", f.calls)
	}

	if _, err := c.GetKV(ctx, "secret/adept/db", "missing", 0); err == nil {
		t.Fatalf("expected missing-key error")
	}
	if _, err := c.GetKV(ctx, "secret/adept/db", "port", 0); err == nil {
		t.Fatalf("expected non-string error")
	}
	if _, err := c.GetKV(ctx, "", "x", 0); err == nil {
		t.Fatalf("expected empty-path error")
	}
}

func TestSplitMount(t *testing.T) {
	m, r := splitMount("secret/adept/db")
	if m != "secret" || r != "adept/db" {
		t.Fatalf("splitMount = %q, %q", m, r)
	}
}
