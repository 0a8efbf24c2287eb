package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

type sent struct {
	channel, msg string
}

type fakeRedis struct {
	out []sent
	err error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.out = append(f.out, sent{channel, message.(string)})
	return redis.NewIntResult(1, f.err)
}

type recorder struct {
	sites []uint64
	all   int
}

func (r *recorder) Invalidate(id uint64) { r.sites = append(r.sites, id) }
func (r *recorder) InvalidateAll()       { r.all++ }

func TestEncodeDecode(t *testing.T) {
	for _, id := range []uint64{0, 1, 4242} {
		got, err := Decode(Encode(id))
		if err != nil || got != id {
			t.Fatalf("round trip %d: got %d, %v", id, got, err)
		}
	}
	for _, bad := range []string{"", "site:", "site:x", "site:0", "flush"} {
		if _, err := Decode(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestPublisher(t *testing.T) {
	f := &fakeRedis{}
	p := newPublisher(f, "")
	p.Invalidate(7)
	p.InvalidateAll()

	if len(f.out) != 2 {
		t.Fatalf("want 2 messages, got %d", len(f.out))
	}
	if f.out[0] != (sent{DefaultChannel, "site:7"}) || f.out[1] != (sent{DefaultChannel, "all"}) {
		t.Fatalf("unexpected messages: %+v", f.out)
	}

	// Publish errors are logged, never surfaced.
	f.err = errors.New("down")
	p.Invalidate(1)
}

func TestApply(t *testing.T) {
	r := &recorder{}
	if err := Apply(r, "site:3"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := Apply(r, "all"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := Apply(r, "nonsense"); err == nil {
		t.Fatalf("expected error")
	}
	if len(r.sites) != 1 || r.sites[0] != 3 || r.all != 1 {
		t.Fatalf("unexpected calls: %+v", r)
	}
}
