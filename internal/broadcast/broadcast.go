// internal/broadcast/broadcast.go
//
// Cross-process cache invalidation over Redis pub/sub.
//
// Context
// -------
// Each web process keeps its own resolution cache.  A write made by another
// process (a second web instance, or the `redirects` CLI) must still reach
// every cache, so the writer publishes an invalidation on a shared channel
// and every web process applies it locally.
//
// Wire format (one message per invalidation):
//
//	site:<id>   drop one site's snapshot
//	all         drop every snapshot
//
// Delivery is best-effort.  After any (re)subscribe the subscriber drops
// every local snapshot, since messages sent while it was disconnected are
// gone.
//
// Notes
// -----
// • An empty Redis address disables broadcasting; callers then use the
//   local cache alone.
// • Oxford commas, two spaces after periods.

package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/redirect"
)

// DefaultChannel is used when config leaves redis.channel empty.
const DefaultChannel = "adept:redirects:invalidate"

const publishTimeout = 2 * time.Second

const msgAll = "all"

// Encode renders an invalidation.  Zero means all sites.
func Encode(siteID uint64) string {
	if siteID == 0 {
		return msgAll
	}
	return "site:" + strconv.FormatUint(siteID, 10)
}

// Decode parses a message produced by Encode.  It returns zero for "all".
func Decode(payload string) (uint64, error) {
	payload = strings.TrimSpace(payload)
	if payload == msgAll {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(payload, "site:")
	if !ok {
		return 0, fmt.Errorf("unknown invalidation message %q", payload)
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("bad site id in %q", payload)
	}
	return id, nil
}

// publisher is the slice of *redis.Client the Publisher uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher is a redirect.Invalidator that announces invalidations to other
// processes.  Failures are logged; the local write has already committed.
type Publisher struct {
	rdb     publisher
	channel string
}

var _ redirect.Invalidator = (*Publisher)(nil)

// NewPublisher returns a Publisher on channel.
func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	return newPublisher(rdb, channel)
}

func newPublisher(rdb publisher, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Invalidate(siteID uint64) { p.send(Encode(siteID)) }
func (p *Publisher) InvalidateAll()           { p.send(msgAll) }

func (p *Publisher) send(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, msg).Err(); err != nil {
		zap.L().Warn("redirect invalidation not broadcast",
			zap.String("channel", p.channel),
			zap.String("message", msg),
			zap.Error(err))
	}
}

// Apply hands one received payload to target.
func Apply(target redirect.Invalidator, payload string) error {
	id, err := Decode(payload)
	if err != nil {
		return err
	}
	if id == 0 {
		target.InvalidateAll()
	} else {
		target.Invalidate(id)
	}
	return nil
}

// Subscribe applies invalidations from channel to target until ctx is done.
// It blocks; run it in a goroutine.
func Subscribe(ctx context.Context, rdb *redis.Client, channel string, target redirect.Invalidator) {
	if channel == "" {
		channel = DefaultChannel
	}
	ps := rdb.Subscribe(ctx, channel)
	defer ps.Close()

	backoff := time.Second
	for {
		msg, err := ps.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			zap.L().Warn("redirect invalidation channel error",
				zap.String("channel", channel), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				target.InvalidateAll()
				zap.L().Info("redirect invalidation channel subscribed",
					zap.String("channel", m.Channel))
			}
		case *redis.Message:
			if err := Apply(target, m.Payload); err != nil {
				zap.L().Warn("redirect invalidation ignored", zap.Error(err))
			}
		}
	}
}
