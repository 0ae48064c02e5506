package redisdedup

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/quotagate/pkg/billing"
)

const (
	DefaultTTL       = 72 * time.Hour
	DefaultKeyPrefix = "quotagate:webhook:"
)

var (
	ErrEmptyEventID = errors.New("webhook event id is empty")
	ErrUnavailable  = errors.New("dedup store unavailable")
)

// Client is the subset of redis.UniversalClient the deduper uses.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Deduper is a billing.EventDeduper backed by Redis.
type Deduper struct {
	client Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ billing.EventDeduper = (*Deduper)(nil)

// Option configures a Deduper.
type Option func(*Deduper)

// WithTTL sets how long a claimed event id is remembered.
func WithTTL(ttl time.Duration) Option {
	return func(d *Deduper) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces claim keys.
func WithKeyPrefix(prefix string) Option {
	return func(d *Deduper) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// New creates a Deduper. Panics if client is nil.
func New(client Client, opts ...Option) *Deduper {
	if client == nil {
		panic("redisdedup: client is required")
	}
	d := &Deduper{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Claim returns true when the event id was not seen before.
func (d *Deduper) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}
	ok, err := d.client.SetNX(ctx, d.key(eventID), d.now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}
	return ok, nil
}

// Release forgets a claim so the event can be processed again.
func (d *Deduper) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	if err := d.client.Del(ctx, d.key(eventID)).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (d *Deduper) key(eventID string) string {
	return d.prefix + eventID
}
