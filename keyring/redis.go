package keyring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRingNotPublished is returned by Load when no ring has been published yet.
var ErrRingNotPublished = errors.New("no ring published")

const defaultDistributorPrefix = "gosession:ring"

// DistributorConfig configures a Distributor.
type DistributorConfig struct {
	// Prefix namespaces the Redis keys and channel. Defaults to "gosession:ring".
	Prefix string
	// KEK seals the ring at rest and in transit. Must be 32 bytes.
	KEK []byte
	// Logger receives watch errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// Distributor shares a sealed ring between processes through Redis.
//
// Publish stores the sealed ring and notifies subscribers; Watch applies every
// notification to a Holder. Rotation remains an administrative action: nothing here
// generates keys.
type Distributor struct {
	client  redis.UniversalClient
	kek     []byte
	blobKey string
	genKey  string
	channel string
	logger  *slog.Logger
}

// NewDistributor validates cfg and returns a distributor bound to client.
func NewDistributor(client redis.UniversalClient, cfg DistributorConfig) (*Distributor, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if len(cfg.KEK) != 32 {
		return nil, ErrInvalidKEK
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultDistributorPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Distributor{
		client:  client,
		kek:     append([]byte(nil), cfg.KEK...),
		blobKey: prefix + ":sealed",
		genKey:  prefix + ":generation",
		channel: prefix + ":rotated",
		logger:  logger,
	}, nil
}

// Channel returns the pub/sub channel carrying rotation notices.
func (d *Distributor) Channel() string { return d.channel }

// Publish seals ring, stores it, and notifies watchers. It returns the new generation.
func (d *Distributor) Publish(ctx context.Context, ring *Ring) (int64, error) {
	blob, err := Seal(ring, d.kek)
	if err != nil {
		return 0, err
	}

	var gen *redis.IntCmd
	_, err = d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, d.blobKey, blob, 0)
		gen = pipe.Incr(ctx, d.genKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	generation := gen.Val()
	if err := d.client.Publish(ctx, d.channel, generation).Err(); err != nil {
		return generation, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return generation, nil
}

// Load reads and opens the currently published ring.
func (d *Distributor) Load(ctx context.Context) (*Ring, error) {
	blob, err := d.client.Get(ctx, d.blobKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRingNotPublished
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Open(blob, d.kek)
}

// Watch subscribes to rotation notices and stores each newly published ring in holder
// until ctx is done. validate, when non-nil, may veto a ring before it is stored.
func (d *Distributor) Watch(ctx context.Context, holder *Holder, validate func(*Ring) error) (stop func(), err error) {
	if holder == nil {
		return nil, errors.New("holder is nil")
	}
	return d.WatchFunc(ctx, func(_ context.Context, ring *Ring) error {
		if validate != nil {
			if err := validate(ring); err != nil {
				return err
			}
		}
		return holder.Store(ring)
	})
}

// WatchFunc subscribes to rotation notices and passes each newly published ring to apply.
//
// WatchFunc returns once the subscription is confirmed; delivery happens on a background
// goroutine. The returned stop function unsubscribes and waits for that goroutine.
func (d *Distributor) WatchFunc(ctx context.Context, apply func(context.Context, *Ring) error) (stop func(), err error) {
	if apply == nil {
		return nil, errors.New("apply func is nil")
	}

	sub := d.client.Subscribe(ctx, d.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				d.apply(watchCtx, apply, msg.Payload)
			}
		}
	}()

	return func() {
		cancel()
		_ = sub.Close()
		<-done
	}, nil
}

func (d *Distributor) apply(ctx context.Context, apply func(context.Context, *Ring) error, generation string) {
	ring, err := d.Load(ctx)
	if err != nil {
		d.logger.Error("keyring: load published ring failed", "generation", generation, "error", err)
		return
	}
	if err := apply(ctx, ring); err != nil {
		d.logger.Warn("keyring: published ring rejected", "generation", generation, "error", err)
		return
	}
	d.logger.Info("keyring: applied published ring", "generation", generation, "active", ring.Active().ID(), "keys", ring.Len())
}
