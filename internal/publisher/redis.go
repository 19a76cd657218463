package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"MarketScanner/internal/model"
	"MarketScanner/internal/orchestrator"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisOptions configures the Redis publisher.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisPublisher stores each detector's latest table under a key and
// announces every cycle on a pub/sub channel.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPublisher connects and pings Redis.
func NewRedisPublisher(opts RedisOptions) (*RedisPublisher, error) {
	if opts.Prefix == "" {
		opts.Prefix = "scanner"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPublisher{client: client, prefix: opts.Prefix, ttl: opts.TTL}, nil
}

// CycleEvent is the message published on the cycles channel.
type CycleEvent struct {
	Number     int            `json:"number"`
	FinishedAt time.Time      `json:"finished_at"`
	Signals    map[string]int `json:"signals"`
	Errors     int            `json:"errors"`
}

// entry is one key/value write.
type entry struct {
	key   string
	value []byte
}

// Publish writes all tables and the cycle event in a single transaction.
func (p *RedisPublisher) Publish(ctx context.Context, c *orchestrator.Cycle) error {
	entries, event, err := encodeCycle(p.prefix, c)
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	for _, e := range entries {
		pipe.Set(ctx, e.key, e.value, p.ttl)
	}
	pipe.Publish(ctx, ChannelKey(p.prefix), event)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish cycle %d: %w", c.Number, err)
	}
	log.Debug().Int("cycle", c.Number).Int("keys", len(entries)).Msg("cycle published to redis")
	return nil
}

func (p *RedisPublisher) Close() error { return p.client.Close() }

// ResultsKey returns the key holding a detector's latest table.
func ResultsKey(prefix, detector string) string {
	return prefix + ":results:" + slug(detector)
}

// ChannelKey returns the pub/sub channel for cycle events.
func ChannelKey(prefix string) string { return prefix + ":cycles" }

func encodeCycle(prefix string, c *orchestrator.Cycle) ([]entry, []byte, error) {
	event := CycleEvent{
		Number:     c.Number,
		FinishedAt: c.FinishedAt,
		Signals:    make(map[string]int, len(c.Results)),
		Errors:     len(c.Errors),
	}
	var entries []entry
	for _, t := range c.Tables() {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal %s: %w", t.Detector, err)
		}
		entries = append(entries, entry{key: ResultsKey(prefix, t.Detector), value: data})
		event.Signals[t.Detector] = t.Len()
	}
	errs := c.Errors
	if errs == nil {
		errs = []model.ScanError{}
	}
	errData, err := json.Marshal(errs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal errors: %w", err)
	}
	entries = append(entries, entry{key: prefix + ":errors", value: errData})

	eventData, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal event: %w", err)
	}
	return entries, eventData, nil
}

func slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}
