// Package redisbus carries breakpoint requests and resolutions over Redis,
// so the operator surface can live in a different process than the runner.
// Requests are appended to a stream for dashboards to consume; resolutions
// travel back over a per-run list the paused runner blocks on.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/prodflowhq/prodflow/breakpoint"
)

const defaultPrefix = "prodflow:breakpoints"

type Bus struct {
	client   *goredis.Client
	addr     string
	password string
	db       int
	prefix   string
}

type Option func(*Bus)

func WithClient(client *goredis.Client) Option {
	return func(b *Bus) {
		if client != nil {
			b.client = client
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(b *Bus) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

func WithPassword(password string) Option {
	return func(b *Bus) { b.password = password }
}

func WithDB(db int) Option {
	return func(b *Bus) { b.db = db }
}

func New(addr string, opts ...Option) (*Bus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	b := &Bus{addr: addr, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = goredis.NewClient(&goredis.Options{
			Addr:     b.addr,
			Password: b.password,
			DB:       b.db,
		})
	}
	return b, nil
}

// Pause publishes the request and blocks until a resolution is pushed for
// the run. There is no timeout: a human decides when the run moves.
func (b *Bus) Pause(ctx context.Context, req breakpoint.Request) (breakpoint.Resolution, error) {
	runID := req.Context.RunID
	if runID == "" {
		return breakpoint.Resolution{}, fmt.Errorf("breakpoint request has no run id")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return breakpoint.Resolution{}, fmt.Errorf("failed to encode breakpoint request: %w", err)
	}
	err = b.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: b.requestsKey(),
		Values: map[string]any{"runId": runID, "request": string(payload)},
	}).Err()
	if err != nil {
		return breakpoint.Resolution{}, fmt.Errorf("failed to publish breakpoint request: %w", err)
	}

	// BLPOP with zero timeout blocks until a resolution arrives or the
	// context is cancelled.
	values, err := b.client.BLPop(ctx, 0, b.resolutionKey(runID)).Result()
	if err != nil {
		return breakpoint.Resolution{}, fmt.Errorf("failed to await breakpoint resolution: %w", err)
	}
	if len(values) != 2 {
		return breakpoint.Resolution{}, fmt.Errorf("unexpected BLPOP reply: %v", values)
	}
	var res breakpoint.Resolution
	if err := json.Unmarshal([]byte(values[1]), &res); err != nil {
		return breakpoint.Resolution{}, fmt.Errorf("failed to decode breakpoint resolution: %w", err)
	}
	if res.Kind != breakpoint.KindResume && res.Kind != breakpoint.KindAbort {
		return breakpoint.Resolution{}, fmt.Errorf("unknown resolution kind %q", res.Kind)
	}
	return res, nil
}

// Resolve pushes the operator's resolution to the paused run.
func (b *Bus) Resolve(ctx context.Context, runID string, res breakpoint.Resolution) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode resolution: %w", err)
	}
	if err := b.client.LPush(ctx, b.resolutionKey(runID), string(payload)).Err(); err != nil {
		return fmt.Errorf("failed to push resolution: %w", err)
	}
	return nil
}

// Requests returns the most recent published breakpoint requests, newest
// first, for operator dashboards.
func (b *Bus) Requests(ctx context.Context, limit int) ([]breakpoint.Request, error) {
	if limit <= 0 {
		limit = 50
	}
	messages, err := b.client.XRevRangeN(ctx, b.requestsKey(), "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read breakpoint requests: %w", err)
	}
	out := make([]breakpoint.Request, 0, len(messages))
	for _, msg := range messages {
		raw, ok := msg.Values["request"].(string)
		if !ok {
			continue
		}
		var req breakpoint.Request
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

func (b *Bus) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func (b *Bus) requestsKey() string {
	return b.prefix + ":requests"
}

func (b *Bus) resolutionKey(runID string) string {
	return b.prefix + ":resolution:" + runID
}
