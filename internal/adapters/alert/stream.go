// Package alert delivers emitted alerts to external sinks.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/okian/cognitrend/internal/domain/model"
)

// DefaultStream is the Redis stream alerts are appended to.
const DefaultStream = "cognitrend:alerts"

// StreamSink appends alerts to a Redis stream as JSON.
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// StreamOption configures a StreamSink.
type StreamOption func(*StreamSink)

// WithStream overrides the stream name.
func WithStream(name string) StreamOption {
	return func(s *StreamSink) {
		if name != "" {
			s.stream = name
		}
	}
}

// WithMaxLen caps the stream length approximately. Zero keeps every entry.
func WithMaxLen(n int64) StreamOption {
	return func(s *StreamSink) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// NewStreamSink creates a sink on an existing client.
func NewStreamSink(client *redis.Client, opts ...StreamOption) *StreamSink {
	s := &StreamSink{client: client, stream: DefaultStream}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EmitAlert publishes a to the stream.
func (s *StreamSink) EmitAlert(ctx context.Context, a model.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"elder_id":  a.ElderID,
			"type":      a.Type,
			"severity":  a.Severity,
			"data":      string(payload),
			"timestamp": strconv.FormatInt(a.CreatedAt.Unix(), 10),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Ping verifies the Redis connection.
func (s *StreamSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *StreamSink) Close() error {
	return s.client.Close()
}

// Sink is the alert delivery contract.
type Sink interface {
	EmitAlert(ctx context.Context, a model.Alert) error
}

// Fanout delivers each alert to every sink.
type Fanout []Sink

// EmitAlert tries every sink and joins their errors.
func (f Fanout) EmitAlert(ctx context.Context, a model.Alert) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.EmitAlert(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
