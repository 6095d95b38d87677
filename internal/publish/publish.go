// Package publish streams detections to Redis so downstream consumers can act
// on a validation run.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sbenjam1n/validb/internal/detection"
)

// DefaultStream is the stream detections are published to.
const DefaultStream = "validb_detections"

// Message is the payload of one stream entry.
type Message struct {
	RunID         string `json:"run_id"`
	ID            string `json:"id"`
	Level         int    `json:"level"`
	DetectionType string `json:"detection_type"`
	Message       string `json:"message"`
	Truncated     bool   `json:"truncated,omitempty"`
}

// Entry is a message read back from the stream.
type Entry struct {
	StreamID string
	Message
}

// Publisher writes detection messages to a Redis stream.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithStream overrides the stream name.
func WithStream(stream string) Option {
	return func(p *Publisher) {
		if stream != "" {
			p.stream = stream
		}
	}
}

// WithMaxLen caps the stream at roughly n entries. Zero leaves it unbounded.
func WithMaxLen(n int64) Option {
	return func(p *Publisher) { p.maxLen = n }
}

// New creates a Publisher from a Redis client.
func New(client *redis.Client, opts ...Option) *Publisher {
	p := &Publisher{client: client, stream: DefaultStream}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stream returns the stream name.
func (p *Publisher) Stream() string { return p.stream }

// NewRunID returns a fresh identifier for one validation run.
func NewRunID() string {
	return uuid.NewString()
}

// NewMessage builds the message for d.
func NewMessage(runID string, d *detection.Detection) Message {
	return Message{
		RunID:         runID,
		ID:            d.ID(),
		Level:         d.Level(),
		DetectionType: d.DetectionType(),
		Message:       d.Message(),
	}
}

// Values returns the stream entry fields of m.
func (m Message) Values() map[string]any {
	payload, _ := json.Marshal(m)
	return map[string]any{
		"run_id":         m.RunID,
		"id":             m.ID,
		"level":          m.Level,
		"detection_type": m.DetectionType,
		"message":        m.Message,
		"truncated":      strconv.FormatBool(m.Truncated),
		"payload":        string(payload),
	}
}

// Push adds one entry per detection in a single pipeline and returns the
// number of entries written. When truncated is set every entry is flagged so
// consumers know the run stopped at its detection limit.
func (p *Publisher) Push(ctx context.Context, runID string, dets []*detection.Detection, truncated bool) (int, error) {
	if len(dets) == 0 {
		return 0, nil
	}
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range dets {
			msg := NewMessage(runID, d)
			msg.Truncated = truncated
			args := &redis.XAddArgs{Stream: p.stream, Values: msg.Values()}
			if p.maxLen > 0 {
				args.MaxLen = p.maxLen
				args.Approx = true
			}
			pipe.XAdd(ctx, args)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("push detections to %s: %w", p.stream, err)
	}
	return len(dets), nil
}

// Status returns the number of entries in the stream.
func (p *Publisher) Status(ctx context.Context) (int64, error) {
	n, err := p.client.XLen(ctx, p.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("stream %s length: %w", p.stream, err)
	}
	return n, nil
}

// Tail returns the newest n entries, newest first.
func (p *Publisher) Tail(ctx context.Context, n int64) ([]Entry, error) {
	msgs, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.stream, err)
	}
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, Entry{StreamID: msg.ID, Message: FromValues(msg.Values)})
	}
	return entries, nil
}

// FromValues decodes stream entry fields written by Push.
func FromValues(values map[string]any) Message {
	level, _ := strconv.Atoi(getString(values, "level"))
	truncated, _ := strconv.ParseBool(getString(values, "truncated"))
	return Message{
		RunID:         getString(values, "run_id"),
		ID:            getString(values, "id"),
		Level:         level,
		DetectionType: getString(values, "detection_type"),
		Message:       getString(values, "message"),
		Truncated:     truncated,
	}
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
