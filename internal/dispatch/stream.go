package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/frahmantamala/approval-workflow/internal/core/events"
	"github.com/frahmantamala/approval-workflow/internal/obs"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
)

const (
	fieldType  = "type"
	fieldEvent = "event"
)

func encodeEvent(ev events.Event) (map[string]interface{}, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{fieldType: ev.EventType(), fieldEvent: string(raw)}, nil
}

func decodeEvent(values map[string]interface{}) (events.Event, error) {
	eventType, _ := values[fieldType].(string)
	raw, _ := values[fieldEvent].(string)
	if raw == "" {
		return nil, errors.New("message has no event payload")
	}

	switch eventType {
	case events.EventTypeNotify:
		var ev events.NotifyEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	case events.EventTypeGenerateDocument:
		var ev events.GenerateDocumentEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

// StreamPublisher appends side effects to a Redis stream for the effects
// worker. A failed append is logged; the transition has already committed.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *slog.Logger
}

func NewStreamPublisher(client *redis.Client, stream string, logger *slog.Logger) *StreamPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: 100000, logger: logger}
}

var _ workflow.Dispatcher = (*StreamPublisher)(nil)

func (p *StreamPublisher) Dispatch(ctx context.Context, effects []workflow.SideEffect) {
	ctx = context.WithoutCancel(ctx)
	for _, effect := range effects {
		if _, err := p.Publish(ctx, effect); err != nil {
			obs.ObserveSideEffect(string(effect.Kind), "dropped")
			p.logger.ErrorContext(ctx, "failed to queue side effect",
				"error", err,
				"kind", string(effect.Kind),
				"instance_id", effect.InstanceID)
			continue
		}
		obs.ObserveSideEffect(string(effect.Kind), "queued")
	}
}

// Publish appends one side effect and returns its stream id.
func (p *StreamPublisher) Publish(ctx context.Context, effect workflow.SideEffect) (string, error) {
	ev, err := ToEvent(effect)
	if err != nil {
		return "", err
	}
	values, err := encodeEvent(ev)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
}

type WorkerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Batch is the most messages read per poll.
	Batch int64
	// Block bounds how long a poll waits for new messages.
	Block time.Duration
	// MinIdle is how long a delivered message may stay unacked before
	// another consumer claims it.
	MinIdle time.Duration
	// MaxDeliveries drops a message once it has been delivered this many times.
	MaxDeliveries int64
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Batch <= 0 {
		c.Batch = 16
	}
	if c.Block <= 0 {
		c.Block = 5 * time.Second
	}
	if c.MinIdle <= 0 {
		c.MinIdle = 30 * time.Second
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = 5
	}
	return c
}

// StreamWorker consumes the side-effect stream with a consumer group. A
// message is acked only after its collaborator call succeeds.
type StreamWorker struct {
	client   *redis.Client
	cfg      WorkerConfig
	executor *Executor
	logger   *slog.Logger
}

func NewStreamWorker(client *redis.Client, cfg WorkerConfig, executor *Executor, logger *slog.Logger) *StreamWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamWorker{client: client, cfg: cfg.withDefaults(), executor: executor, logger: logger}
}

// EnsureGroup creates the consumer group and the stream if needed.
func (w *StreamWorker) EnsureGroup(ctx context.Context) error {
	err := w.client.XGroupCreateMkStream(ctx, w.cfg.Stream, w.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Run polls until ctx is cancelled, reclaiming stale messages between polls.
func (w *StreamWorker) Run(ctx context.Context) error {
	if err := w.EnsureGroup(ctx); err != nil {
		return err
	}
	w.logger.Info("effects worker started",
		"stream", w.cfg.Stream,
		"group", w.cfg.Group,
		"consumer", w.cfg.Consumer)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := w.Reclaim(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("failed to reclaim pending side effects", "error", err)
		}
		if _, err := w.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("failed to read side effects", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Poll reads and handles new messages, returning how many were acked.
func (w *StreamWorker) Poll(ctx context.Context) (int, error) {
	streams, err := w.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.cfg.Stream, ">"},
		Count:    w.cfg.Batch,
		Block:    w.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	acked := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			if w.handle(ctx, msg) {
				acked++
			}
		}
	}
	return acked, nil
}

// Reclaim takes over messages left unacked longer than MinIdle, dropping
// those that exhausted their deliveries, and handles them.
func (w *StreamWorker) Reclaim(ctx context.Context) (int, error) {
	pending, err := w.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: w.cfg.Stream,
		Group:  w.cfg.Group,
		Start:  "-",
		End:    "+",
		Count:  w.cfg.Batch,
	}).Result()
	if err != nil {
		return 0, err
	}

	var claim []string
	for _, p := range pending {
		if p.Idle < w.cfg.MinIdle {
			continue
		}
		if p.RetryCount >= w.cfg.MaxDeliveries {
			obs.ObserveSideEffect("unknown", "dead_lettered")
			w.logger.Error("dropping side effect after repeated failures",
				"message_id", p.ID,
				"deliveries", p.RetryCount)
			if err := w.client.XAck(ctx, w.cfg.Stream, w.cfg.Group, p.ID).Err(); err != nil {
				return 0, err
			}
			continue
		}
		claim = append(claim, p.ID)
	}
	if len(claim) == 0 {
		return 0, nil
	}

	msgs, err := w.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   w.cfg.Stream,
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		MinIdle:  w.cfg.MinIdle,
		Messages: claim,
	}).Result()
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, msg := range msgs {
		if w.handle(ctx, msg) {
			acked++
		}
	}
	return acked, nil
}

func (w *StreamWorker) handle(ctx context.Context, msg redis.XMessage) bool {
	ev, err := decodeEvent(msg.Values)
	if err != nil {
		// A malformed message can never succeed; ack it so it stops cycling.
		w.logger.Error("discarding malformed side effect", "message_id", msg.ID, "error", err)
		w.ack(ctx, msg.ID)
		return true
	}

	if err := w.executor.Deliver(ctx, ev); err != nil {
		w.logger.Warn("side effect left pending for retry", "message_id", msg.ID, "event_id", ev.EventID(), "error", err)
		return false
	}
	w.ack(ctx, msg.ID)
	return true
}

func (w *StreamWorker) ack(ctx context.Context, id string) {
	if err := w.client.XAck(ctx, w.cfg.Stream, w.cfg.Group, id).Err(); err != nil {
		w.logger.Error("failed to ack side effect", "message_id", id, "error", err)
	}
}
