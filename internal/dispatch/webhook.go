package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/frahmantamala/approval-workflow/internal/core/events"
)

type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	// Retries is the number of extra attempts on transport errors and 5xx.
	Retries int
	// TripAfter consecutive failures open the breaker.
	TripAfter uint32
	// OpenFor is how long the breaker rejects calls before probing again.
	OpenFor time.Duration
}

func (c WebhookConfig) withDefaults() WebhookConfig {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.TripAfter == 0 {
		c.TripAfter = 5
	}
	if c.OpenFor <= 0 {
		c.OpenFor = 30 * time.Second
	}
	return c
}

type webhook struct {
	name    string
	url     string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func newWebhook(name string, cfg WebhookConfig, logger *slog.Logger) *webhook {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("webhook circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &webhook{name: name, url: cfg.URL, client: client, breaker: breaker, logger: logger}
}

// post sends body once through the breaker. The event id doubles as the
// idempotency key since stream redelivery may repeat a call.
func (w *webhook) post(ctx context.Context, idempotencyKey string, body interface{}) error {
	_, err := w.breaker.Execute(func() (interface{}, error) {
		resp, err := w.client.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", idempotencyKey).
			SetBody(body).
			Post(w.url)
		if err != nil {
			return nil, fmt.Errorf("%s webhook: %w", w.name, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%s webhook returned status %d", w.name, resp.StatusCode())
		}
		return nil, nil
	})
	return err
}

type WebhookNotifier struct {
	hook *webhook
}

func NewWebhookNotifier(cfg WebhookConfig, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{hook: newWebhook("notify", cfg, logger)}
}

func (n *WebhookNotifier) Notify(ctx context.Context, event *events.NotifyEvent) error {
	return n.hook.post(ctx, event.EventID(), event)
}

type WebhookDocumentTrigger struct {
	hook *webhook
}

func NewWebhookDocumentTrigger(cfg WebhookConfig, logger *slog.Logger) *WebhookDocumentTrigger {
	return &WebhookDocumentTrigger{hook: newWebhook("generate_document", cfg, logger)}
}

func (d *WebhookDocumentTrigger) Generate(ctx context.Context, event *events.GenerateDocumentEvent) error {
	return d.hook.post(ctx, event.EventID(), event)
}
