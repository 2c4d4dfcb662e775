package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/approval-workflow/internal/core/events"
	"github.com/frahmantamala/approval-workflow/internal/obs"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
)

// Notifier tells an actor that something needs their attention.
type Notifier interface {
	Notify(ctx context.Context, event *events.NotifyEvent) error
}

// DocumentTrigger asks the document service to render an approved entity.
type DocumentTrigger interface {
	Generate(ctx context.Context, event *events.GenerateDocumentEvent) error
}

// ToEvent converts a side-effect intent into the event delivered for it.
func ToEvent(effect workflow.SideEffect) (events.Event, error) {
	ref := events.EntityRef{
		TenantID:   effect.TenantID,
		EntityType: effect.EntityType,
		EntityID:   effect.EntityID,
		InstanceID: effect.InstanceID,
		State:      effect.State,
	}
	switch effect.Kind {
	case workflow.SideEffectNotify:
		return events.NewNotifyEvent(ref, effect.RecipientID, effect.Message), nil
	case workflow.SideEffectGenerateDocument:
		return events.NewGenerateDocumentEvent(ref), nil
	default:
		return nil, fmt.Errorf("unknown side effect kind %q", effect.Kind)
	}
}

// Executor performs side effects against the collaborators.
type Executor struct {
	notifier  Notifier
	documents DocumentTrigger
	logger    *slog.Logger
}

func NewExecutor(notifier Notifier, documents DocumentTrigger, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{notifier: notifier, documents: documents, logger: logger}
}

func (x *Executor) Execute(ctx context.Context, effect workflow.SideEffect) error {
	ev, err := ToEvent(effect)
	if err != nil {
		return err
	}
	return x.Deliver(ctx, ev)
}

// Deliver is an events.Handler for notify and generate_document events.
func (x *Executor) Deliver(ctx context.Context, ev events.Event) error {
	var (
		kind string
		err  error
	)
	switch e := ev.(type) {
	case *events.NotifyEvent:
		kind = string(workflow.SideEffectNotify)
		err = x.notifier.Notify(ctx, e)
	case *events.GenerateDocumentEvent:
		kind = string(workflow.SideEffectGenerateDocument)
		err = x.documents.Generate(ctx, e)
	default:
		return fmt.Errorf("unsupported event type %s", ev.EventType())
	}

	if err != nil {
		obs.ObserveSideEffect(kind, "failed")
		x.logger.WarnContext(ctx, "side effect delivery failed",
			"kind", kind,
			"event_id", ev.EventID(),
			"error", err)
		return err
	}
	obs.ObserveSideEffect(kind, "delivered")
	x.logger.DebugContext(ctx, "side effect delivered", "kind", kind, "event_id", ev.EventID())
	return nil
}

// Subscribe registers the executor for every workflow event on bus.
func (x *Executor) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeNotify, x.Deliver)
	bus.Subscribe(events.EventTypeGenerateDocument, x.Deliver)
}

// LogNotifier writes notifications to the log. It stands in when no webhook is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, event *events.NotifyEvent) error {
	n.Logger.InfoContext(ctx, "notification",
		"recipient_id", event.RecipientID,
		"tenant_id", event.TenantID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"message", event.Message)
	return nil
}

// LogDocumentTrigger writes document requests to the log.
type LogDocumentTrigger struct {
	Logger *slog.Logger
}

func (d LogDocumentTrigger) Generate(ctx context.Context, event *events.GenerateDocumentEvent) error {
	d.Logger.InfoContext(ctx, "document generation requested",
		"tenant_id", event.TenantID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID)
	return nil
}
