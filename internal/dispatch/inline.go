package dispatch

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/approval-workflow/internal/core/events"
	"github.com/frahmantamala/approval-workflow/internal/obs"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
)

// InlineDispatcher publishes side effects on the in-process event bus. The
// bus runs handlers in the background, so Dispatch never blocks the request.
type InlineDispatcher struct {
	bus    *events.EventBus
	logger *slog.Logger
}

func NewInlineDispatcher(bus *events.EventBus, logger *slog.Logger) *InlineDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineDispatcher{bus: bus, logger: logger}
}

var _ workflow.Dispatcher = (*InlineDispatcher)(nil)

func (d *InlineDispatcher) Dispatch(ctx context.Context, effects []workflow.SideEffect) {
	for _, effect := range effects {
		ev, err := ToEvent(effect)
		if err != nil {
			obs.ObserveSideEffect(string(effect.Kind), "dropped")
			d.logger.ErrorContext(ctx, "dropping side effect", "error", err, "instance_id", effect.InstanceID)
			continue
		}
		if err := d.bus.Publish(ctx, ev); err != nil {
			obs.ObserveSideEffect(string(effect.Kind), "dropped")
			d.logger.ErrorContext(ctx, "failed to publish side effect", "error", err, "event_id", ev.EventID())
		}
	}
}
