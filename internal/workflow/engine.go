package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/audit"
	"github.com/frahmantamala/approval-workflow/internal/core/common/validation"
	"github.com/frahmantamala/approval-workflow/internal/ids"
	"github.com/frahmantamala/approval-workflow/internal/obs"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
)

const (
	maxCommentLength    = 2000
	maxIdentifierLength = 128
	maxAttributes       = 32
)

// Audit reasons for attempts that did not commit.
const (
	ReasonInvalidTransition      = "invalid_transition"
	ReasonInstanceNotFound       = "instance_not_found"
	ReasonConcurrentModification = "concurrent_modification"
	ReasonUnknownEntityType      = "unknown_entity_type"
)

// Authorizer is the transition guard.
type Authorizer interface {
	Authorize(ctx context.Context, actor internal.Actor, required rbac.Permission, sc rbac.ScopeContext) (rbac.Decision, error)
}

// Dispatcher delivers side-effect intents after a transition commits.
type Dispatcher interface {
	Dispatch(ctx context.Context, effects []SideEffect)
}

type Engine struct {
	registry   *Registry
	guard      Authorizer
	assignees  *AssigneeResolver
	uow        UnitOfWork
	audit      audit.Writer
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

type EngineOption func(*Engine)

func WithDispatcher(d Dispatcher) EngineOption {
	return func(e *Engine) { e.dispatcher = d }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires the engine. auditWriter records attempts that never reach
// a transaction, such as denials.
func NewEngine(registry *Registry, guard Authorizer, assignees *AssigneeResolver, uow UnitOfWork, auditWriter audit.Writer, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		registry:  registry,
		guard:     guard,
		assignees: assignees,
		uow:       uow,
		audit:     auditWriter,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

func validateRequest(req ActionRequest) error {
	v := validation.NewValidator()
	v.Field("entityType", req.EntityType).Required().Identifier()
	v.Field("entityId", req.EntityID).Required().MaxLength(maxIdentifierLength)
	v.Field("action", req.Action).Required().Identifier()
	v.Field("comment", req.Comment).MaxLength(maxCommentLength)
	v.Field("attributes", req.Attributes).MaxEntries(maxAttributes)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func checkActor(actor internal.Actor) error {
	if actor.ID == "" {
		return internal.ErrUnauthenticated
	}
	if actor.TenantID == "" {
		return internal.ErrNoTenantContext
	}
	return nil
}

// SubmitAction validates, authorizes and commits one workflow action. The
// instance update, history record, audit entry and work item all commit
// together or not at all; side effects are dispatched only after commit.
func (e *Engine) SubmitAction(ctx context.Context, actor internal.Actor, req ActionRequest) (*TransitionResult, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := e.now()
	def, err := e.registry.Get(req.EntityType)
	if err != nil {
		e.recordDenied(ctx, actor, req, "", ReasonUnknownEntityType, now)
		obs.ObserveTransition("unknown", req.Action, ReasonUnknownEntityType)
		return nil, err
	}

	inst, isNew, err := e.loadOrStart(ctx, actor, def, req, now)
	if err != nil {
		if errors.Is(err, internal.ErrInstanceNotFound) {
			e.recordDenied(ctx, actor, req, "", ReasonInstanceNotFound, now)
			obs.ObserveTransition(def.EntityType, req.Action, "not_found")
		}
		return nil, err
	}

	t, ok := def.Lookup(inst.CurrentState, req.Action)
	if !ok {
		e.recordDenied(ctx, actor, req, inst.CurrentState, ReasonInvalidTransition, now)
		obs.ObserveTransition(def.EntityType, req.Action, "invalid")
		return nil, internal.ErrInvalidTransition.WithDetails(map[string]interface{}{
			"currentState":     inst.CurrentState,
			"action":           req.Action,
			"availableActions": actionNames(def.Outgoing(inst.CurrentState)),
		})
	}

	// A new instance has no reviewer yet, so the assignee override cannot apply.
	sc := rbac.ScopeContext{OwnerID: inst.CreatedBy}
	if !isNew {
		sc.AssignedTo = inst.AssignedTo
	}
	decision, err := e.guard.Authorize(ctx, actor, t.Required, sc)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		e.recordDenied(ctx, actor, req, inst.CurrentState, decision.Reason, now)
		obs.ObserveTransition(def.EntityType, req.Action, "denied")
		return nil, internal.ErrInsufficientPermission.WithDetails(map[string]string{
			"requiredPermission": t.Required.String(),
			"reason":             decision.Reason,
		})
	}

	next, err := e.advance(ctx, def, inst, t, req, now)
	if err != nil {
		return nil, err
	}

	record := TransitionRecord{
		ID:         ids.NewAt(now),
		InstanceID: inst.ID,
		Sequence:   next.Version,
		FromState:  inst.CurrentState,
		ToState:    next.CurrentState,
		Action:     req.Action,
		ActorID:    actor.ID,
		Comment:    req.Comment,
		Timestamp:  now,
	}
	entry := audit.NewEntry(now, actor.TenantID, actor.ID, req.Action, req.EntityType, req.EntityID).
		Grant(inst.CurrentState, next.CurrentState)

	err = e.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		if isNew {
			if err := tx.Instances().Create(ctx, inst); err != nil {
				return err
			}
		}
		if err := tx.Instances().CompareAndSwap(ctx, next, inst.CurrentState, inst.Version); err != nil {
			return err
		}
		if err := tx.Instances().AppendTransition(ctx, &record); err != nil {
			return err
		}
		if err := tx.Audit().Write(ctx, entry); err != nil {
			return fmt.Errorf("write audit entry: %w", err)
		}
		if err := tx.WorkItems().Upsert(ctx, ProjectWorkItem(def, next)); err != nil {
			return fmt.Errorf("upsert work item: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, internal.ErrConcurrentModification) {
			e.recordDenied(ctx, actor, req, inst.CurrentState, ReasonConcurrentModification, now)
			obs.ObserveTransition(def.EntityType, req.Action, "conflict")
			e.logger.WarnContext(ctx, "concurrent workflow modification",
				"entity_type", req.EntityType,
				"entity_id", req.EntityID,
				"expected_state", inst.CurrentState,
				"expected_version", inst.Version)
			return nil, internal.ErrConcurrentModification
		}
		obs.ObserveTransition(def.EntityType, req.Action, "error")
		e.logger.ErrorContext(ctx, "failed to commit transition", "error", err,
			"entity_type", req.EntityType,
			"entity_id", req.EntityID,
			"action", req.Action)
		return nil, internal.NewInternalError("failed to commit transition", err)
	}

	obs.ObserveTransition(def.EntityType, req.Action, "committed")
	effects := buildSideEffects(def, next, t, actor)

	e.logger.InfoContext(ctx, "workflow transition committed",
		"tenant_id", actor.TenantID,
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
		"action", req.Action,
		"from_state", inst.CurrentState,
		"to_state", next.CurrentState,
		"actor_id", actor.ID,
		"sequence", record.Sequence,
		"side_effects", len(effects))

	if e.dispatcher != nil && len(effects) > 0 {
		e.dispatcher.Dispatch(ctx, effects)
	}

	return &TransitionResult{
		Instance:       next,
		PreviousState:  inst.CurrentState,
		NewState:       next.CurrentState,
		NextAssigneeID: next.AssignedTo,
		SideEffects:    effects,
		Record:         record,
	}, nil
}

// loadOrStart returns the entity's instance, or a new draft instance when the
// entity has none and the action is valid from the initial state.
func (e *Engine) loadOrStart(ctx context.Context, actor internal.Actor, def *Definition, req ActionRequest, now time.Time) (*Instance, bool, error) {
	inst, err := e.uow.Instances().Get(ctx, actor.TenantID, req.EntityType, req.EntityID)
	if err == nil {
		if _, ok := def.State(inst.CurrentState); !ok {
			e.logger.ErrorContext(ctx, "stored instance is in an undeclared state",
				"instance_id", inst.ID, "entity_type", inst.EntityType, "state", inst.CurrentState)
			return nil, false, internal.NewInternalError("stored instance is in an undeclared state",
				fmt.Errorf("state %q is not declared by %s v%d", inst.CurrentState, def.EntityType, def.Version))
		}
		return inst, false, nil
	}
	if !errors.Is(err, internal.ErrInstanceNotFound) {
		e.logger.ErrorContext(ctx, "failed to load workflow instance", "error", err, "entity_type", req.EntityType, "entity_id", req.EntityID)
		return nil, false, internal.NewInternalError("failed to load workflow instance", err)
	}

	if _, ok := def.Lookup(def.Initial, req.Action); !ok {
		return nil, false, internal.ErrInstanceNotFound
	}

	creator := actor.ID
	return &Instance{
		ID:                uuid.NewString(),
		TenantID:          actor.TenantID,
		EntityType:        def.EntityType,
		EntityID:          req.EntityID,
		DefinitionVersion: def.Version,
		CurrentState:      def.Initial,
		AssignedTo:        &creator,
		CreatedBy:         actor.ID,
		Attributes:        copyAttributes(req.Attributes),
		Version:           0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, true, nil
}

// advance computes the post-transition instance without persisting it.
func (e *Engine) advance(ctx context.Context, def *Definition, inst *Instance, t Transition, req ActionRequest, now time.Time) (*Instance, error) {
	next := inst.clone()
	next.CurrentState = t.To
	next.Version = inst.Version + 1
	next.UpdatedAt = now

	if t.From == def.Initial && len(req.Attributes) > 0 {
		if next.Attributes == nil {
			next.Attributes = make(map[string]string, len(req.Attributes))
		}
		for k, v := range req.Attributes {
			next.Attributes[k] = v
		}
	}

	if def.IsTerminal(t.To) {
		next.AssignedTo = nil
		return next, nil
	}

	assignee, err := e.assignees.Resolve(ctx, t.Assignee, Subject{
		TenantID:   inst.TenantID,
		EntityType: inst.EntityType,
		EntityID:   inst.EntityID,
		CreatedBy:  inst.CreatedBy,
		Current:    inst.AssignedTo,
		Attributes: next.Attributes,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to resolve assignee", "error", err, "entity_type", inst.EntityType, "state", t.To)
		return nil, internal.NewInternalError("failed to resolve assignee", err)
	}
	if assignee == nil && t.Assignee.Kind != RuleNone {
		obs.ObserveAssigneeUnresolved(inst.EntityType, t.To)
		e.logger.WarnContext(ctx, "no assignee resolved, instance left unassigned",
			"tenant_id", inst.TenantID,
			"entity_type", inst.EntityType,
			"entity_id", inst.EntityID,
			"state", t.To,
			"rule", string(t.Assignee.Kind))
	}
	next.AssignedTo = assignee
	return next, nil
}

// recordDenied writes the audit entry for an attempt that did not commit.
// A failure here is logged; the caller still gets the original outcome.
func (e *Engine) recordDenied(ctx context.Context, actor internal.Actor, req ActionRequest, state, reason string, now time.Time) {
	entry := audit.NewEntry(now, actor.TenantID, actor.ID, req.Action, req.EntityType, req.EntityID).Deny(state, reason)
	if err := e.audit.Write(ctx, entry); err != nil {
		e.logger.ErrorContext(ctx, "failed to write audit entry for rejected attempt", "error", err,
			"actor_id", actor.ID,
			"entity_type", req.EntityType,
			"entity_id", req.EntityID,
			"reason", reason)
	}
}

// GetInstance returns the instance and its history. Reading needs the
// resource's read permission, or being the current assignee.
func (e *Engine) GetInstance(ctx context.Context, actor internal.Actor, entityType, entityID string) (*InstanceView, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	def, err := e.registry.Get(entityType)
	if err != nil {
		return nil, err
	}

	inst, err := e.uow.Instances().Get(ctx, actor.TenantID, entityType, entityID)
	if err != nil {
		if errors.Is(err, internal.ErrInstanceNotFound) {
			return nil, err
		}
		return nil, internal.NewInternalError("failed to load workflow instance", err)
	}

	decision, err := e.guard.Authorize(ctx, actor, rbac.Permission{Resource: def.Resource, Action: "read", Scope: rbac.ScopeOwn},
		rbac.ScopeContext{OwnerID: inst.CreatedBy, AssignedTo: inst.AssignedTo})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, internal.ErrInsufficientPermission
	}

	history, err := e.uow.Instances().History(ctx, inst.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load workflow history", err)
	}
	return &InstanceView{Instance: inst, History: history}, nil
}

// AvailableActions dry-runs the guard for every action leaving the current
// state. Nothing is written, not even audit entries.
func (e *Engine) AvailableActions(ctx context.Context, actor internal.Actor, entityType, entityID string) ([]ActionOption, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	def, err := e.registry.Get(entityType)
	if err != nil {
		return nil, err
	}

	state := def.Initial
	sc := rbac.ScopeContext{OwnerID: actor.ID}
	inst, err := e.uow.Instances().Get(ctx, actor.TenantID, entityType, entityID)
	switch {
	case err == nil:
		state = inst.CurrentState
		sc = rbac.ScopeContext{OwnerID: inst.CreatedBy, AssignedTo: inst.AssignedTo}
	case errors.Is(err, internal.ErrInstanceNotFound):
	default:
		return nil, internal.NewInternalError("failed to load workflow instance", err)
	}

	outgoing := def.Outgoing(state)
	options := make([]ActionOption, 0, len(outgoing))
	for _, t := range outgoing {
		d, err := e.guard.Authorize(ctx, actor, t.Required, sc)
		if err != nil {
			return nil, err
		}
		options = append(options, ActionOption{
			Action:             t.Action,
			ToState:            t.To,
			RequiredPermission: t.Required.String(),
			Allowed:            d.Allowed,
			Reason:             d.Reason,
		})
	}
	return options, nil
}

// ProjectWorkItem is the work item an instance should have after a transition.
func ProjectWorkItem(def *Definition, inst *Instance) workitem.Item {
	var assignee *string
	if inst.AssignedTo != nil {
		a := *inst.AssignedTo
		assignee = &a
	}
	return workitem.Item{
		WorkflowInstanceID: inst.ID,
		TenantID:           inst.TenantID,
		EntityType:         inst.EntityType,
		EntityID:           inst.EntityID,
		AssigneeID:         assignee,
		CurrentState:       inst.CurrentState,
		CreatedBy:          inst.CreatedBy,
		Open:               !def.IsTerminal(inst.CurrentState),
		UpdatedAt:          inst.UpdatedAt,
	}
}

// buildSideEffects lists the intents for a committed transition in delivery
// order: notify the new assignee, generate the document, tell the creator.
func buildSideEffects(def *Definition, next *Instance, t Transition, actor internal.Actor) []SideEffect {
	base := SideEffect{
		TenantID:   next.TenantID,
		EntityType: next.EntityType,
		EntityID:   next.EntityID,
		InstanceID: next.ID,
		State:      next.CurrentState,
	}

	var effects []SideEffect
	if next.AssignedTo != nil && *next.AssignedTo != actor.ID {
		n := base
		n.Kind = SideEffectNotify
		n.RecipientID = *next.AssignedTo
		if t.To == def.Initial {
			n.Message = fmt.Sprintf("%s %s was returned to %s (%s)", next.EntityType, next.EntityID, t.To, t.Action)
		} else {
			n.Message = fmt.Sprintf("%s %s is awaiting your action in %s", next.EntityType, next.EntityID, t.To)
		}
		effects = append(effects, n)
	}

	if def.IsTerminal(t.To) {
		if def.DocumentOn == t.To {
			d := base
			d.Kind = SideEffectGenerateDocument
			effects = append(effects, d)
		}
		if next.CreatedBy != actor.ID {
			n := base
			n.Kind = SideEffectNotify
			n.RecipientID = next.CreatedBy
			n.Message = fmt.Sprintf("%s %s reached %s", next.EntityType, next.EntityID, t.To)
			effects = append(effects, n)
		}
	}
	return effects
}

func actionNames(ts []Transition) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Action)
	}
	return out
}

func copyAttributes(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
