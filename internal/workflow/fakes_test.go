package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/audit"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
	"github.com/frahmantamala/approval-workflow/internal/workitem"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type assignmentRepo struct {
	mu          sync.Mutex
	assignments []rbac.Assignment
}

func (m *assignmentRepo) add(actor, role, tenant string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, rbac.Assignment{ActorID: actor, RoleID: role, TenantID: tenant, Active: true, AssignedAt: at})
}

func (m *assignmentRepo) ActiveAssignments(ctx context.Context, actorID, tenantID string) ([]rbac.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rbac.Assignment
	for _, a := range m.assignments {
		if a.ActorID == actorID && a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *assignmentRepo) ActiveHolders(ctx context.Context, tenantID, roleID string) ([]rbac.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rbac.Assignment
	for _, a := range m.assignments {
		if a.TenantID == tenantID && a.RoleID == roleID {
			out = append(out, a)
		}
	}
	return out, nil
}

func instanceKey(tenantID, entityType, entityID string) string {
	return tenantID + "/" + entityType + "/" + entityID
}

func copyInstance(in *workflow.Instance) *workflow.Instance {
	cp := *in
	if in.AssignedTo != nil {
		a := *in.AssignedTo
		cp.AssignedTo = &a
	}
	if in.Attributes != nil {
		cp.Attributes = make(map[string]string, len(in.Attributes))
		for k, v := range in.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

// memStore is an in-memory UnitOfWork. Transactions hold the store lock and
// stage their writes, which are applied only when fn succeeds.
type memStore struct {
	mu        sync.Mutex
	instances map[string]*workflow.Instance
	history   []workflow.TransitionRecord
	entries   []audit.Entry
	items     map[string]workitem.Item
	upserts   int

	workItemErr error
	auditErr    error
	// readBarrier, when set, holds every committed read until all expected
	// readers have arrived.
	readBarrier *sync.WaitGroup
}

func newMemStore() *memStore {
	return &memStore{
		instances: make(map[string]*workflow.Instance),
		items:     make(map[string]workitem.Item),
	}
}

func (s *memStore) Instances() workflow.InstanceRepository {
	return committedView{s: s}
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context, tx workflow.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s, instances: make(map[string]*workflow.Instance)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for k, inst := range tx.instances {
		s.instances[k] = inst
	}
	s.history = append(s.history, tx.history...)
	s.entries = append(s.entries, tx.entries...)
	for _, item := range tx.items {
		s.items[item.WorkflowInstanceID] = item
	}
	s.upserts += len(tx.items)
	return nil
}

func (s *memStore) auditLog() audit.Writer {
	return auditLog{s: s}
}

func (s *memStore) instance(tenantID, entityType, entityID string) *workflow.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceKey(tenantID, entityType, entityID)]
	if !ok {
		return nil
	}
	return copyInstance(inst)
}

func (s *memStore) auditEntries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

func (s *memStore) historyOf(instanceID string) []workflow.TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []workflow.TransitionRecord
	for _, rec := range s.history {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	return out
}

// upsertCount is the number of committed work item upserts.
func (s *memStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func (s *memStore) workItem(instanceID string) (workitem.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[instanceID]
	return item, ok
}

type committedView struct {
	s *memStore
}

func (v committedView) Get(ctx context.Context, tenantID, entityType, entityID string) (*workflow.Instance, error) {
	v.s.mu.Lock()
	inst, ok := v.s.instances[instanceKey(tenantID, entityType, entityID)]
	var cp *workflow.Instance
	if ok {
		cp = copyInstance(inst)
	}
	barrier := v.s.readBarrier
	v.s.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	if !ok {
		return nil, internal.ErrInstanceNotFound
	}
	return cp, nil
}

var errOutsideTx = errors.New("write outside transaction")

func (v committedView) Create(ctx context.Context, inst *workflow.Instance) error {
	return errOutsideTx
}

func (v committedView) CompareAndSwap(ctx context.Context, inst *workflow.Instance, expectedState string, expectedVersion int64) error {
	return errOutsideTx
}

func (v committedView) AppendTransition(ctx context.Context, rec *workflow.TransitionRecord) error {
	return errOutsideTx
}

func (v committedView) History(ctx context.Context, instanceID string) ([]workflow.TransitionRecord, error) {
	return v.s.historyOf(instanceID), nil
}

type memTx struct {
	s         *memStore
	instances map[string]*workflow.Instance
	history   []workflow.TransitionRecord
	entries   []audit.Entry
	items     []workitem.Item
}

func (t *memTx) Instances() workflow.InstanceRepository { return txInstances{t} }
func (t *memTx) Audit() audit.Writer                    { return txAudit{t} }
func (t *memTx) WorkItems() workitem.Writer             { return txItems{t} }

func (t *memTx) current(k string) *workflow.Instance {
	if inst, ok := t.instances[k]; ok {
		return inst
	}
	return t.s.instances[k]
}

type txInstances struct{ t *memTx }

func (r txInstances) Get(ctx context.Context, tenantID, entityType, entityID string) (*workflow.Instance, error) {
	inst := r.t.current(instanceKey(tenantID, entityType, entityID))
	if inst == nil {
		return nil, internal.ErrInstanceNotFound
	}
	return copyInstance(inst), nil
}

func (r txInstances) Create(ctx context.Context, inst *workflow.Instance) error {
	k := instanceKey(inst.TenantID, inst.EntityType, inst.EntityID)
	if r.t.current(k) != nil {
		return internal.ErrConcurrentModification
	}
	r.t.instances[k] = copyInstance(inst)
	return nil
}

func (r txInstances) CompareAndSwap(ctx context.Context, inst *workflow.Instance, expectedState string, expectedVersion int64) error {
	k := instanceKey(inst.TenantID, inst.EntityType, inst.EntityID)
	cur := r.t.current(k)
	if cur == nil || cur.CurrentState != expectedState || cur.Version != expectedVersion {
		return internal.ErrConcurrentModification
	}
	r.t.instances[k] = copyInstance(inst)
	return nil
}

func (r txInstances) AppendTransition(ctx context.Context, rec *workflow.TransitionRecord) error {
	r.t.history = append(r.t.history, *rec)
	return nil
}

func (r txInstances) History(ctx context.Context, instanceID string) ([]workflow.TransitionRecord, error) {
	var out []workflow.TransitionRecord
	for _, rec := range append(append([]workflow.TransitionRecord(nil), r.t.s.history...), r.t.history...) {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type txAudit struct{ t *memTx }

func (a txAudit) Write(ctx context.Context, e *audit.Entry) error {
	a.t.entries = append(a.t.entries, *e)
	return nil
}

type txItems struct{ t *memTx }

func (w txItems) Upsert(ctx context.Context, item workitem.Item) error {
	if w.t.s.workItemErr != nil {
		return w.t.s.workItemErr
	}
	w.t.items = append(w.t.items, item)
	return nil
}

type auditLog struct{ s *memStore }

func (a auditLog) Write(ctx context.Context, e *audit.Entry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if a.s.auditErr != nil {
		return a.s.auditErr
	}
	a.s.entries = append(a.s.entries, *e)
	return nil
}

type recordingDispatcher struct {
	mu      sync.Mutex
	calls   int
	effects []workflow.SideEffect
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, effects []workflow.SideEffect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.effects = append(d.effects, effects...)
}

func (d *recordingDispatcher) snapshot() (int, []workflow.SideEffect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls, append([]workflow.SideEffect(nil), d.effects...)
}
