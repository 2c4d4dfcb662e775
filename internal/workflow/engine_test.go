package workflow_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
)

var _ = Describe("Engine", func() {
	var (
		ctx        context.Context
		store      *memStore
		repo       *assignmentRepo
		dispatcher *recordingDispatcher
		engine     *workflow.Engine
		t0         time.Time
	)

	actor := func(id string) internal.Actor { return internal.Actor{ID: id, TenantID: "t1"} }

	submit := func(who, entityType, entityID, action string, attrs map[string]string) (*workflow.TransitionResult, error) {
		return engine.SubmitAction(ctx, actor(who), workflow.ActionRequest{
			EntityType: entityType,
			EntityID:   entityID,
			Action:     action,
			Attributes: attrs,
		})
	}

	mustSubmit := func(who, entityType, entityID, action string) *workflow.TransitionResult {
		res, err := submit(who, entityType, entityID, action, nil)
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	BeforeEach(func() {
		ctx = context.Background()
		t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		store = newMemStore()
		repo = &assignmentRepo{}
		dispatcher = &recordingDispatcher{}

		repo.add("alice", rbac.RoleEmployee, "t1", t0)
		repo.add("prom", rbac.RolePromoter, "t1", t0)
		repo.add("boss", rbac.RoleEmployer, "t1", t0)
		repo.add("mgr1", rbac.RoleManager, "t1", t0)
		repo.add("mgr2", rbac.RoleManager, "t1", t0.Add(-time.Hour))
		repo.add("adm1", rbac.RoleAdmin, "t1", t0)
		repo.add("viewer", rbac.RoleUser, "t1", t0)
		repo.add("outsider", rbac.RoleAdmin, "t2", t0)

		catalog, err := rbac.NewDefaultCatalog(nil, discardLogger)
		Expect(err).NotTo(HaveOccurred())
		resolver := rbac.NewResolver(repo, catalog, discardLogger)
		registry, err := workflow.NewDefaultRegistry()
		Expect(err).NotTo(HaveOccurred())

		tick := t0
		var clockMu sync.Mutex
		clock := func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			tick = tick.Add(time.Second)
			return tick
		}

		engine = workflow.NewEngine(
			registry,
			rbac.NewGuard(resolver, discardLogger),
			workflow.NewAssigneeResolver(resolver, discardLogger),
			store,
			store.auditLog(),
			discardLogger,
			workflow.WithDispatcher(dispatcher),
			workflow.WithClock(clock),
		)
	})

	Describe("starting a workflow", func() {
		It("creates the instance on submit and routes it to the named manager", func() {
			res, err := submit("alice", workflow.EntityLeaveRequest, "lr-1", workflow.ActionSubmit,
				map[string]string{"manager_id": "mgr2"})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.PreviousState).To(Equal(workflow.StateDraft))
			Expect(res.NewState).To(Equal("manager_review"))
			Expect(res.NextAssigneeID).To(HaveValue(Equal("mgr2")))
			Expect(res.Record.Sequence).To(Equal(int64(1)))

			inst := store.instance("t1", workflow.EntityLeaveRequest, "lr-1")
			Expect(inst).NotTo(BeNil())
			Expect(inst.CreatedBy).To(Equal("alice"))
			Expect(inst.Version).To(Equal(int64(1)))
			Expect(inst.Attributes).To(HaveKeyWithValue("manager_id", "mgr2"))

			item, ok := store.workItem(inst.ID)
			Expect(ok).To(BeTrue())
			Expect(item.Open).To(BeTrue())
			Expect(item.AssigneeID).To(HaveValue(Equal("mgr2")))

			entries := store.auditEntries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Granted).To(BeTrue())
			Expect(entries[0].BeforeState).To(Equal(workflow.StateDraft))
			Expect(entries[0].AfterState).To(Equal("manager_review"))
		})

		It("falls back to the most recently assigned manager", func() {
			res, err := submit("alice", workflow.EntityLeaveRequest, "lr-1", workflow.ActionSubmit, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NextAssigneeID).To(HaveValue(Equal("mgr1")))
		})

		It("reports not found for a non-initial action on an unknown entity", func() {
			_, err := submit("adm1", workflow.EntityContract, "c-404", workflow.ActionApprove, nil)
			Expect(errors.Is(err, internal.ErrInstanceNotFound)).To(BeTrue())

			entries := store.auditEntries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Granted).To(BeFalse())
			Expect(entries[0].Reason).To(Equal(workflow.ReasonInstanceNotFound))
		})

		It("denies a zero-role actor and creates nothing", func() {
			_, err := submit("stranger", workflow.EntityLeaveRequest, "lr-1", workflow.ActionSubmit, nil)
			Expect(errors.Is(err, internal.ErrInsufficientPermission)).To(BeTrue())
			Expect(store.instance("t1", workflow.EntityLeaveRequest, "lr-1")).To(BeNil())

			entries := store.auditEntries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Granted).To(BeFalse())
			Expect(entries[0].Reason).To(Equal(rbac.ReasonInsufficientPermission))
		})

		It("denies a role without the submit permission", func() {
			_, err := submit("viewer", workflow.EntityLetter, "l-1", workflow.ActionSubmit, nil)
			Expect(errors.Is(err, internal.ErrInsufficientPermission)).To(BeTrue())
		})
	})

	Describe("request validation", func() {
		It("rejects unknown entity types and audits the attempt", func() {
			_, err := submit("alice", "invoice", "i-1", workflow.ActionSubmit, nil)
			Expect(errors.Is(err, internal.ErrUnknownEntityType)).To(BeTrue())

			entries := store.auditEntries()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Granted).To(BeFalse())
			Expect(entries[0].Reason).To(Equal(workflow.ReasonUnknownEntityType))
			Expect(entries[0].ActorID).To(Equal("alice"))
			Expect(entries[0].ResourceType).To(Equal("invoice"))
			Expect(entries[0].ResourceID).To(Equal("i-1"))
			Expect(entries[0].BeforeState).To(BeEmpty())
		})

		It("rejects missing fields", func() {
			_, err := submit("alice", workflow.EntityLetter, "", workflow.ActionSubmit, nil)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("requires an actor and a tenant", func() {
			_, err := engine.SubmitAction(ctx, internal.Actor{TenantID: "t1"}, workflow.ActionRequest{})
			Expect(errors.Is(err, internal.ErrUnauthenticated)).To(BeTrue())

			_, err = engine.SubmitAction(ctx, internal.Actor{ID: "alice"}, workflow.ActionRequest{})
			Expect(errors.Is(err, internal.ErrNoTenantContext)).To(BeTrue())
		})
	})

	Describe("moving through review", func() {
		BeforeEach(func() {
			mustSubmit("prom", workflow.EntityContract, "c-1", workflow.ActionSubmit)
		})

		It("rejects actions that are not valid from the current state", func() {
			_, err := submit("adm1", workflow.EntityContract, "c-1", workflow.ActionSubmit, nil)
			Expect(errors.Is(err, internal.ErrInvalidTransition)).To(BeTrue())

			inst := store.instance("t1", workflow.EntityContract, "c-1")
			Expect(inst.CurrentState).To(Equal("legal_review"))

			entries := store.auditEntries()
			last := entries[len(entries)-1]
			Expect(last.Granted).To(BeFalse())
			Expect(last.Reason).To(Equal(workflow.ReasonInvalidTransition))
		})

		It("lets the assigned manager approve on an own-scoped grant", func() {
			mustSubmit("adm1", workflow.EntityContract, "c-1", workflow.ActionApprove)
			inst := store.instance("t1", workflow.EntityContract, "c-1")
			Expect(inst.CurrentState).To(Equal("hr_review"))
			Expect(inst.AssignedTo).To(HaveValue(Equal("mgr1")))

			res, err := submit("mgr1", workflow.EntityContract, "c-1", workflow.ActionApprove, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NewState).To(Equal("final_approval"))
		})

		It("denies a manager who is not the assignee", func() {
			mustSubmit("adm1", workflow.EntityContract, "c-1", workflow.ActionApprove)

			_, err := submit("mgr2", workflow.EntityContract, "c-1", workflow.ActionApprove, nil)
			Expect(errors.Is(err, internal.ErrInsufficientPermission)).To(BeTrue())
			Expect(store.instance("t1", workflow.EntityContract, "c-1").CurrentState).To(Equal("hr_review"))
		})

		It("isolates tenants", func() {
			_, err := engine.SubmitAction(ctx, internal.Actor{ID: "outsider", TenantID: "t2"}, workflow.ActionRequest{
				EntityType: workflow.EntityContract, EntityID: "c-1", Action: workflow.ActionApprove,
			})
			Expect(errors.Is(err, internal.ErrInstanceNotFound)).To(BeTrue())
		})

		It("returns the instance to its creator on reject and accepts a resubmission", func() {
			res, err := engine.SubmitAction(ctx, actor("adm1"), workflow.ActionRequest{
				EntityType: workflow.EntityContract, EntityID: "c-1", Action: workflow.ActionReject, Comment: "missing clause",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NewState).To(Equal(workflow.StateDraft))
			Expect(res.NextAssigneeID).To(HaveValue(Equal("prom")))
			Expect(res.SideEffects).To(HaveLen(1))
			Expect(res.SideEffects[0].Kind).To(Equal(workflow.SideEffectNotify))
			Expect(res.SideEffects[0].RecipientID).To(Equal("prom"))

			again := mustSubmit("prom", workflow.EntityContract, "c-1", workflow.ActionSubmit)
			Expect(again.NewState).To(Equal("legal_review"))
			Expect(again.Record.Sequence).To(Equal(int64(3)))

			history := store.historyOf(again.Instance.ID)
			Expect(history).To(HaveLen(3))
			Expect(history[1].Comment).To(Equal("missing clause"))
			for i, rec := range history {
				Expect(rec.Sequence).To(Equal(int64(i + 1)))
			}
		})

		reviewers := []string{"adm1", "mgr1", "adm1"}

		DescribeTable("sends the contract back to draft from every review stage",
			func(stage string, approvals int, action string) {
				for _, who := range reviewers[:approvals] {
					mustSubmit(who, workflow.EntityContract, "c-1", workflow.ActionApprove)
				}
				inst := store.instance("t1", workflow.EntityContract, "c-1")
				Expect(inst.CurrentState).To(Equal(stage))

				auditBefore := len(store.auditEntries())
				historyBefore := len(store.historyOf(inst.ID))
				upsertsBefore := store.upsertCount()

				res := mustSubmit("adm1", workflow.EntityContract, "c-1", action)
				Expect(res.PreviousState).To(Equal(stage))
				Expect(res.NewState).To(Equal(workflow.StateDraft))
				Expect(res.NextAssigneeID).To(HaveValue(Equal("prom")))

				entries := store.auditEntries()
				Expect(entries).To(HaveLen(auditBefore + 1))
				last := entries[len(entries)-1]
				Expect(last.Granted).To(BeTrue())
				Expect(last.Action).To(Equal(action))
				Expect(last.BeforeState).To(Equal(stage))
				Expect(last.AfterState).To(Equal(workflow.StateDraft))

				history := store.historyOf(inst.ID)
				Expect(history).To(HaveLen(historyBefore + 1))
				Expect(history[len(history)-1].Action).To(Equal(action))

				Expect(store.upsertCount()).To(Equal(upsertsBefore + 1))
				item, ok := store.workItem(inst.ID)
				Expect(ok).To(BeTrue())
				Expect(item.CurrentState).To(Equal(workflow.StateDraft))
				Expect(item.AssigneeID).To(HaveValue(Equal("prom")))

				Expect(store.instance("t1", workflow.EntityContract, "c-1").CurrentState).To(Equal(workflow.StateDraft))
			},
			Entry("reject from legal_review", "legal_review", 0, workflow.ActionReject),
			Entry("request_changes from legal_review", "legal_review", 0, workflow.ActionRequestChanges),
			Entry("reject from hr_review", "hr_review", 1, workflow.ActionReject),
			Entry("request_changes from hr_review", "hr_review", 1, workflow.ActionRequestChanges),
			Entry("reject from final_approval", "final_approval", 2, workflow.ActionReject),
			Entry("request_changes from final_approval", "final_approval", 2, workflow.ActionRequestChanges),
			Entry("reject from signature", "signature", 3, workflow.ActionReject),
			Entry("request_changes from signature", "signature", 3, workflow.ActionRequestChanges),
		)
	})

	Describe("reaching a terminal state", func() {
		It("closes the work item and emits document and creator notices in order", func() {
			mustSubmit("prom", workflow.EntityContract, "c-9", workflow.ActionSubmit)
			mustSubmit("adm1", workflow.EntityContract, "c-9", workflow.ActionApprove)
			mustSubmit("mgr1", workflow.EntityContract, "c-9", workflow.ActionApprove)
			sig := mustSubmit("adm1", workflow.EntityContract, "c-9", workflow.ActionApprove)
			Expect(sig.NewState).To(Equal("signature"))
			Expect(sig.NextAssigneeID).To(HaveValue(Equal("boss")))

			res := mustSubmit("boss", workflow.EntityContract, "c-9", workflow.ActionApprove)
			Expect(res.NewState).To(Equal("active"))
			Expect(res.NextAssigneeID).To(BeNil())

			Expect(res.SideEffects).To(HaveLen(2))
			Expect(res.SideEffects[0].Kind).To(Equal(workflow.SideEffectGenerateDocument))
			Expect(res.SideEffects[1].Kind).To(Equal(workflow.SideEffectNotify))
			Expect(res.SideEffects[1].RecipientID).To(Equal("prom"))

			item, ok := store.workItem(res.Instance.ID)
			Expect(ok).To(BeTrue())
			Expect(item.Open).To(BeFalse())
			Expect(item.AssigneeID).To(BeNil())

			_, err := submit("adm1", workflow.EntityContract, "c-9", workflow.ActionApprove, nil)
			Expect(errors.Is(err, internal.ErrInvalidTransition)).To(BeTrue())
		})

		It("generates no document for leave requests", func() {
			mustSubmit("alice", workflow.EntityLeaveRequest, "lr-2", workflow.ActionSubmit)
			mustSubmit("mgr1", workflow.EntityLeaveRequest, "lr-2", workflow.ActionApprove)
			res := mustSubmit("adm1", workflow.EntityLeaveRequest, "lr-2", workflow.ActionApprove)

			Expect(res.NewState).To(Equal("completed"))
			Expect(res.SideEffects).To(HaveLen(1))
			Expect(res.SideEffects[0].RecipientID).To(Equal("alice"))
		})
	})

	Describe("assignee resolution", func() {
		It("leaves the instance unassigned when nobody holds the role", func() {
			lonely := &assignmentRepo{}
			lonely.add("solo", rbac.RoleEmployee, "t3", t0)
			catalog, err := rbac.NewDefaultCatalog(nil, discardLogger)
			Expect(err).NotTo(HaveOccurred())
			resolver := rbac.NewResolver(lonely, catalog, discardLogger)
			registry, err := workflow.NewDefaultRegistry()
			Expect(err).NotTo(HaveOccurred())
			eng := workflow.NewEngine(registry, rbac.NewGuard(resolver, discardLogger),
				workflow.NewAssigneeResolver(resolver, discardLogger), store, store.auditLog(), discardLogger)

			res, err := eng.SubmitAction(ctx, internal.Actor{ID: "solo", TenantID: "t3"}, workflow.ActionRequest{
				EntityType: workflow.EntityLeaveRequest, EntityID: "lr-3", Action: workflow.ActionSubmit,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NextAssigneeID).To(BeNil())
			Expect(res.SideEffects).To(BeEmpty())

			item, ok := store.workItem(res.Instance.ID)
			Expect(ok).To(BeTrue())
			Expect(item.Open).To(BeTrue())
			Expect(item.AssigneeID).To(BeNil())
		})
	})

	Describe("atomicity", func() {
		It("rolls back every write when the work item cannot be stored", func() {
			mustSubmit("alice", workflow.EntityLeaveRequest, "lr-4", workflow.ActionSubmit)
			before := store.instance("t1", workflow.EntityLeaveRequest, "lr-4")
			auditBefore := len(store.auditEntries())

			store.workItemErr = errors.New("disk full")
			_, err := submit("mgr1", workflow.EntityLeaveRequest, "lr-4", workflow.ActionApprove, nil)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePersistenceFailure))

			after := store.instance("t1", workflow.EntityLeaveRequest, "lr-4")
			Expect(after.CurrentState).To(Equal(before.CurrentState))
			Expect(after.Version).To(Equal(before.Version))
			Expect(store.historyOf(before.ID)).To(HaveLen(1))
			Expect(store.auditEntries()).To(HaveLen(auditBefore))
		})

		It("refuses to act on an instance stored in an undeclared state", func() {
			creator := "prom"
			store.instances[instanceKey("t1", workflow.EntityContract, "c-old")] = &workflow.Instance{
				ID: "inst-old", TenantID: "t1", EntityType: workflow.EntityContract, EntityID: "c-old",
				DefinitionVersion: 1, CurrentState: "archived", AssignedTo: &creator, CreatedBy: creator,
				Version: 4, CreatedAt: t0, UpdatedAt: t0,
			}

			_, err := submit("adm1", workflow.EntityContract, "c-old", workflow.ActionApprove, nil)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePersistenceFailure))

			after := store.instance("t1", workflow.EntityContract, "c-old")
			Expect(after.CurrentState).To(Equal("archived"))
			Expect(after.Version).To(Equal(int64(4)))
			Expect(store.historyOf("inst-old")).To(BeEmpty())
			Expect(store.upsertCount()).To(BeZero())

			_, err = engine.GetInstance(ctx, actor("adm1"), workflow.EntityContract, "c-old")
			Expect(err).NotTo(HaveOccurred())
		})

		It("still reports the denial when its audit entry cannot be written", func() {
			store.auditErr = errors.New("audit store down")
			_, err := submit("stranger", workflow.EntityLetter, "l-2", workflow.ActionSubmit, nil)
			Expect(errors.Is(err, internal.ErrInsufficientPermission)).To(BeTrue())
		})
	})

	Describe("concurrent actions", func() {
		It("commits exactly one of two racing approvals", func() {
			mustSubmit("prom", workflow.EntityContract, "c-race", workflow.ActionSubmit)

			barrier := &sync.WaitGroup{}
			barrier.Add(2)
			store.readBarrier = barrier

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, errs[i] = submit("adm1", workflow.EntityContract, "c-race", workflow.ActionApprove, nil)
				}(i)
			}
			wg.Wait()
			store.readBarrier = nil

			successes, conflicts := 0, 0
			for _, err := range errs {
				switch {
				case err == nil:
					successes++
				case errors.Is(err, internal.ErrConcurrentModification):
					conflicts++
				}
			}
			Expect(successes).To(Equal(1))
			Expect(conflicts).To(Equal(1))

			inst := store.instance("t1", workflow.EntityContract, "c-race")
			Expect(inst.CurrentState).To(Equal("hr_review"))
			Expect(inst.Version).To(Equal(int64(2)))
			Expect(store.historyOf(inst.ID)).To(HaveLen(2))

			var conflictAudits int
			for _, e := range store.auditEntries() {
				if e.Reason == workflow.ReasonConcurrentModification {
					conflictAudits++
				}
			}
			Expect(conflictAudits).To(Equal(1))
		})

		It("creates one instance when two submissions race", func() {
			barrier := &sync.WaitGroup{}
			barrier.Add(2)
			store.readBarrier = barrier

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, errs[i] = submit("alice", workflow.EntityLetter, "l-race", workflow.ActionSubmit, nil)
				}(i)
			}
			wg.Wait()
			store.readBarrier = nil

			Expect(errs).To(ContainElement(BeNil()))
			Expect(errs).To(ContainElement(MatchError(internal.ErrConcurrentModification)))
		})
	})

	Describe("dispatch", func() {
		It("hands side effects to the dispatcher only after commit", func() {
			_, err := submit("stranger", workflow.EntityLetter, "l-3", workflow.ActionSubmit, nil)
			Expect(err).To(HaveOccurred())
			calls, _ := dispatcher.snapshot()
			Expect(calls).To(Equal(0))

			mustSubmit("alice", workflow.EntityLetter, "l-3", workflow.ActionSubmit)
			calls, effects := dispatcher.snapshot()
			Expect(calls).To(Equal(1))
			Expect(effects).To(HaveLen(1))
			Expect(effects[0].RecipientID).To(Equal("mgr1"))
			Expect(effects[0].State).To(Equal("hr_review"))
		})

		It("skips notifying an assignee who is also the actor", func() {
			repo.add("alice", rbac.RoleManager, "t1", t0.Add(time.Hour))
			res := mustSubmit("alice", workflow.EntityLetter, "l-4", workflow.ActionSubmit)
			Expect(res.NextAssigneeID).To(HaveValue(Equal("alice")))
			Expect(res.SideEffects).To(BeEmpty())
		})
	})

	Describe("reads", func() {
		BeforeEach(func() {
			mustSubmit("alice", workflow.EntityLeaveRequest, "lr-r", workflow.ActionSubmit)
		})

		It("returns the instance with its history", func() {
			view, err := engine.GetInstance(ctx, actor("alice"), workflow.EntityLeaveRequest, "lr-r")
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Instance.CurrentState).To(Equal("manager_review"))
			Expect(view.History).To(HaveLen(1))
		})

		It("lets a reviewer read an entity they do not own", func() {
			view, err := engine.GetInstance(ctx, actor("mgr1"), workflow.EntityLeaveRequest, "lr-r")
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Instance.ID).NotTo(BeEmpty())
		})

		It("hides another actor's instance from a plain user", func() {
			_, err := engine.GetInstance(ctx, actor("viewer"), workflow.EntityLeaveRequest, "lr-r")
			Expect(errors.Is(err, internal.ErrInsufficientPermission)).To(BeTrue())
		})

		It("dry-runs the guard for every outgoing action without auditing", func() {
			auditBefore := len(store.auditEntries())

			options, err := engine.AvailableActions(ctx, actor("mgr1"), workflow.EntityLeaveRequest, "lr-r")
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(HaveLen(3))
			for _, o := range options {
				Expect(o.Allowed).To(BeTrue(), o.Action)
			}

			options, err = engine.AvailableActions(ctx, actor("alice"), workflow.EntityLeaveRequest, "lr-r")
			Expect(err).NotTo(HaveOccurred())
			for _, o := range options {
				Expect(o.Allowed).To(BeFalse(), o.Action)
			}

			Expect(store.auditEntries()).To(HaveLen(auditBefore))
		})

		It("lists the initial actions for an entity without an instance", func() {
			options, err := engine.AvailableActions(ctx, actor("alice"), workflow.EntityLetter, "new-letter")
			Expect(err).NotTo(HaveOccurred())
			Expect(options).To(HaveLen(1))
			Expect(options[0].Action).To(Equal(workflow.ActionSubmit))
			Expect(options[0].Allowed).To(BeTrue())
		})
	})
})
