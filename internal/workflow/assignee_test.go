package workflow_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/approval-workflow/internal/rbac"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
)

var _ = Describe("AssigneeResolver", func() {
	var (
		ctx      context.Context
		repo     *assignmentRepo
		resolver *workflow.AssigneeResolver
		subject  workflow.Subject
		t0       time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		t0 = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
		repo = &assignmentRepo{}
		catalog, err := rbac.NewDefaultCatalog(nil, discardLogger)
		Expect(err).NotTo(HaveOccurred())
		resolver = workflow.NewAssigneeResolver(rbac.NewResolver(repo, catalog, discardLogger), discardLogger)

		current := "reviewer"
		subject = workflow.Subject{
			TenantID:   "t1",
			EntityType: workflow.EntityContract,
			EntityID:   "c-1",
			CreatedBy:  "author",
			Current:    &current,
			Attributes: map[string]string{"signatory_id": "signer"},
		}
	})

	It("resolves nobody for none", func() {
		id, err := resolver.Resolve(ctx, workflow.NoAssignee(), subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(BeNil())
	})

	It("keeps the current assignee for unchanged", func() {
		id, err := resolver.Resolve(ctx, workflow.UnchangedAssignee(), subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(HaveValue(Equal("reviewer")))
	})

	It("evaluates creator and entity attribute expressions", func() {
		id, err := resolver.Resolve(ctx, workflow.SpecificActor(workflow.ExprCreator), subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(HaveValue(Equal("author")))

		id, err = resolver.Resolve(ctx, workflow.SpecificActor("entity.signatory_id"), subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(HaveValue(Equal("signer")))
	})

	It("picks the most recently assigned role holder, ties broken by actor id", func() {
		repo.add("zed", rbac.RoleAdmin, "t1", t0)
		repo.add("amy", rbac.RoleAdmin, "t1", t0)
		repo.add("old", rbac.RoleAdmin, "t1", t0.Add(-time.Hour))
		repo.add("other-tenant", rbac.RoleAdmin, "t2", t0.Add(time.Hour))

		id, err := resolver.Resolve(ctx, workflow.RoleInTenant(rbac.RoleAdmin), subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(HaveValue(Equal("amy")))
	})

	It("walks the fallback chain until someone qualifies", func() {
		repo.add("boss", rbac.RoleEmployer, "t1", t0)
		rule := workflow.SpecificActor("entity.missing").Or(workflow.RoleInTenant(rbac.RoleEmployer))

		id, err := resolver.Resolve(ctx, rule, subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(HaveValue(Equal("boss")))
	})

	It("returns nobody when the whole chain is empty", func() {
		rule := workflow.SpecificActor("entity.missing").Or(workflow.RoleInTenant(rbac.RoleManager))

		id, err := resolver.Resolve(ctx, rule, subject)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(BeNil())
	})
})
