package rbac_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
)

type mockAssignmentRepository struct {
	assignments []rbac.Assignment
	err         error
}

func (m *mockAssignmentRepository) ActiveAssignments(ctx context.Context, actorID, tenantID string) ([]rbac.Assignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []rbac.Assignment
	for _, a := range m.assignments {
		if a.ActorID == actorID && a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepository) ActiveHolders(ctx context.Context, tenantID, roleID string) ([]rbac.Assignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []rbac.Assignment
	for _, a := range m.assignments {
		if a.TenantID == tenantID && a.RoleID == roleID {
			out = append(out, a)
		}
	}
	return out, nil
}

func assign(actor, role, tenant string, active bool, at time.Time) rbac.Assignment {
	return rbac.Assignment{ActorID: actor, RoleID: role, TenantID: tenant, Active: active, AssignedAt: at}
}

var _ = Describe("Resolver", func() {
	var (
		repo     *mockAssignmentRepository
		resolver *rbac.Resolver
		ctx      context.Context
		t0       time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		t0 = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
		repo = &mockAssignmentRepository{}
		catalog, err := rbac.NewDefaultCatalog(nil, nil)
		Expect(err).NotTo(HaveOccurred())
		resolver = rbac.NewResolver(repo, catalog, nil)
	})

	Describe("ResolveEffectivePermissions", func() {
		It("unions the permissions of every active role in the tenant", func() {
			repo.assignments = []rbac.Assignment{
				assign("u1", rbac.RoleEmployee, "t1", true, t0),
				assign("u1", rbac.RoleEmployer, "t1", true, t0),
			}

			perms, err := resolver.ResolveEffectivePermissions(ctx, "u1", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(perms.Has("leave_requests:submit:own")).To(BeTrue())
			Expect(perms.Has("contracts:sign:organization")).To(BeTrue())
		})

		It("ignores inactive assignments and other tenants", func() {
			repo.assignments = []rbac.Assignment{
				assign("u1", rbac.RoleAdmin, "t1", false, t0),
				assign("u1", rbac.RoleAdmin, "t2", true, t0),
				assign("u1", rbac.RoleUser, "t1", true, t0),
			}

			perms, err := resolver.ResolveEffectivePermissions(ctx, "u1", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(perms.Has("contracts:approve:all")).To(BeFalse())
			Expect(perms.Has("contracts:read:own")).To(BeTrue())
		})

		It("returns an empty set for an actor without roles", func() {
			perms, err := resolver.ResolveEffectivePermissions(ctx, "nobody", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(BeEmpty())
		})

		It("refuses to guess a tenant", func() {
			_, err := resolver.ResolveEffectivePermissions(ctx, "u1", "")
			Expect(errors.Is(err, internal.ErrNoTenantContext)).To(BeTrue())
		})

		It("wraps storage failures", func() {
			repo.err = errors.New("connection reset")
			_, err := resolver.ResolveEffectivePermissions(ctx, "u1", "t1")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodePersistenceFailure))
		})
	})

	Describe("ResolveHighestRole", func() {
		It("picks the highest-ranked active role", func() {
			repo.assignments = []rbac.Assignment{
				assign("u1", rbac.RoleEmployee, "t1", true, t0),
				assign("u1", rbac.RoleManager, "t1", true, t0),
				assign("u1", rbac.RoleEmployer, "t1", true, t0),
			}

			role, err := resolver.ResolveHighestRole(ctx, "u1", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal(rbac.RoleManager))
		})

		It("reports NoActiveRole when nothing is assigned", func() {
			repo.assignments = []rbac.Assignment{assign("u1", rbac.RoleAdmin, "t1", false, t0)}

			_, err := resolver.ResolveHighestRole(ctx, "u1", "t1")
			Expect(errors.Is(err, internal.ErrNoActiveRole)).To(BeTrue())
		})
	})

	Describe("RoleHolders", func() {
		It("orders holders by most recent assignment, then actor id", func() {
			repo.assignments = []rbac.Assignment{
				assign("m-old", rbac.RoleManager, "t1", true, t0),
				assign("m-b", rbac.RoleManager, "t1", true, t0.Add(time.Hour)),
				assign("m-a", rbac.RoleManager, "t1", true, t0.Add(time.Hour)),
				assign("m-off", rbac.RoleManager, "t1", false, t0.Add(2*time.Hour)),
			}

			holders, err := resolver.RoleHolders(ctx, "t1", rbac.RoleManager)
			Expect(err).NotTo(HaveOccurred())
			Expect(holders).To(HaveLen(3))
			Expect(holders[0].ActorID).To(Equal("m-a"))
			Expect(holders[1].ActorID).To(Equal("m-b"))
			Expect(holders[2].ActorID).To(Equal("m-old"))
		})
	})
})
