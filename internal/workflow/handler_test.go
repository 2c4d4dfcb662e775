package workflow_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/approval-workflow/internal"
	"github.com/frahmantamala/approval-workflow/internal/rbac"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
)

var _ = Describe("Workflow Handler", func() {
	var (
		store   *memStore
		handler *workflow.Handler
	)

	BeforeEach(func() {
		t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		store = newMemStore()
		repo := &assignmentRepo{}
		repo.add("prom", rbac.RolePromoter, "t1", t0)
		repo.add("adm1", rbac.RoleAdmin, "t1", t0)
		repo.add("mgr1", rbac.RoleManager, "t1", t0)

		catalog, err := rbac.NewDefaultCatalog(nil, discardLogger)
		Expect(err).NotTo(HaveOccurred())
		resolver := rbac.NewResolver(repo, catalog, discardLogger)
		registry, err := workflow.NewDefaultRegistry()
		Expect(err).NotTo(HaveOccurred())

		engine := workflow.NewEngine(
			registry,
			rbac.NewGuard(resolver, discardLogger),
			workflow.NewAssigneeResolver(resolver, discardLogger),
			store,
			store.auditLog(),
			discardLogger,
			workflow.WithDispatcher(&recordingDispatcher{}),
		)
		handler = workflow.NewHandler(engine)
	})

	post := func(actor *internal.Actor, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflow/actions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if actor != nil {
			req = req.WithContext(internal.ContextWithActor(req.Context(), *actor))
		}
		w := httptest.NewRecorder()
		handler.SubmitAction(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var body map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		return body
	}

	It("answers 200 with success on the submit that creates the instance", func() {
		w := post(&internal.Actor{ID: "prom", TenantID: "t1"},
			`{"entityType":"contract","entityId":"c-1","action":"submit"}`)
		Expect(w.Code).To(Equal(http.StatusOK))

		body := decode(w)
		Expect(body).To(HaveKeyWithValue("success", true))
		Expect(body).To(HaveKeyWithValue("newState", "legal_review"))
		Expect(body).To(HaveKeyWithValue("nextAssigneeId", "adm1"))
		Expect(body).To(HaveKeyWithValue("sequence", BeNumerically("==", 1)))
		Expect(body).To(HaveKey("sideEffects"))
		Expect(store.instance("t1", workflow.EntityContract, "c-1")).NotTo(BeNil())
	})

	It("answers the same way for later actions on the instance", func() {
		Expect(post(&internal.Actor{ID: "prom", TenantID: "t1"},
			`{"entityType":"contract","entityId":"c-1","action":"submit"}`).Code).To(Equal(http.StatusOK))

		w := post(&internal.Actor{ID: "adm1", TenantID: "t1"},
			`{"entityType":"contract","entityId":"c-1","action":"request_changes","comment":"add annex"}`)
		Expect(w.Code).To(Equal(http.StatusOK))

		body := decode(w)
		Expect(body).To(HaveKeyWithValue("success", true))
		Expect(body).To(HaveKeyWithValue("previousState", "legal_review"))
		Expect(body).To(HaveKeyWithValue("newState", workflow.StateDraft))
		Expect(body).To(HaveKeyWithValue("sequence", BeNumerically("==", 2)))
	})

	It("requires an authenticated actor", func() {
		w := post(nil, `{"entityType":"contract","entityId":"c-1","action":"submit"}`)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(decode(w)).NotTo(HaveKey("success"))
	})

	It("rejects a malformed body", func() {
		w := post(&internal.Actor{ID: "prom", TenantID: "t1"}, `{"entityType":`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(store.auditEntries()).To(BeEmpty())
	})
})
