package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/approval-workflow/internal/transport/middleware"
)

var _ = Describe("RequestValidator", func() {
	var h http.Handler

	BeforeEach(func() {
		doc, err := middleware.LoadOpenAPI("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
		validator, err := middleware.NewRequestValidator(doc)
		Expect(err).NotTo(HaveOccurred())
		h = validator.Middleware(ok)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/actions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	It("passes a well-formed action", func() {
		rec := post(`{"entityType":"contract","entityId":"c-1","action":"submit","attributes":{"manager_id":"m1"}}`)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
	})

	It("rejects a body missing the action", func() {
		rec := post(`{"entityType":"contract","entityId":"c-1"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("VALIDATION_FAILED"))
	})

	It("rejects an entity type that is not an identifier", func() {
		rec := post(`{"entityType":"Contract; DROP","entityId":"c-1","action":"submit"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects out of range paging", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/workitems?limit=5000", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("lets undocumented paths through", func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Code).To(Equal(http.StatusNoContent))
	})
})
