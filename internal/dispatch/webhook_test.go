package dispatch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/approval-workflow/internal/core/events"
	"github.com/frahmantamala/approval-workflow/internal/dispatch"
)

var _ = Describe("Webhook collaborators", func() {
	var (
		calls  atomic.Int32
		status atomic.Int32
		server *httptest.Server
		ref    events.EntityRef
		ctx    context.Context
		lastID atomic.Value
	)

	BeforeEach(func() {
		calls.Store(0)
		status.Store(http.StatusAccepted)
		ctx = context.Background()
		ref = events.EntityRef{TenantID: "t1", EntityType: "contract", EntityID: "c1", InstanceID: "i1", State: "active"}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			lastID.Store(r.Header.Get("Idempotency-Key"))
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(int(status.Load()))
		}))
		DeferCleanup(server.Close)
	})

	It("posts the event with its id as the idempotency key", func() {
		notifier := dispatch.NewWebhookNotifier(dispatch.WebhookConfig{URL: server.URL}, discardLogger)
		ev := events.NewNotifyEvent(ref, "prom", "contract c1 reached active")

		Expect(notifier.Notify(ctx, ev)).To(Succeed())
		Expect(calls.Load()).To(Equal(int32(1)))
		Expect(lastID.Load()).To(Equal(ev.EventID()))
	})

	It("retries server errors before failing", func() {
		status.Store(http.StatusBadGateway)
		trigger := dispatch.NewWebhookDocumentTrigger(dispatch.WebhookConfig{URL: server.URL, Retries: 2}, discardLogger)

		err := trigger.Generate(ctx, events.NewGenerateDocumentEvent(ref))
		Expect(err).To(MatchError(ContainSubstring("status 502")))
		Expect(calls.Load()).To(Equal(int32(3)))
	})

	It("does not retry client errors", func() {
		status.Store(http.StatusUnprocessableEntity)
		trigger := dispatch.NewWebhookDocumentTrigger(dispatch.WebhookConfig{URL: server.URL, Retries: 2}, discardLogger)

		Expect(trigger.Generate(ctx, events.NewGenerateDocumentEvent(ref))).NotTo(Succeed())
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("opens the breaker after consecutive failures", func() {
		status.Store(http.StatusServiceUnavailable)
		notifier := dispatch.NewWebhookNotifier(dispatch.WebhookConfig{
			URL:       server.URL,
			TripAfter: 2,
			OpenFor:   time.Minute,
		}, discardLogger)

		for i := 0; i < 2; i++ {
			Expect(notifier.Notify(ctx, events.NewNotifyEvent(ref, "prom", "hi"))).NotTo(Succeed())
		}
		Expect(calls.Load()).To(Equal(int32(2)))

		err := notifier.Notify(ctx, events.NewNotifyEvent(ref, "prom", "hi"))
		Expect(err).To(MatchError(ContainSubstring("circuit breaker is open")))
		Expect(calls.Load()).To(Equal(int32(2)))
	})
})
