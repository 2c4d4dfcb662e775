package dispatch_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/approval-workflow/internal/core/events"
	"github.com/frahmantamala/approval-workflow/internal/dispatch"
	"github.com/frahmantamala/approval-workflow/internal/workflow"
)

var _ = Describe("Executor", func() {
	var (
		rec      *recorder
		executor *dispatch.Executor
		ctx      context.Context
	)

	BeforeEach(func() {
		rec = &recorder{}
		executor = dispatch.NewExecutor(rec, rec, discardLogger)
		ctx = context.Background()
	})

	It("routes each side effect to its collaborator", func() {
		for _, effect := range contractEffects() {
			Expect(executor.Execute(ctx, effect)).To(Succeed())
		}

		Expect(rec.generated()).To(HaveLen(1))
		Expect(rec.generated()[0].EntityID).To(Equal("c1"))
		Expect(rec.notifications()).To(HaveLen(1))
		Expect(rec.notifications()[0].RecipientID).To(Equal("prom"))
		Expect(rec.notifications()[0].TenantID).To(Equal("t1"))
	})

	It("returns the collaborator error", func() {
		rec.setFail(true)
		err := executor.Execute(ctx, contractEffects()[1])
		Expect(err).To(MatchError(ContainSubstring("collaborator unavailable")))
	})

	It("rejects unknown side effect kinds", func() {
		_, err := dispatch.ToEvent(workflow.SideEffect{Kind: "fax"})
		Expect(err).To(MatchError(ContainSubstring("unknown side effect kind")))
	})

	Describe("InlineDispatcher", func() {
		It("delivers through the bus after the request context ends", func() {
			bus := events.NewEventBus(discardLogger)
			executor.Subscribe(bus)
			dispatcher := dispatch.NewInlineDispatcher(bus, discardLogger)

			reqCtx, cancel := context.WithCancel(context.Background())
			dispatcher.Dispatch(reqCtx, contractEffects())
			cancel()

			drainCtx, stop := context.WithTimeout(context.Background(), time.Second)
			defer stop()
			Expect(bus.Drain(drainCtx)).To(Succeed())

			Expect(rec.generated()).To(HaveLen(1))
			Expect(rec.notifications()).To(HaveLen(1))
		})
	})
})
