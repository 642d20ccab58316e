package worker

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/record"
	"github.com/kimbleai/engram/pkg/store/inmemory"
	testutils "github.com/kimbleai/engram/pkg/utils/test"
)

// newTestPool creates a worker pool backed by an in-memory driver.
// Callers should "wp.Close()" to drain enqueued jobs before asserting storage state.
func newTestPool() (*Pool, *inmemory.Driver) {
	logger := zap.NewNop()
	driver := inmemory.NewDriver(3)

	recorder, err := record.NewRecorder(record.Config{
		Store:    driver,
		Embedder: testutils.NewMockEmbedder(),
	})
	Expect(err).NotTo(HaveOccurred())

	wp, err := NewPool(&Config{
		Recorder: recorder,
		Logger:   logger,
	})
	Expect(err).NotTo(HaveOccurred())

	return wp, driver
}

var _ = Describe("Worker Pool", func() {
	var (
		wp     *Pool
		driver *inmemory.Driver
		ctx    context.Context
		scope  memory.Scope
	)

	BeforeEach(func() {
		wp, driver = newTestPool()
		ctx = context.Background()
		scope = memory.Scope{OwnerID: "alice"}
	})

	Describe("NewPool", func() {
		It("requires a recorder", func() {
			_, err := NewPool(&Config{})
			Expect(err).To(HaveOccurred())
		})

		It("applies worker and queue defaults", func() {
			c := &Config{}
			recorder, err := record.NewRecorder(record.Config{
				Store:    inmemory.NewDriver(3),
				Embedder: testutils.NewMockEmbedder(),
			})
			Expect(err).NotTo(HaveOccurred())
			c.Recorder = recorder

			pool, err := NewPool(c)
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()

			Expect(c.NumWorkers).To(Equal(uint(3)))
			Expect(c.QueueSize).To(Equal(uint(256)))
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			ok := wp.Enqueue(Job{
				Kind:     memory.KindExchange,
				Scope:    scope,
				Query:    "What is 2+2?",
				Response: "2+2 equals 4.",
			})
			Expect(ok).To(BeTrue())
			wp.Close()
		})
	})

	Describe("Asynchronous recording", func() {
		// These tests enqueue jobs and drain via wp.Close() before
		// asserting storage state.

		It("records an exchange job", func() {
			wp.Enqueue(Job{
				Kind:     memory.KindExchange,
				Scope:    scope,
				Query:    "What is 2+2?",
				Response: "2+2 equals 4.",
			})
			wp.Close()

			items, err := driver.List(ctx, scope)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Kind).To(Equal(memory.KindExchange))
			Expect(items[0].Title).To(Equal("What is 2+2?"))
			Expect(items[0].Text).To(Equal("2+2 equals 4."))
		})

		It("records a document job", func() {
			wp.Enqueue(Job{
				Kind:  memory.KindDocument,
				Scope: scope,
				Title: "Tax notes",
				Text:  "Standard deduction.",
			})
			wp.Close()

			items, err := driver.List(ctx, scope)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Kind).To(Equal(memory.KindDocument))
		})

		It("drains every enqueued job on Close", func() {
			for range 10 {
				wp.Enqueue(Job{
					Kind:     memory.KindExchange,
					Scope:    scope,
					Query:    "question",
					Response: "answer",
				})
			}
			wp.Close()

			Expect(driver.Count()).To(Equal(10))
		})

		It("drops invalid jobs without storing anything", func() {
			wp.Enqueue(Job{
				Kind:  memory.KindDocument,
				Scope: scope,
				// Missing title, the record path rejects it.
			})
			wp.Close()

			Expect(driver.Count()).To(BeZero())
		})
	})
})
