package backfill_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/backfill"
	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/record"
	"github.com/kimbleai/engram/pkg/search"
	"github.com/kimbleai/engram/pkg/store/inmemory"
	testutils "github.com/kimbleai/engram/pkg/utils/test"
)

func TestBackfill(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Backfill Suite")
}

var _ = Describe("Backfiller", func() {
	var (
		ctx      context.Context
		d        *inmemory.Driver
		embedder *testutils.MockEmbedder
		scope    memory.Scope
	)

	insertBare := func(title string) string {
		GinkgoHelper()
		id, err := d.Insert(ctx, &memory.Item{
			OwnerID: "alice",
			Kind:    memory.KindDocument,
			Title:   title,
			Text:    "text for " + title,
		})
		Expect(err).NotTo(HaveOccurred())
		return id
	}

	newBackfiller := func(opts backfill.Options) *backfill.Backfiller {
		GinkgoHelper()
		b, err := backfill.NewBackfiller(d, embedder, opts, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return b
	}

	BeforeEach(func() {
		ctx = context.Background()
		d = inmemory.NewDriver(3)
		embedder = testutils.NewMockEmbedder()
		scope = memory.Scope{OwnerID: "alice"}
	})

	It("requires a store and an embedder", func() {
		_, err := backfill.NewBackfiller(nil, embedder, backfill.Options{}, zap.NewNop())
		Expect(err).To(HaveOccurred())

		_, err = backfill.NewBackfiller(d, nil, backfill.Options{}, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("embeds and backfills every candidate", func() {
		first := insertBare("a")
		second := insertBare("b")

		result, err := newBackfiller(backfill.Options{}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Scanned).To(Equal(2))
		Expect(result.Backfilled).To(Equal(2))
		Expect(result.Failed).To(BeZero())

		for _, id := range []string{first, second} {
			got, err := d.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.HasEmbedding()).To(BeTrue())
		}
	})

	It("makes backfilled items visible to search", func() {
		insertBare("tax notes")
		embedder.Embeddings["tax notes\ntext for tax notes"] = []float32{1, 0, 0}

		engine := search.NewEngine(d, zap.NewNop())
		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(BeEmpty())

		_, err = newBackfiller(backfill.Options{}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())

		matches, err = engine.Search(ctx, []float32{1, 0, 0}, scope, search.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Item.Title).To(Equal("tax notes"))
	})

	It("re-embeds an exchange's full query, not the derived title", func() {
		embedder.Unavailable = true
		recorder, err := record.NewRecorder(record.Config{Store: d, Embedder: embedder})
		Expect(err).NotTo(HaveOccurred())

		query := "What was my 2025 deduction?\nI filed in April and amended in June."
		item, err := recorder.RecordExchange(ctx, scope, query, "You claimed the standard deduction.")
		Expect(err).NotTo(HaveOccurred())
		Expect(item.HasEmbedding()).To(BeFalse())

		embedder.Unavailable = false
		embedder.Calls = nil

		result, err := newBackfiller(backfill.Options{}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Backfilled).To(Equal(1))

		// The backfilled vector must represent the same canonical text
		// the write path would have embedded.
		Expect(embedder.Calls).To(ConsistOf(query))
	})

	It("is idempotent, a second run finds nothing to do", func() {
		insertBare("a")

		result, err := newBackfiller(backfill.Options{}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Backfilled).To(Equal(1))

		result, err = newBackfiller(backfill.Options{}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Scanned).To(BeZero())
		Expect(result.Backfilled).To(BeZero())
	})

	It("counts per-item embedding failures without aborting the run", func() {
		insertBare("good")
		insertBare("bad")
		embedder.FailOn = "bad\ntext for bad"

		result, err := newBackfiller(backfill.Options{}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Scanned).To(Equal(2))
		Expect(result.Backfilled).To(Equal(1))
		Expect(result.Failed).To(Equal(1))

		// The failed item stays a candidate for the next run.
		missing, err := d.MissingEmbeddings(ctx, scope, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(HaveLen(1))
		Expect(missing[0].Title).To(Equal("bad"))
	})

	It("writes nothing under dry run", func() {
		insertBare("a")

		result, err := newBackfiller(backfill.Options{DryRun: true}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Backfilled).To(Equal(1))

		missing, err := d.MissingEmbeddings(ctx, scope, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(HaveLen(1))
	})

	It("bounds a run with the batch size", func() {
		for _, t := range []string{"a", "b", "c"} {
			insertBare(t)
		}

		result, err := newBackfiller(backfill.Options{BatchSize: 2}).Run(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Scanned).To(Equal(2))
		Expect(result.Backfilled).To(Equal(2))
	})
})
