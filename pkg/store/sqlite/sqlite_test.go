package sqlite_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/store"
	"github.com/kimbleai/engram/pkg/store/sqlite"
)

func TestSQLite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Store Suite")
}

var _ = Describe("Driver", func() {
	var (
		ctx context.Context
		d   *sqlite.Driver
	)

	newItem := func(owner, project string) *memory.Item {
		return &memory.Item{
			OwnerID:   owner,
			ProjectID: project,
			Kind:      memory.KindDocument,
			Title:     "title",
			Text:      "text",
			Embedding: []float32{0.1, 0.2, 0.3},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		d, err = sqlite.NewDriver(sqlite.Config{
			DBPath:     ":memory:",
			Dimensions: 3,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(d.Close()).To(Succeed())
	})

	Describe("NewDriver", func() {
		It("requires a database path", func() {
			_, err := sqlite.NewDriver(sqlite.Config{Dimensions: 3}, zap.NewNop())
			Expect(err).To(HaveOccurred())
		})

		It("requires a positive dimension", func() {
			_, err := sqlite.NewDriver(sqlite.Config{DBPath: ":memory:"}, zap.NewNop())
			Expect(err).To(MatchError(store.ErrDimensionMismatch))
		})
	})

	Describe("Insert and Get", func() {
		It("round-trips an item with its embedding", func() {
			id, err := d.Insert(ctx, newItem("alice", "taxes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			got, err := d.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.OwnerID).To(Equal("alice"))
			Expect(got.ProjectID).To(Equal("taxes"))
			Expect(got.Kind).To(Equal(memory.KindDocument))
			Expect(got.Embedding).To(Equal([]float32{0.1, 0.2, 0.3}))
			Expect(got.CreatedAt.IsZero()).To(BeFalse())
			Expect(got.Seq).To(BeNumerically(">", 0))
		})

		It("round-trips an exchange's full query text", func() {
			item := newItem("alice", "")
			item.Kind = memory.KindExchange
			item.Query = "What was my deduction?\nI filed in April."

			id, err := d.Insert(ctx, item)
			Expect(err).NotTo(HaveOccurred())

			got, err := d.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Query).To(Equal(item.Query))
			Expect(got.EmbeddingText()).To(Equal(item.Query))
		})

		It("stores items without an embedding", func() {
			item := newItem("alice", "")
			item.Embedding = nil

			id, err := d.Insert(ctx, item)
			Expect(err).NotTo(HaveOccurred())

			got, err := d.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.HasEmbedding()).To(BeFalse())
		})

		It("rejects embeddings with the wrong dimension", func() {
			item := newItem("alice", "")
			item.Embedding = []float32{0.1, 0.2}

			_, err := d.Insert(ctx, item)
			Expect(err).To(MatchError(store.ErrDimensionMismatch))
		})

		It("returns not found for unknown ids", func() {
			_, err := d.Get(ctx, "nope")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("assigns strictly increasing timestamps", func() {
			firstID, err := d.Insert(ctx, newItem("alice", ""))
			Expect(err).NotTo(HaveOccurred())
			secondID, err := d.Insert(ctx, newItem("alice", ""))
			Expect(err).NotTo(HaveOccurred())

			first, err := d.Get(ctx, firstID)
			Expect(err).NotTo(HaveOccurred())
			second, err := d.Get(ctx, secondID)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.CreatedAt.After(first.CreatedAt)).To(BeTrue())
			Expect(second.Seq).To(BeNumerically(">", first.Seq))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for _, it := range []*memory.Item{
				newItem("alice", ""),
				newItem("alice", "taxes"),
				newItem("alice", "cooking"),
				newItem("bob", "taxes"),
			} {
				_, err := d.Insert(ctx, it)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("never returns another owner's items", func() {
			items, err := d.List(ctx, memory.Scope{OwnerID: "alice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(3))
			for _, it := range items {
				Expect(it.OwnerID).To(Equal("alice"))
			}
		})

		It("scopes to a project plus the owner's ungrouped items", func() {
			items, err := d.List(ctx, memory.Scope{OwnerID: "alice", ProjectID: "taxes"})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
		})

		It("returns items in insertion order with embeddings attached", func() {
			items, err := d.List(ctx, memory.Scope{OwnerID: "alice"})
			Expect(err).NotTo(HaveOccurred())

			for i := 1; i < len(items); i++ {
				Expect(items[i].CreatedAt.After(items[i-1].CreatedAt)).To(BeTrue())
			}
			for _, it := range items {
				Expect(it.Embedding).To(Equal([]float32{0.1, 0.2, 0.3}))
			}
		})

		It("returns nothing for an empty scope", func() {
			items, err := d.List(ctx, memory.Scope{OwnerID: "carol"})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())
		})
	})

	Describe("MissingEmbeddings and BackfillEmbedding", func() {
		It("finds unembedded items and backfills them exactly once", func() {
			embedded, err := d.Insert(ctx, newItem("alice", ""))
			Expect(err).NotTo(HaveOccurred())

			bare := newItem("alice", "")
			bare.Embedding = nil
			bareID, err := d.Insert(ctx, bare)
			Expect(err).NotTo(HaveOccurred())

			missing, err := d.MissingEmbeddings(ctx, memory.Scope{OwnerID: "alice"}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(HaveLen(1))
			Expect(missing[0].ID).To(Equal(bareID))

			Expect(d.BackfillEmbedding(ctx, bareID, []float32{1, 0, 0})).To(Succeed())

			got, err := d.Get(ctx, bareID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Embedding).To(Equal([]float32{1, 0, 0}))

			// Second backfill is a no-op.
			Expect(d.BackfillEmbedding(ctx, bareID, []float32{0, 1, 0})).To(Succeed())

			got, err = d.Get(ctx, bareID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Embedding).To(Equal([]float32{1, 0, 0}))

			// The already-embedded item never shows up as a candidate.
			missing, err = d.MissingEmbeddings(ctx, memory.Scope{OwnerID: "alice"}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(BeEmpty())

			_, err = d.Get(ctx, embedded)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects vectors with the wrong dimension", func() {
			bare := newItem("alice", "")
			bare.Embedding = nil
			id, err := d.Insert(ctx, bare)
			Expect(err).NotTo(HaveOccurred())

			err = d.BackfillEmbedding(ctx, id, []float32{1, 0})
			Expect(err).To(MatchError(store.ErrDimensionMismatch))
		})

		It("returns not found for unknown ids", func() {
			err := d.BackfillEmbedding(ctx, "nope", []float32{1, 0, 0})
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("honors the candidate limit", func() {
			for range 5 {
				it := newItem("alice", "")
				it.Embedding = nil
				_, err := d.Insert(ctx, it)
				Expect(err).NotTo(HaveOccurred())
			}

			missing, err := d.MissingEmbeddings(ctx, memory.Scope{OwnerID: "alice"}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(missing).To(HaveLen(2))
		})
	})
})
