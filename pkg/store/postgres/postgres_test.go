package postgres_test

import (
	"context"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/store"
	"github.com/kimbleai/engram/pkg/store/postgres"
)

func TestPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Store Suite")
}

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("ENGRAM_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("ENGRAM_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		ctx context.Context
		d   *postgres.Driver
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
		dsn := connStr()

		var err error
		d, err = postgres.NewDriver(ctx, postgres.Config{
			DSN:        dsn,
			Dimensions: 3,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		// Clean all items before each test for isolation.
		Expect(d.Truncate(ctx)).To(Succeed())
	})

	AfterEach(func() {
		if d != nil {
			d.Close()
		}
	})

	It("round-trips an item with its embedding", func() {
		id, err := d.Insert(ctx, newItem("alice", "taxes"))
		Expect(err).NotTo(HaveOccurred())

		got, err := d.Get(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.OwnerID).To(Equal("alice"))
		Expect(got.Embedding).To(Equal([]float32{0.1, 0.2, 0.3}))
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

	It("scopes reads to the owner and project", func() {
		for _, it := range []*memory.Item{
			newItem("alice", ""),
			newItem("alice", "taxes"),
			newItem("bob", "taxes"),
		} {
			_, err := d.Insert(ctx, it)
			Expect(err).NotTo(HaveOccurred())
		}

		items, err := d.List(ctx, memory.Scope{OwnerID: "alice", ProjectID: "taxes"})
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(2))
	})

	It("backfills missing embeddings exactly once", func() {
		bare := newItem("alice", "")
		bare.Embedding = nil
		id, err := d.Insert(ctx, bare)
		Expect(err).NotTo(HaveOccurred())

		missing, err := d.MissingEmbeddings(ctx, memory.Scope{OwnerID: "alice"}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(missing).To(HaveLen(1))

		Expect(d.BackfillEmbedding(ctx, id, []float32{1, 0, 0})).To(Succeed())
		Expect(d.BackfillEmbedding(ctx, id, []float32{0, 1, 0})).To(Succeed())

		got, err := d.Get(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Embedding).To(Equal([]float32{1, 0, 0}))
	})

	It("returns not found for unknown ids", func() {
		_, err := d.Get(ctx, "00000000-0000-0000-0000-000000000000")
		Expect(err).To(MatchError(store.ErrNotFound))
	})
})
