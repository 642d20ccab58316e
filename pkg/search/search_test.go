package search_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/kimbleai/engram/pkg/memory"
	"github.com/kimbleai/engram/pkg/search"
	"github.com/kimbleai/engram/pkg/store/inmemory"
)

func TestSearch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Search Suite")
}

var _ = Describe("Cosine", func() {
	It("is 1 for identical vectors", func() {
		Expect(search.Cosine([]float32{1, 2, 3}, []float32{1, 2, 3})).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("is 0 for orthogonal vectors", func() {
		Expect(search.Cosine([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("is -1 for opposite vectors", func() {
		Expect(search.Cosine([]float32{1, 0}, []float32{-1, 0})).To(BeNumerically("~", -1.0, 1e-9))
	})

	It("is 0 when either vector is all zeros", func() {
		Expect(search.Cosine([]float32{0, 0}, []float32{1, 1})).To(BeZero())
	})

	It("ignores magnitude", func() {
		a := search.Cosine([]float32{1, 1}, []float32{2, 2})
		Expect(a).To(BeNumerically("~", 1.0, 1e-9))
	})
})

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		d      *inmemory.Driver
		engine *search.Engine
		scope  memory.Scope
	)

	insert := func(owner, project string, vec []float32, title string) string {
		GinkgoHelper()
		id, err := d.Insert(ctx, &memory.Item{
			OwnerID:   owner,
			ProjectID: project,
			Kind:      memory.KindDocument,
			Title:     title,
			Text:      "text for " + title,
			Embedding: vec,
		})
		Expect(err).NotTo(HaveOccurred())
		return id
	}

	BeforeEach(func() {
		ctx = context.Background()
		d = inmemory.NewDriver(3)
		engine = search.NewEngine(d, zap.NewNop())
		scope = memory.Scope{OwnerID: "alice"}
	})

	It("ranks candidates by similarity, most similar first", func() {
		insert("alice", "", []float32{1, 0, 0}, "exact")
		insert("alice", "", []float32{0.9, 0.1, 0}, "close")
		insert("alice", "", []float32{0, 1, 0}, "orthogonal")

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.Options{TopK: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(2))
		Expect(matches[0].Item.Title).To(Equal("exact"))
		Expect(matches[1].Item.Title).To(Equal("close"))
		Expect(matches[0].Score).To(BeNumerically(">", matches[1].Score))
	})

	It("returns the full candidate set with a zero threshold", func() {
		insert("alice", "", []float32{1, 0, 0}, "a")
		insert("alice", "", []float32{0, 1, 0}, "b")
		insert("alice", "", []float32{0, 0, 1}, "c")

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.Options{Threshold: 0, TopK: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(3))
	})

	It("keeps negative-similarity candidates when the threshold is zero", func() {
		insert("alice", "", []float32{1, 0, 0}, "aligned")
		insert("alice", "", []float32{-1, 0, 0}, "opposite")

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.Options{Threshold: 0, TopK: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(2))
		Expect(matches[0].Item.Title).To(Equal("aligned"))
		Expect(matches[1].Item.Title).To(Equal("opposite"))
		Expect(matches[1].Score).To(BeNumerically("<", 0))
	})

	It("filters scores below the threshold", func() {
		insert("alice", "", []float32{1, 0, 0}, "relevant")
		insert("alice", "", []float32{0.5, 0.5, 0.7}, "marginal")

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Item.Title).To(Equal("relevant"))
	})

	It("truncates to top K after ranking", func() {
		for i := range 8 {
			insert("alice", "", []float32{1, float32(i) * 0.01, 0}, "item")
		}

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.Options{TopK: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(5))
	})

	It("breaks exact ties by recency, newest first", func() {
		oldID := insert("alice", "", []float32{1, 0, 0}, "old")
		newID := insert("alice", "", []float32{1, 0, 0}, "new")

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.Options{TopK: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(2))
		Expect(matches[0].Item.ID).To(Equal(newID))
		Expect(matches[1].Item.ID).To(Equal(oldID))
	})

	It("never returns another owner's items", func() {
		insert("alice", "", []float32{1, 0, 0}, "mine")
		insert("bob", "", []float32{1, 0, 0}, "theirs")

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.Options{TopK: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Item.Title).To(Equal("mine"))
	})

	It("scopes to a project plus the owner's ungrouped items", func() {
		insert("alice", "taxes", []float32{1, 0, 0}, "taxes doc")
		insert("alice", "", []float32{1, 0, 0}, "global doc")
		insert("alice", "cooking", []float32{1, 0, 0}, "cooking doc")

		projectScope := memory.Scope{OwnerID: "alice", ProjectID: "taxes"}
		matches, err := engine.Search(ctx, []float32{1, 0, 0}, projectScope, search.Options{TopK: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(2))
	})

	It("excludes candidates without an embedding", func() {
		insert("alice", "", []float32{1, 0, 0}, "embedded")
		insert("alice", "", nil, "bare")

		matches, err := engine.Search(ctx, []float32{1, 0, 0}, scope, search.Options{TopK: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Item.Title).To(Equal("embedded"))
	})

	It("returns an empty result for an empty query vector", func() {
		insert("alice", "", []float32{1, 0, 0}, "item")

		matches, err := engine.Search(ctx, nil, scope, search.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(BeEmpty())
	})

	It("returns an empty result for an empty scope", func() {
		matches, err := engine.Search(ctx, []float32{1, 0, 0}, memory.Scope{OwnerID: "nobody"}, search.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(BeEmpty())
	})
})
