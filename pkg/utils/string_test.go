package utils

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestUtils(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Utils Suite")
}

var _ = Describe("truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		result := Truncate("this is a long string", 10)
		Expect(result).To(Equal("this is a ..."))
	})

	It("counts runes, not bytes", func() {
		result := Truncate("ééééé", 3)
		Expect(result).To(Equal("ééé..."))
	})

	It("never splits a multi-byte rune", func() {
		// 5 runes but 10 bytes; a byte-based slice at 7 would cut
		// through the fourth rune.
		Expect(Truncate("ééééé", 7)).To(Equal("ééééé"))
	})
})
