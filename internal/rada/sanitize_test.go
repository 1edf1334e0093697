package rada_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nitesh/bill_monitor/internal/rada"
)

var _ = Describe("SanitizePayload", func() {
	It("replaces every control byte with a space", func() {
		in := []byte{'a', 0x00, 'b', 0x1f, '\n', '\r', '\t', 'c', 0x20, 0x7f}
		out := rada.SanitizePayload(in)
		Expect(string(out)).To(Equal("a b    c \x7f"))
	})

	It("leaves multi-byte UTF-8 text untouched", func() {
		Expect(string(rada.SanitizePayload([]byte("земельні")))).To(Equal("земельні"))
	})
})
