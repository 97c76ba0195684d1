package donation_test

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apehbe/charity-backend/internal/donation"
)

var _ = Describe("NewReference", func() {
	referencePattern := regexp.MustCompile(`^APEH-\d+-[0-9a-z]{9}$`)

	It("matches the APEH-<millis>-<suffix> format", func() {
		ref := donation.NewReference()
		Expect(ref).To(MatchRegexp(referencePattern.String()))
	})

	It("embeds a plausible millisecond timestamp", func() {
		before := time.Now().UnixMilli()
		ref := donation.NewReference()
		after := time.Now().UnixMilli()

		parts := strings.Split(ref, "-")
		Expect(parts).To(HaveLen(3))

		millis, err := strconv.ParseInt(parts[1], 10, 64)
		Expect(err).ToNot(HaveOccurred())
		Expect(millis).To(BeNumerically(">=", before))
		Expect(millis).To(BeNumerically("<=", after))
	})

	It("does not repeat across many generations", func() {
		seen := make(map[string]struct{})
		for i := 0; i < 1000; i++ {
			ref := donation.NewReference()
			Expect(seen).ToNot(HaveKey(ref))
			seen[ref] = struct{}{}
		}
	})
})
