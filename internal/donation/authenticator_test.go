package donation_test

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apehbe/charity-backend/internal/donation"
)

func paystackSign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ = Describe("WebhookAuthenticator", func() {
	const (
		paystackSecret = "sk_test_secret"
		secretHash     = "flw-secret-hash-value"
	)

	var authenticator *donation.WebhookAuthenticator

	BeforeEach(func() {
		authenticator = donation.NewWebhookAuthenticator(paystackSecret, secretHash)
	})

	Describe("VerifyPaystack", func() {
		body := []byte(`{"event":"charge.success","data":{"reference":"APEH-1-abcdefghi"}}`)

		It("accepts the HMAC-SHA512 of the raw body", func() {
			signature := paystackSign(paystackSecret, body)
			Expect(authenticator.VerifyPaystack(body, signature)).To(BeTrue())
		})

		It("rejects a signature computed with the wrong key", func() {
			signature := paystackSign("sk_test_other", body)
			Expect(authenticator.VerifyPaystack(body, signature)).To(BeFalse())
		})

		It("rejects a valid signature over a different body", func() {
			signature := paystackSign(paystackSecret, []byte(`{"event":"charge.success"}`))
			Expect(authenticator.VerifyPaystack(body, signature)).To(BeFalse())
		})

		It("rejects an empty signature header", func() {
			Expect(authenticator.VerifyPaystack(body, "")).To(BeFalse())
		})

		It("rejects everything when no secret is configured", func() {
			unconfigured := donation.NewWebhookAuthenticator("", secretHash)
			signature := paystackSign(paystackSecret, body)
			Expect(unconfigured.VerifyPaystack(body, signature)).To(BeFalse())
		})
	})

	Describe("VerifyFlutterwave", func() {
		It("accepts the configured secret hash", func() {
			Expect(authenticator.VerifyFlutterwave(secretHash)).To(BeTrue())
		})

		It("rejects any other value", func() {
			Expect(authenticator.VerifyFlutterwave("some-other-hash")).To(BeFalse())
		})

		It("rejects an empty header", func() {
			Expect(authenticator.VerifyFlutterwave("")).To(BeFalse())
		})

		It("rejects everything when no hash is configured", func() {
			unconfigured := donation.NewWebhookAuthenticator(paystackSecret, "")
			Expect(unconfigured.VerifyFlutterwave("")).To(BeFalse())
		})
	})
})
