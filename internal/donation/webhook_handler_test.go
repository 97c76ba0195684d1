package donation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
	"github.com/apehbe/charity-backend/internal/core/events"
	"github.com/apehbe/charity-backend/internal/donation"
	"github.com/apehbe/charity-backend/internal/transport"
)

var _ = Describe("WebhookHandler", func() {
	const (
		paystackSecret = "sk_test_secret"
		secretHash     = "flw-secret-hash-value"
	)

	var (
		store   *mockTransactionStore
		bus     *events.EventBus
		handler *donation.WebhookHandler
	)

	BeforeEach(func() {
		store = newMockTransactionStore()
		lg := testLogger()
		bus = events.NewEventBus(lg)
		reconciler := donation.NewReconciler(store, bus, lg)
		authenticator := donation.NewWebhookAuthenticator(paystackSecret, secretHash)
		handler = donation.NewWebhookHandler(transport.NewBaseHandler(lg), authenticator, reconciler, lg)
	})

	postPaystack := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("x-paystack-signature", signature)
		}
		recorder := httptest.NewRecorder()
		handler.HandlePaystack(recorder, req)
		return recorder
	}

	postFlutterwave := func(body []byte, hash string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/flutterwave", bytes.NewReader(body))
		if hash != "" {
			req.Header.Set("verif-hash", hash)
		}
		recorder := httptest.NewRecorder()
		handler.HandleFlutterwave(recorder, req)
		return recorder
	}

	Describe("HandlePaystack", func() {
		Context("with a valid charge.success notification", func() {
			It("completes the transaction and acknowledges", func() {
				store.seed("APEH-10-abcdefghi")
				body := []byte(`{"event":"charge.success","data":{"reference":"APEH-10-abcdefghi","status":"success"}}`)

				recorder := postPaystack(body, paystackSign(paystackSecret, body))

				Expect(recorder.Code).To(Equal(http.StatusOK))
				var ack map[string]bool
				Expect(json.Unmarshal(recorder.Body.Bytes(), &ack)).To(Succeed())
				Expect(ack["received"]).To(BeTrue())
				Expect(store.status("APEH-10-abcdefghi")).To(Equal(transaction.StatusCompleted))
			})
		})

		Context("with a valid charge.failed notification", func() {
			It("fails the transaction and acknowledges", func() {
				store.seed("APEH-11-abcdefghi")
				body := []byte(`{"event":"charge.failed","data":{"reference":"APEH-11-abcdefghi","status":"abandoned"}}`)

				recorder := postPaystack(body, paystackSign(paystackSecret, body))

				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(store.status("APEH-11-abcdefghi")).To(Equal(transaction.StatusFailed))
			})
		})

		Context("with an invalid signature", func() {
			It("rejects the request before touching any state", func() {
				store.seed("APEH-12-abcdefghi")
				body := []byte(`{"event":"charge.success","data":{"reference":"APEH-12-abcdefghi","status":"success"}}`)

				recorder := postPaystack(body, "deadbeef")

				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
				Expect(recorder.Body.String()).To(ContainSubstring("INVALID_SIGNATURE"))
				Expect(store.getCalls).To(BeZero())
				Expect(store.status("APEH-12-abcdefghi")).To(Equal(transaction.StatusPending))
			})
		})

		Context("with a missing signature header", func() {
			It("rejects the request", func() {
				body := []byte(`{"event":"charge.success","data":{"reference":"APEH-13-abcdefghi"}}`)
				recorder := postPaystack(body, "")
				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			})
		})

		Context("with an unhandled event type", func() {
			It("acknowledges without touching state", func() {
				store.seed("APEH-14-abcdefghi")
				body := []byte(`{"event":"transfer.success","data":{"reference":"APEH-14-abcdefghi"}}`)

				recorder := postPaystack(body, paystackSign(paystackSecret, body))

				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(store.status("APEH-14-abcdefghi")).To(Equal(transaction.StatusPending))
			})
		})

		Context("with an unknown reference", func() {
			It("still acknowledges", func() {
				body := []byte(`{"event":"charge.success","data":{"reference":"APEH-99-unknownref","status":"success"}}`)
				recorder := postPaystack(body, paystackSign(paystackSecret, body))
				Expect(recorder.Code).To(Equal(http.StatusOK))
			})
		})

		Context("when a completion subscriber runs after the ack is written", func() {
			It("hands the subscriber a context that outlives the request", func() {
				// net/http cancels the request context as soon as the 200
				// ack is written. The receipt-email subscriber fires after
				// that and must not see the cancellation.
				store.seed("APEH-15-abcdefghi")
				ackWritten := make(chan struct{})
				subscriberCtxErr := make(chan error, 1)
				bus.Subscribe(events.EventTypeDonationCompleted, func(ctx context.Context, ev events.Event) error {
					<-ackWritten
					subscriberCtxErr <- ctx.Err()
					return nil
				})

				body := []byte(`{"event":"charge.success","data":{"reference":"APEH-15-abcdefghi","status":"success"}}`)
				reqCtx, cancel := context.WithCancel(context.Background())
				req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", bytes.NewReader(body))
				req = req.WithContext(reqCtx)
				req.Header.Set("x-paystack-signature", paystackSign(paystackSecret, body))
				recorder := httptest.NewRecorder()
				handler.HandlePaystack(recorder, req)
				cancel()
				close(ackWritten)

				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(store.status("APEH-15-abcdefghi")).To(Equal(transaction.StatusCompleted))
				Eventually(subscriberCtxErr).Should(Receive(BeNil()))
			})
		})
	})

	Describe("HandleFlutterwave", func() {
		Context("with a successful charge.completed notification", func() {
			It("completes the transaction and acknowledges", func() {
				store.seed("APEH-20-abcdefghi")
				body := []byte(`{"event":"charge.completed","data":{"tx_ref":"APEH-20-abcdefghi","status":"successful"}}`)

				recorder := postFlutterwave(body, secretHash)

				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(store.status("APEH-20-abcdefghi")).To(Equal(transaction.StatusCompleted))
			})
		})

		Context("with a failed charge.completed notification", func() {
			It("fails the transaction", func() {
				store.seed("APEH-21-abcdefghi")
				body := []byte(`{"event":"charge.completed","data":{"tx_ref":"APEH-21-abcdefghi","status":"failed"}}`)

				recorder := postFlutterwave(body, secretHash)

				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(store.status("APEH-21-abcdefghi")).To(Equal(transaction.StatusFailed))
			})
		})

		Context("with a pending charge.completed notification", func() {
			It("leaves the transaction pending", func() {
				store.seed("APEH-22-abcdefghi")
				body := []byte(`{"event":"charge.completed","data":{"tx_ref":"APEH-22-abcdefghi","status":"pending"}}`)

				recorder := postFlutterwave(body, secretHash)

				Expect(recorder.Code).To(Equal(http.StatusOK))
				Expect(store.status("APEH-22-abcdefghi")).To(Equal(transaction.StatusPending))
			})
		})

		Context("with a wrong verif-hash", func() {
			It("rejects the request before touching any state", func() {
				store.seed("APEH-23-abcdefghi")
				body := []byte(`{"event":"charge.completed","data":{"tx_ref":"APEH-23-abcdefghi","status":"successful"}}`)

				recorder := postFlutterwave(body, "wrong-hash")

				Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
				Expect(recorder.Body.String()).To(ContainSubstring("INVALID_SIGNATURE"))
				Expect(store.getCalls).To(BeZero())
				Expect(store.status("APEH-23-abcdefghi")).To(Equal(transaction.StatusPending))
			})
		})
	})
})
