package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
	"github.com/apehbe/charity-backend/internal/gateway"
)

var _ = Describe("Flutterwave", func() {
	var (
		server      *httptest.Server
		fw          *gateway.Flutterwave
		ctx         context.Context
		lastRequest struct {
			path  string
			query string
			auth  string
			body  map[string]any
		}
		responseStatus int
		responseBody   any
	)

	BeforeEach(func() {
		ctx = context.Background()
		responseStatus = http.StatusOK
		lastRequest.body = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastRequest.path = r.URL.Path
			lastRequest.query = r.URL.RawQuery
			lastRequest.auth = r.Header.Get("Authorization")
			if r.Body != nil {
				json.NewDecoder(r.Body).Decode(&lastRequest.body)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(responseStatus)
			json.NewEncoder(w).Encode(responseBody)
		}))

		fw = gateway.NewFlutterwave(gateway.FlutterwaveConfig{
			BaseURL:     server.URL,
			SecretKey:   "FLWSECK_TEST-key",
			FrontendURL: "https://apehbe.org",
		}, testLogger())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Initialize", func() {
		initRequest := gateway.InitializeRequest{
			Amount:   50,
			Currency: "usd",
			Email:    "donor@example.com",
			Project:  "education-fund",
			Donor:    transaction.Donor{Email: "donor@example.com", Name: "Ada Obi", Country: "BE"},
		}

		Context("when the provider accepts", func() {
			BeforeEach(func() {
				responseBody = map[string]any{
					"status":  "success",
					"message": "Hosted Link",
					"data": map[string]any{
						"link": "https://checkout.flutterwave.com/v3/hosted/pay/xyz",
					},
				}
			})

			It("sends the major-unit amount and returns the hosted link", func() {
				result, err := fw.Initialize(ctx, "APEH-1-abcdefghi", initRequest)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.PaymentURL).To(Equal("https://checkout.flutterwave.com/v3/hosted/pay/xyz"))

				Expect(lastRequest.path).To(Equal("/payments"))
				Expect(lastRequest.auth).To(Equal("Bearer FLWSECK_TEST-key"))
				Expect(lastRequest.body["amount"]).To(BeNumerically("==", 50))
				Expect(lastRequest.body["currency"]).To(Equal("USD"))
				Expect(lastRequest.body["tx_ref"]).To(Equal("APEH-1-abcdefghi"))
				Expect(lastRequest.body["redirect_url"]).To(Equal("https://apehbe.org/donate.html?status=flutterwave&tx_ref=APEH-1-abcdefghi"))
			})
		})

		Context("when the envelope status is not success", func() {
			BeforeEach(func() {
				responseBody = map[string]any{"status": "error", "message": "Invalid currency"}
			})

			It("returns a gateway error", func() {
				result, err := fw.Initialize(ctx, "APEH-2-abcdefghi", initRequest)
				Expect(result).To(BeNil())
				gerr, ok := err.(*gateway.Error)
				Expect(ok).To(BeTrue())
				Expect(gerr.Message).To(Equal("Invalid currency"))
			})
		})

		Context("when the provider returns a server error", func() {
			BeforeEach(func() {
				responseStatus = http.StatusBadGateway
				responseBody = map[string]any{"status": "error", "message": "upstream unavailable"}
			})

			It("carries the upstream status", func() {
				_, err := fw.Initialize(ctx, "APEH-3-abcdefghi", initRequest)
				gerr, ok := err.(*gateway.Error)
				Expect(ok).To(BeTrue())
				Expect(gerr.StatusCode).To(Equal(http.StatusBadGateway))
			})
		})
	})

	Describe("Verify", func() {
		Context("by merchant reference", func() {
			BeforeEach(func() {
				responseBody = map[string]any{
					"status": "success",
					"data": map[string]any{
						"status": "successful",
						"tx_ref": "APEH-1-abcdefghi",
						"amount": 50,
					},
				}
			})

			It("uses the verify_by_reference endpoint", func() {
				result, err := fw.Verify(ctx, gateway.VerifyQuery{Reference: "APEH-1-abcdefghi"})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Outcome).To(Equal(gateway.OutcomeSuccess))
				Expect(result.Reference).To(Equal("APEH-1-abcdefghi"))
				Expect(lastRequest.path).To(Equal("/transactions/verify_by_reference"))
				Expect(lastRequest.query).To(ContainSubstring("tx_ref=APEH-1-abcdefghi"))
			})
		})

		Context("by transaction id", func() {
			BeforeEach(func() {
				responseBody = map[string]any{
					"status": "success",
					"data": map[string]any{
						"status": "successful",
						"tx_ref": "APEH-1-abcdefghi",
					},
				}
			})

			It("uses the per-transaction verify endpoint", func() {
				result, err := fw.Verify(ctx, gateway.VerifyQuery{TransactionID: "4837205"})

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Outcome).To(Equal(gateway.OutcomeSuccess))
				Expect(result.Reference).To(Equal("APEH-1-abcdefghi"))
				Expect(lastRequest.path).To(Equal("/transactions/4837205/verify"))
			})
		})

		Context("with a failed charge", func() {
			BeforeEach(func() {
				responseBody = map[string]any{
					"status": "success",
					"data":   map[string]any{"status": "failed", "tx_ref": "APEH-1-abcdefghi"},
				}
			})

			It("reports a failure outcome", func() {
				result, err := fw.Verify(ctx, gateway.VerifyQuery{Reference: "APEH-1-abcdefghi"})
				Expect(err).ToNot(HaveOccurred())
				Expect(result.Outcome).To(Equal(gateway.OutcomeFailure))
			})
		})

		Context("with an error envelope", func() {
			BeforeEach(func() {
				responseBody = map[string]any{
					"status": "error",
					"data":   map[string]any{"status": "successful"},
				}
			})

			It("never reports success", func() {
				result, err := fw.Verify(ctx, gateway.VerifyQuery{Reference: "APEH-1-abcdefghi"})
				Expect(err).ToNot(HaveOccurred())
				Expect(result.Outcome).To(Equal(gateway.OutcomeIndeterminate))
			})
		})

		Context("with neither reference nor id", func() {
			It("refuses the query", func() {
				result, err := fw.Verify(ctx, gateway.VerifyQuery{})
				Expect(result).To(BeNil())
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("MapFlutterwaveStatus", func() {
	It("classifies provider statuses", func() {
		Expect(gateway.MapFlutterwaveStatus("successful")).To(Equal(gateway.OutcomeSuccess))
		Expect(gateway.MapFlutterwaveStatus("pending")).To(Equal(gateway.OutcomeIndeterminate))
		Expect(gateway.MapFlutterwaveStatus("")).To(Equal(gateway.OutcomeIndeterminate))
		Expect(gateway.MapFlutterwaveStatus("failed")).To(Equal(gateway.OutcomeFailure))
		Expect(gateway.MapFlutterwaveStatus("cancelled")).To(Equal(gateway.OutcomeFailure))
	})
})
