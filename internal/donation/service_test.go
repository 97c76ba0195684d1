package donation_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
	"github.com/apehbe/charity-backend/internal/core/events"
	"github.com/apehbe/charity-backend/internal/donation"
	"github.com/apehbe/charity-backend/internal/gateway"
)

// Mock gateway capturing the reference the service hands it.
type mockGateway struct {
	name transaction.GatewayName

	initErr       error
	initCalls     int
	lastReference string

	verifyResult *gateway.VerifyResult
	verifyErr    error
	verifyCalls  int
}

func (m *mockGateway) Name() transaction.GatewayName { return m.name }

func (m *mockGateway) Initialize(ctx context.Context, reference string, req gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	m.initCalls++
	m.lastReference = reference
	if m.initErr != nil {
		return nil, m.initErr
	}
	return &gateway.InitializeResult{
		Reference:  reference,
		PaymentURL: "https://checkout.example.com/" + reference,
		Metadata:   map[string]any{"access_code": "ac_123"},
	}, nil
}

func (m *mockGateway) Verify(ctx context.Context, q gateway.VerifyQuery) (*gateway.VerifyResult, error) {
	m.verifyCalls++
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	result := *m.verifyResult
	if result.Reference == "" {
		result.Reference = q.Reference
	}
	return &result, nil
}

var _ = Describe("Service", func() {
	var (
		store   *mockTransactionStore
		gw      *mockGateway
		service *donation.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockTransactionStore()
		gw = &mockGateway{name: transaction.GatewayPaystack}
		lg := testLogger()
		reconciler := donation.NewReconciler(store, events.NewEventBus(lg), lg)
		service = donation.NewService(store, reconciler, lg, gw)
	})

	validRequest := func() *donation.InitializeRequest {
		return &donation.InitializeRequest{
			Amount:  2500,
			Email:   "donor@example.com",
			Project: "clean-water",
			DonorInfo: donation.DonorInfo{
				Name:    "Ada Obi",
				Country: "NG",
			},
		}
	}

	Describe("Initialize", func() {
		Context("with a valid request", func() {
			It("creates a pending transaction and returns the payment link", func() {
				resp, err := service.Initialize(ctx, "paystack", validRequest())

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Success).To(BeTrue())
				Expect(resp.Reference).To(MatchRegexp(`^APEH-\d+-[0-9a-z]{9}$`))
				Expect(resp.PaymentURL).To(ContainSubstring(resp.Reference))

				txn, err := store.GetByReference(ctx, resp.Reference)
				Expect(err).ToNot(HaveOccurred())
				Expect(txn.Status).To(Equal(transaction.StatusPending))
				Expect(txn.Currency).To(Equal("NGN"))
				Expect(txn.Donor.Email).To(Equal("donor@example.com"))
				Expect(txn.GatewayMetadata).To(HaveKey("access_code"))
			})
		})

		Context("with an invalid amount", func() {
			It("rejects the request before calling the gateway", func() {
				req := validRequest()
				req.Amount = -10

				resp, err := service.Initialize(ctx, "paystack", req)

				Expect(resp).To(BeNil())
				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
				Expect(gw.initCalls).To(BeZero())
			})
		})

		Context("with an unknown gateway name", func() {
			It("returns a validation error", func() {
				resp, err := service.Initialize(ctx, "stripe", validRequest())

				Expect(resp).To(BeNil())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			})
		})

		Context("when the gateway call fails", func() {
			It("creates no record and maps the error", func() {
				gw.initErr = &gateway.Error{
					Gateway: transaction.GatewayPaystack,
					Message: "request timed out",
				}

				resp, err := service.Initialize(ctx, "paystack", validRequest())

				Expect(resp).To(BeNil())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeGateway))
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayUnavailable))
				Expect(store.transactions).To(BeEmpty())
			})
		})

		Context("when the gateway rejects the request", func() {
			It("mirrors the upstream status", func() {
				gw.initErr = &gateway.Error{
					Gateway:    transaction.GatewayPaystack,
					StatusCode: 401,
					Message:    "invalid key",
				}

				_, err := service.Initialize(ctx, "paystack", validRequest())

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayRejected))
				Expect(appErr.StatusCode).To(Equal(401))
			})
		})

		Context("when the reference collides", func() {
			It("retries once with a fresh reference", func() {
				store.createErrs = []error{apperrors.ErrDuplicateReference}

				resp, err := service.Initialize(ctx, "paystack", validRequest())

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Success).To(BeTrue())
				Expect(gw.initCalls).To(Equal(2))
				Expect(store.transactions).To(HaveLen(1))
			})
		})

		Context("when the store keeps rejecting the reference", func() {
			It("gives up after the retry", func() {
				store.createErrs = []error{apperrors.ErrDuplicateReference, apperrors.ErrDuplicateReference}

				resp, err := service.Initialize(ctx, "paystack", validRequest())

				Expect(resp).To(BeNil())
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Verify", func() {
		Context("when the gateway reports success", func() {
			It("completes the stored transaction", func() {
				store.seed("APEH-30-abcdefghi")
				gw.verifyResult = &gateway.VerifyResult{
					Outcome:        gateway.OutcomeSuccess,
					ExternalStatus: "success",
				}

				resp, err := service.Verify(ctx, "paystack", &donation.VerifyRequest{Reference: "APEH-30-abcdefghi"})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Success).To(BeTrue())
				Expect(resp.Transaction).ToNot(BeNil())
				Expect(resp.Transaction.Status).To(Equal(transaction.StatusCompleted))
			})
		})

		Context("when the gateway reports failure", func() {
			It("fails the stored transaction and reports no success", func() {
				store.seed("APEH-31-abcdefghi")
				gw.verifyResult = &gateway.VerifyResult{
					Outcome:        gateway.OutcomeFailure,
					ExternalStatus: "abandoned",
				}

				resp, err := service.Verify(ctx, "paystack", &donation.VerifyRequest{Reference: "APEH-31-abcdefghi"})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Success).To(BeFalse())
				Expect(store.status("APEH-31-abcdefghi")).To(Equal(transaction.StatusFailed))
			})
		})

		Context("when the gateway reports a pending payment", func() {
			It("leaves the transaction untouched", func() {
				store.seed("APEH-32-abcdefghi")
				gw.verifyResult = &gateway.VerifyResult{
					Outcome:        gateway.OutcomeIndeterminate,
					ExternalStatus: "pending",
				}

				resp, err := service.Verify(ctx, "paystack", &donation.VerifyRequest{Reference: "APEH-32-abcdefghi"})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Success).To(BeFalse())
				Expect(store.status("APEH-32-abcdefghi")).To(Equal(transaction.StatusPending))
			})
		})

		Context("when the gateway call fails", func() {
			It("returns a gateway error without touching the record", func() {
				store.seed("APEH-33-abcdefghi")
				gw.verifyErr = &gateway.Error{
					Gateway: transaction.GatewayPaystack,
					Message: "connection refused",
				}

				resp, err := service.Verify(ctx, "paystack", &donation.VerifyRequest{Reference: "APEH-33-abcdefghi"})

				Expect(resp).To(BeNil())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeGateway))
				Expect(store.status("APEH-33-abcdefghi")).To(Equal(transaction.StatusPending))
			})
		})

		Context("when persisting the confirmed result keeps failing", func() {
			It("still reports the gateway's success to the donor", func() {
				store.seed("APEH-34-abcdefghi")
				store.markErr = errors.New("no primary available")
				gw.verifyResult = &gateway.VerifyResult{
					Outcome:        gateway.OutcomeSuccess,
					ExternalStatus: "success",
				}

				resp, err := service.Verify(ctx, "paystack", &donation.VerifyRequest{Reference: "APEH-34-abcdefghi"})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Success).To(BeTrue())
			})
		})

		Context("without any reference", func() {
			It("returns a validation error", func() {
				resp, err := service.Verify(ctx, "paystack", &donation.VerifyRequest{})

				Expect(resp).To(BeNil())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
				Expect(gw.verifyCalls).To(BeZero())
			})
		})

		Context("with the tx_ref alias", func() {
			It("verifies by the aliased reference", func() {
				store.seed("APEH-35-abcdefghi")
				gw.verifyResult = &gateway.VerifyResult{
					Outcome:        gateway.OutcomeSuccess,
					ExternalStatus: "successful",
				}

				resp, err := service.Verify(ctx, "paystack", &donation.VerifyRequest{TxRef: "APEH-35-abcdefghi"})

				Expect(err).ToNot(HaveOccurred())
				Expect(resp.Success).To(BeTrue())
				Expect(store.status("APEH-35-abcdefghi")).To(Equal(transaction.StatusCompleted))
			})
		})
	})

	Describe("ListByEmail", func() {
		Context("with a donor who has given before", func() {
			It("returns their transactions", func() {
				store.seed("APEH-40-abcdefghi")
				store.seed("APEH-41-abcdefghi")

				txns, err := service.ListByEmail(ctx, "donor@example.com", 0)

				Expect(err).ToNot(HaveOccurred())
				Expect(txns).To(HaveLen(2))
			})
		})

		Context("with a missing email", func() {
			It("returns a validation error without querying the store", func() {
				txns, err := service.ListByEmail(ctx, "", 0)

				Expect(txns).To(BeNil())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
				Expect(store.listCalls).To(BeZero())
			})
		})

		Context("with a malformed email", func() {
			It("returns a validation error", func() {
				_, err := service.ListByEmail(ctx, "not-an-email", 0)

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			})
		})

		Context("when the store query fails", func() {
			It("propagates the error", func() {
				store.listErr = errors.New("cursor timeout")

				_, err := service.ListByEmail(ctx, "donor@example.com", 0)

				Expect(err).To(HaveOccurred())
			})
		})
	})
})
