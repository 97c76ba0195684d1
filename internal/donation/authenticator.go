package donation

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// WebhookAuthenticator is the only gate between the internet and the
// reconciler: the webhook endpoints are otherwise unauthenticated.
type WebhookAuthenticator struct {
	paystackSecret        string
	flutterwaveSecretHash string
}

func NewWebhookAuthenticator(paystackSecret, flutterwaveSecretHash string) *WebhookAuthenticator {
	return &WebhookAuthenticator{
		paystackSecret:        paystackSecret,
		flutterwaveSecretHash: flutterwaveSecretHash,
	}
}

// VerifyPaystack checks the x-paystack-signature header: an
// HMAC-SHA512 of the exact raw request body keyed with the secret key.
func (a *WebhookAuthenticator) VerifyPaystack(rawBody []byte, headerSignature string) bool {
	if a.paystackSecret == "" || headerSignature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(a.paystackSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(headerSignature)) == 1
}

// VerifyFlutterwave checks the verif-hash header against the
// pre-shared secret hash. Flutterwave sends the shared value itself,
// no digest is computed.
func (a *WebhookAuthenticator) VerifyFlutterwave(headerSignature string) bool {
	if a.flutterwaveSecretHash == "" || headerSignature == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.flutterwaveSecretHash), []byte(headerSignature)) == 1
}
