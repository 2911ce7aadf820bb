package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"shopify-insights-core/internal/domain"
)

// WebhookVerifier validates Shopify webhook deliveries against the shared
// signing secret. Verification always runs over the exact raw bytes of the
// delivery body; hashing any re-serialized form silently breaks the contract.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the given signing secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify checks the X-Shopify-Hmac-SHA256 header against an HMAC-SHA256
// digest of rawBody. The comparison is constant time. It returns
// domain.ErrMissingSignature when the header is absent and
// domain.ErrSignatureMismatch when the digests differ.
func (v *WebhookVerifier) Verify(rawBody []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return domain.ErrMissingSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return domain.ErrSignatureMismatch
	}
	return nil
}
