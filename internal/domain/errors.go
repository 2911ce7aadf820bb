package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across components.
var (
	// ErrTenantNotFound means no tenant matched the given id or shop domain.
	// Webhook handlers answer 404 so Shopify stops redelivering.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrMissingSignature means the delivery carried no HMAC header.
	ErrMissingSignature = errors.New("missing webhook signature header")

	// ErrSignatureMismatch means the computed digest did not match the header.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")

	// ErrMalformedPayload means a delivery body could not be decoded.
	// Answered with 500 so Shopify's redelivery policy re-attempts it.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrSyncInProgress means a backfill for the same tenant and collection
	// already holds the single-flight lock.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// ConfigError reports a missing or invalid setting. Fatal at startup.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Setting, e.Reason)
}

// AuthError reports a failed OAuth token exchange. Surfaced to the installer;
// never retried automatically.
type AuthError struct {
	Shop string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("oauth token exchange for %s failed: %v", e.Shop, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RestrictedDataError marks a recognized Shopify permission refusal
// (protected customer data). Swallowed per collection; siblings proceed.
type RestrictedDataError struct {
	Collection Collection
	Err        error
}

func (e *RestrictedDataError) Error() string {
	return fmt.Sprintf("access to %s restricted: %v", e.Collection, e.Err)
}

func (e *RestrictedDataError) Unwrap() error { return e.Err }

// TransientUpstreamError wraps any other Shopify failure. It aborts the
// current reconciliation unit and is retried only by the next triggered run.
type TransientUpstreamError struct {
	Op  string
	Err error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("shopify %s failed: %v", e.Op, e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// IsRestrictedData reports whether err looks like Shopify's protected
// customer data refusal. The go-shopify client wraps HTTP errors, so the
// check matches on the error text.
func IsRestrictedData(err error) bool {
	if err == nil {
		return false
	}
	var rde *RestrictedDataError
	if errors.As(err, &rde) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "protected customer data")
}
