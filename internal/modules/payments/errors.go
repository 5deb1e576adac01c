package payments

import "errors"

var (
	// ErrEventIgnored marks a webhook for a non-payment topic; the caller
	// acknowledges it without any further action.
	ErrEventIgnored = errors.New("webhook event ignored")

	// ErrBadSignature rejects a webhook whose signature does not verify.
	// The HTTP layer must answer 4xx so the provider retries the same
	// payload.
	ErrBadSignature = errors.New("webhook signature verification failed")

	// ErrGatewayUnavailable is a transient provider-side failure; the
	// caller surfaces a retryable error so the provider re-delivers.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrNoIntent means no provisional order could be claimed for the
	// reference: consumed by a concurrent delivery, expired, or never
	// created.
	ErrNoIntent = errors.New("no matching provisional order")
)
