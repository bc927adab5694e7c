package external

import (
	"context"

	"potager/internal/types"
)

// ---------------------------------------------------------------------------
// Email Delivery (AWS SES)
// ---------------------------------------------------------------------------

// EmailProvider abstracts the email delivery service that carries the daily
// garden report. Implementations transmit pre-rendered content (Subject,
// TextBody, HTMLBody); rendering happens upstream in the report package.
type EmailProvider interface {
	// Send transmits an email with pre-rendered content.
	// Returns the provider's message ID for tracking and correlation.
	Send(ctx context.Context, input types.SendInput) (providerMsgID string, err error)
}
