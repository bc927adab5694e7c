package external

import (
	"context"
	"fmt"
	"log/slog"

	"potager/internal/types"
)

// ---------------------------------------------------------------------------
// Stub Implementations
//
// Stub implementations allow the application to boot in local/test mode
// without requiring real external service credentials. They log all
// actions and return predictable, safe default values.
// ---------------------------------------------------------------------------

// StubEmailProvider implements EmailProvider by logging the report instead of
// sending it. Used when config.IsTestMode is true or APP_ENV=local, so the
// report worker can run end-to-end without SES access.
type StubEmailProvider struct {
	logger *slog.Logger
}

// NewStubEmailProvider creates a new StubEmailProvider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	s.logger.InfoContext(ctx, "stub: Send email called",
		"to", input.To,
		"from", input.From.Address,
		"subject", input.Subject,
		"text_len", len(input.TextBody),
	)
	return fmt.Sprintf("msg_stub_%s", input.ReferenceID), nil
}

// Compile-time assertion that StubEmailProvider satisfies EmailProvider.
var _ EmailProvider = (*StubEmailProvider)(nil)
