package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/marketplace-service/internal/config"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

const StatusCompleted = "COMPLETED"

var (
	ErrCaptureNotFound = errors.New("capture not found")
	ErrVerifierFailure = errors.New("payment provider unavailable")
)

// Verification is the provider's authoritative view of a transaction.
type Verification struct {
	TransactionID string
	Verified      bool
	Status        string
	Value         pricing.Money
	Currency      string
	PayerEmail    string
}

// Verifier checks an external transaction id against the payment provider.
// A transaction that exists but is not completed returns Verified=false and
// no error.
type Verifier interface {
	Verify(ctx context.Context, transactionID string) (*Verification, error)
}

// NewVerifier builds the verifier named by the payment config.
func NewVerifier(cfg config.PaymentConfig, logger *slog.Logger) (Verifier, error) {
	switch cfg.Provider {
	case config.PaymentProviderPayPal:
		return NewPayPalVerifier(cfg, logger), nil
	case config.PaymentProviderSandbox:
		logger.Warn("Using sandbox payment verifier")
		sandbox := NewSandboxVerifier()
		if cfg.Currency != "" {
			sandbox.currency = cfg.Currency
		}
		return sandbox, nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
