package payments

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

// SandboxVerifier keeps captures in memory. It backs local development and
// tests; production configs reject it.
type SandboxVerifier struct {
	mu       sync.RWMutex
	captures map[string]Verification
	currency string
}

func NewSandboxVerifier() *SandboxVerifier {
	return &SandboxVerifier{captures: make(map[string]Verification), currency: "USD"}
}

// Register records a completed capture for value in the store currency and
// returns its id.
func (s *SandboxVerifier) Register(value pricing.Money, payerEmail string) string {
	id := "SBX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:17])
	s.Put(Verification{
		TransactionID: id,
		Verified:      true,
		Status:        StatusCompleted,
		Value:         value.Round(),
		Currency:      s.currency,
		PayerEmail:    payerEmail,
	})
	return id
}

// Put stores an arbitrary capture, including non-completed ones.
func (s *SandboxVerifier) Put(v Verification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures[v.TransactionID] = v
}

func (s *SandboxVerifier) Verify(ctx context.Context, transactionID string) (*Verification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.captures[transactionID]
	if !ok {
		return nil, ErrCaptureNotFound
	}
	return &v, nil
}
