package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/SAP-F-2025/marketplace-service/internal/config"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

// PayPalVerifier looks captures up through the PayPal REST API using an
// app access token obtained with the client-credentials grant.
type PayPalVerifier struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

type paypalCapture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount struct {
		CurrencyCode string `json:"currency_code"`
		Value        string `json:"value"`
	} `json:"amount"`
}

func NewPayPalVerifier(cfg config.PaymentConfig, logger *slog.Logger) *PayPalVerifier {
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	transport := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, transport)
	client := cc.Client(ctx)
	client.Timeout = cfg.Timeout

	return &PayPalVerifier{baseURL: base, client: client, logger: logger}
}

func (v *PayPalVerifier) Verify(ctx context.Context, transactionID string) (*Verification, error) {
	endpoint := fmt.Sprintf("%s/v2/payments/captures/%s", v.baseURL, url.PathEscape(transactionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build capture request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("PayPal capture lookup failed", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrVerifierFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCaptureNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		v.logger.Error("PayPal capture lookup rejected",
			"transaction_id", transactionID,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, fmt.Errorf("%w: status %d", ErrVerifierFailure, resp.StatusCode)
	}

	var capture paypalCapture
	if err := json.NewDecoder(resp.Body).Decode(&capture); err != nil {
		return nil, fmt.Errorf("%w: invalid capture body: %v", ErrVerifierFailure, err)
	}

	value, err := pricing.ParseMoney(capture.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid capture amount %q", ErrVerifierFailure, capture.Amount.Value)
	}

	return &Verification{
		TransactionID: capture.ID,
		Verified:      capture.Status == StatusCompleted,
		Status:        capture.Status,
		Value:         value,
		Currency:      capture.Amount.CurrencyCode,
	}, nil
}
