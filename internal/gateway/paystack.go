package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"ledgerpay/internal/config"
	apperr "ledgerpay/internal/errors"
	"ledgerpay/internal/logging"
	"ledgerpay/internal/models"
)

// PaystackProvider talks to a Paystack-compatible transfer API. Amounts go
// over the wire in minor units (kobo).
type PaystackProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logging.Logger
}

func NewPaystackProvider(logger *logging.Logger) *PaystackProvider {
	return &PaystackProvider{
		baseURL: config.GetEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		apiKey:  config.GetEnv("PAYSTACK_KEY", ""),
		client: &http.Client{
			Timeout: config.GetDurationEnv("PAYSTACK_TIMEOUT", 30*time.Second),
		},
		logger: logger,
	}
}

func (p *PaystackProvider) ListBanks(ctx context.Context) ([]Bank, error) {
	var out paystackResponse[[]paystackBank]
	if err := p.do(ctx, http.MethodGet, "/bank", nil, &out); err != nil {
		return nil, err
	}
	banks := make([]Bank, 0, len(out.Data))
	for _, b := range out.Data {
		banks = append(banks, Bank{Name: b.Name, Code: b.Code})
	}
	return banks, nil
}

func (p *PaystackProvider) ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	params := url.Values{}
	params.Add("account_number", accountNumber)
	params.Add("bank_code", bankCode)

	var out paystackResponse[paystackAccountInfo]
	if err := p.do(ctx, http.MethodGet, "/bank/resolve?"+params.Encode(), nil, &out); err != nil {
		return "", err
	}
	if out.Data.AccountName == "" {
		return "", apperr.Gateway("account could not be resolved", nil, false)
	}
	return out.Data.AccountName, nil
}

func (p *PaystackProvider) InitiateTransfer(ctx context.Context, account models.BankAccount, amount decimal.Decimal, reference string) (*TransferResult, error) {
	recipient, err := p.createRecipient(ctx, account)
	if err != nil {
		return nil, err
	}

	req := transferRequest{
		Source:    "balance",
		Recipient: recipient.RecipientCode,
		Amount:    amount.Shift(2).IntPart(),
		Reference: reference,
		Reason:    fmt.Sprintf("Wallet withdrawal %s", reference),
	}

	var out paystackResponse[paystackTransfer]
	if err := p.do(ctx, http.MethodPost, "/transfer", req, &out); err != nil {
		return nil, err
	}

	result := &TransferResult{Reference: out.Data.Reference, Status: TransferPending}
	switch out.Data.Status {
	case "success":
		result.Status = TransferSuccess
	case "failed", "reversed":
		result.Status = TransferFailed
	}
	return result, nil
}

func (p *PaystackProvider) createRecipient(ctx context.Context, account models.BankAccount) (*paystackRecipient, error) {
	req := createRecipientRequest{
		Type:          "nuban",
		Name:          account.AccountName,
		AccountNumber: account.AccountNumber,
		BankCode:      account.BankCode,
		Currency:      "NGN",
	}

	var out paystackResponse[paystackRecipient]
	if err := p.do(ctx, http.MethodPost, "/transferrecipient", req, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (p *PaystackProvider) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// Network failures and timeouts are worth retrying.
		return apperr.Gateway("payment gateway unreachable", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		p.logger.Field("status", resp.StatusCode).Warn("transient gateway response")
		return apperr.Gateway(fmt.Sprintf("gateway returned status %d", resp.StatusCode), nil, true)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return apperr.Gateway(fmt.Sprintf("gateway rejected request with status %d", resp.StatusCode), nil, false)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Gateway("decode gateway response", err, false)
	}
	return nil
}
