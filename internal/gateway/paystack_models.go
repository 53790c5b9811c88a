package gateway

// Envelope is the provider's standard response wrapper.
type paystackResponse[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type paystackBank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type paystackAccountInfo struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type paystackRecipient struct {
	RecipientCode string `json:"recipient_code"`
	Active        bool   `json:"active"`
}

type createRecipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

type transferRequest struct {
	Source    string `json:"source"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

type paystackTransfer struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	TransferCode string `json:"transfer_code"`
}
