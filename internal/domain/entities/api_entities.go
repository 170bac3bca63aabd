package entities

// ErrorResponse is the standard error envelope returned by the API
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SendTransferRequest is the POST /wallet/transfers payload
type SendTransferRequest struct {
	FromAddress string `json:"from_address" validate:"required"`
	Recipient   string `json:"recipient" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Token       string `json:"token" validate:"required"`
}

// TransferResponse decorates a ledger entry with its explorer link
type TransferResponse struct {
	*Transfer
	ExplorerURL string `json:"explorer_url,omitempty"`
}

// BalancesResponse is the GET /wallet/balances payload
type BalancesResponse struct {
	Address string         `json:"address"`
	Tokens  []TokenBalance `json:"tokens"`
}
