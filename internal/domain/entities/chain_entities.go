package entities

// TokenBalance is one row of the aggregated balance view. It is recomputed
// on every refresh and never persisted.
type TokenBalance struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Balance  string `json:"balance"`
	USDValue string `json:"usd_value"`
}

// RawTokenBalance is one entry of the node provider's enhanced
// all-token-balances response. TokenBalance is a 0x-prefixed hex quantity.
type RawTokenBalance struct {
	ContractAddress string `json:"contractAddress"`
	TokenBalance    string `json:"tokenBalance"`
}

// TokenMetadata is the per-contract metadata reported by the node provider.
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Call is one entry of a batched account-abstraction submission.
// Value is a 0x-prefixed hex wei quantity; Data is 0x-prefixed calldata.
type Call struct {
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

// CallReceipt is one receipt of a resolved submission.
type CallReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber,omitempty"`
	GasUsed         string `json:"gasUsed,omitempty"`
}

// CallsStatus is the asynchronous resolution state of a submission.
type CallsStatus struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"` // "pending", "success" or "failure"
	Receipts []CallReceipt `json:"receipts,omitempty"`
	Error    string        `json:"error,omitempty"`
}

const (
	CallsStatusPending = "pending"
	CallsStatusSuccess = "success"
	CallsStatusFailure = "failure"
)
