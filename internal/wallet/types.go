package wallet

// Call is one wire-format entry of an atomic call batch, hex-encoded the
// way the wallet RPC expects it.
type Call struct {
	To    string `json:"to"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
}

// SendCallsParams is the wallet_sendCalls request object.
type SendCallsParams struct {
	Version        string `json:"version"`
	ChainID        string `json:"chainId"`
	From           string `json:"from"`
	AtomicRequired bool   `json:"atomicRequired"`
	Calls          []Call `json:"calls"`
}

// sendCallsResult is the wallet_sendCalls response object.
type sendCallsResult struct {
	ID string `json:"id"`
}

// ChainCapabilities is the per-chain capability entry returned by
// wallet_getCapabilities. Only atomic-batch support matters here.
type ChainCapabilities struct {
	Atomic bool `json:"atomic"`
}

// Batch status values reported by wallet_getCallsStatus.
const (
	CallsStatusPending = "pending"
	CallsStatusSuccess = "success"
	CallsStatusFailed  = "failed"
)

// CallReceipt is one receipt of a resolved batch.
type CallReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
}

// CallsStatus is the wallet_getCallsStatus response. Receipts are
// authoritative: a receipt with a transaction hash counts as resolution
// regardless of the reported status string.
type CallsStatus struct {
	Status   string        `json:"status"`
	Receipts []CallReceipt `json:"receipts"`
}
