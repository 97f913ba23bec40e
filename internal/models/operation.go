package models

import "time"

// Operation kinds
const (
	OperationKindDeposit    = "deposit"
	OperationKindWithdrawal = "withdrawal"
)

// Operation statuses, in state-machine order. History only: a failed
// multi-leg operation is not resumable from these records, the user
// resumes manually from wherever the chain left their funds.
const (
	OperationStatusPending         = "pending"
	OperationStatusNetworkCheck    = "network_check"
	OperationStatusBalanceCheck    = "balance_check"
	OperationStatusRouteBuild      = "route_build"
	OperationStatusApprovalCheck   = "approval_check"
	OperationStatusCapabilityCheck = "capability_check"
	OperationStatusSubmitted       = "submitted"
	OperationStatusConfirming      = "confirming"
	OperationStatusAttesting       = "attesting"
	OperationStatusHandoff         = "handoff"
	OperationStatusCompleted       = "completed"
	OperationStatusFailed          = "failed"
)

// Operation is one user-initiated deposit or withdrawal across its legs.
type Operation struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Kind         string    `gorm:"type:varchar(16);index" json:"kind"`
	VaultID      string    `gorm:"type:varchar(64);index" json:"vault_id"`
	UserAddress  string    `gorm:"type:varchar(42);index" json:"user_address"`
	Recipient    string    `gorm:"type:varchar(42)" json:"recipient"`
	Amount       string    `gorm:"type:varchar(78)" json:"amount"`
	Status       string    `gorm:"type:varchar(32);index" json:"status"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Legs []OperationLeg `gorm:"foreignKey:OperationID" json:"legs,omitempty"`
}

// OperationLeg records one chain-level batch within an operation: the
// network it ran on, the wallet's batch id, and the resolved transaction.
type OperationLeg struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OperationID string    `gorm:"type:varchar(36);index" json:"operation_id"`
	Network     string    `gorm:"type:varchar(32)" json:"network"`
	ChainID     uint64    `json:"chain_id"`
	BatchID     string    `gorm:"type:varchar(128)" json:"batch_id,omitempty"`
	TxHash      string    `gorm:"type:varchar(66);index" json:"tx_hash,omitempty"`
	BlockNumber uint64    `json:"block_number,omitempty"`
	Phase       string    `gorm:"type:varchar(32)" json:"phase"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Operation) TableName() string    { return "zap_operations" }
func (OperationLeg) TableName() string { return "zap_operation_legs" }
