package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreditContractState string

const (
	CreditPendingSignature CreditContractState = "PENDING_SIGNATURE"
	CreditActive           CreditContractState = "ACTIVE"
	CreditPaid             CreditContractState = "PAID"
	CreditCancelled        CreditContractState = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s CreditContractState) Terminal() bool {
	return s == CreditPaid || s == CreditCancelled
}

// CanCancel reports whether the contract may still be cancelled.
func (s CreditContractState) CanCancel() bool {
	return !s.Terminal()
}

// CreditContract instruments an approved loan: amount, term and rate come
// from the origination service at instrumentation time. A contract owns its
// amortization schedule (one Note per installment).
type CreditContract struct {
	ID             int64               `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RequestID      int64               `gorm:"uniqueIndex;not null;column:request_id" json:"request_id"`
	ContractNumber string              `gorm:"uniqueIndex;not null;size:50;column:contract_number" json:"contract_number"`
	GeneratedAt    time.Time           `gorm:"not null;column:generated_at" json:"generated_at"`
	SignedAt       *time.Time          `gorm:"column:signed_at" json:"signed_at,omitempty"`
	ApprovedAmount decimal.Decimal     `gorm:"type:numeric(12,2);not null;column:approved_amount" json:"approved_amount"`
	TermMonths     int                 `gorm:"not null;column:term_months" json:"term_months"`
	AnnualRate     decimal.Decimal     `gorm:"type:numeric(5,2);not null;column:annual_rate" json:"annual_rate"`
	SignedFileRef  string              `gorm:"size:255;column:signed_file_ref" json:"signed_file_ref,omitempty"`
	State          CreditContractState `gorm:"size:32;not null;column:state" json:"state"`
	Version        int64               `gorm:"not null;column:version" json:"version"`

	Notes []*Note `gorm:"foreignKey:CreditContractID" json:"notes,omitempty"`
}

func (CreditContract) TableName() string { return "credit_contract" }

// CreditContractFilter is the combinatorial listing filter. Nil/empty
// members are inactive; active members AND together.
type CreditContractFilter struct {
	State          *CreditContractState
	ContractNumber string
	RequestID      *int64
}
