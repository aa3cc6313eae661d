package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type NoteState string

const (
	NotePending NoteState = "PENDING"
	NotePaid    NoteState = "PAID"
	NoteOverdue NoteState = "OVERDUE"
)

// Payable reports whether a payment may be registered against the note.
func (s NoteState) Payable() bool {
	return s == NotePending
}

// Unpaid reports whether the note still blocks contract payoff.
func (s NoteState) Unpaid() bool {
	return s == NotePending || s == NoteOverdue
}

// Note is one installment obligation (pagaré) under a credit contract.
// Installment numbers are contiguous 1..N per contract.
type Note struct {
	ID               int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CreditContractID int64           `gorm:"not null;uniqueIndex:ux_note_contract_installment;column:credit_contract_id" json:"credit_contract_id"`
	InstallmentNo    int             `gorm:"not null;uniqueIndex:ux_note_contract_installment;column:installment_no" json:"installment_no"`
	Amount           decimal.Decimal `gorm:"type:numeric(10,2);not null;column:amount" json:"amount"`
	DueDate          time.Time       `gorm:"not null;column:due_date" json:"due_date"`
	State            NoteState       `gorm:"size:16;not null;column:state" json:"state"`
	Version          int64           `gorm:"not null;column:version" json:"version"`
}

func (Note) TableName() string { return "note" }
