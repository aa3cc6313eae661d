package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleContractState string

const (
	SalePendingSignature SaleContractState = "PENDING_SIGNATURE"
	SaleSigned           SaleContractState = "SIGNED"
)

// SaleContract is the purchase agreement for the financed vehicle.
type SaleContract struct {
	ID                int64             `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RequestID         int64             `gorm:"uniqueIndex;not null;column:request_id" json:"request_id"`
	ContractNumber    string            `gorm:"uniqueIndex;not null;size:50;column:contract_number" json:"contract_number"`
	GeneratedAt       time.Time         `gorm:"not null;column:generated_at" json:"generated_at"`
	SignedAt          *time.Time        `gorm:"column:signed_at" json:"signed_at,omitempty"`
	FinalVehiclePrice decimal.Decimal   `gorm:"type:numeric(12,2);not null;column:final_vehicle_price" json:"final_vehicle_price"`
	SignedFileRef     string            `gorm:"size:255;column:signed_file_ref" json:"signed_file_ref,omitempty"`
	State             SaleContractState `gorm:"size:32;not null;column:state" json:"state"`
	Version           int64             `gorm:"not null;column:version" json:"version"`
}

func (SaleContract) TableName() string { return "sale_contract" }

type SaleContractFilter struct {
	State          *SaleContractState
	ContractNumber string
	RequestID      *int64
}
