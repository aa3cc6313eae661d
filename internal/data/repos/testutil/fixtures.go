package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/banquito-core/formalization-backend/internal/domain"
)

func SeedCreditContract(tb testing.TB, ctx context.Context, tx *gorm.DB, requestID int64, number string, state types.CreditContractState) *types.CreditContract {
	tb.Helper()
	c := &types.CreditContract{
		RequestID:      requestID,
		ContractNumber: number,
		GeneratedAt:    time.Now().UTC(),
		ApprovedAmount: decimal.RequireFromString("10000.00"),
		TermMonths:     12,
		AnnualRate:     decimal.RequireFromString("12.00"),
		State:          state,
		Version:        1,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed credit contract: %v", err)
	}
	return c
}

func SeedNote(tb testing.TB, ctx context.Context, tx *gorm.DB, contractID int64, installment int, due time.Time, state types.NoteState) *types.Note {
	tb.Helper()
	n := &types.Note{
		CreditContractID: contractID,
		InstallmentNo:    installment,
		Amount:           decimal.RequireFromString("888.49"),
		DueDate:          due,
		State:            state,
		Version:          1,
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed note: %v", err)
	}
	return n
}

func SeedSaleContract(tb testing.TB, ctx context.Context, tx *gorm.DB, requestID int64, number string, state types.SaleContractState) *types.SaleContract {
	tb.Helper()
	c := &types.SaleContract{
		RequestID:         requestID,
		ContractNumber:    number,
		GeneratedAt:       time.Now().UTC(),
		FinalVehiclePrice: decimal.RequireFromString("25000.00"),
		State:             state,
		Version:           1,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed sale contract: %v", err)
	}
	return c
}

func PtrCreditState(v types.CreditContractState) *types.CreditContractState { return &v }

func PtrSaleState(v types.SaleContractState) *types.SaleContractState { return &v }

func PtrInt64(v int64) *int64 { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
