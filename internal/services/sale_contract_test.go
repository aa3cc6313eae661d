package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/banquito-core/formalization-backend/internal/data/repos"
	"github.com/banquito-core/formalization-backend/internal/data/repos/testutil"
	types "github.com/banquito-core/formalization-backend/internal/domain"
)

func newSaleService(t *testing.T) SaleContractService {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	return NewSaleContractService(tx, log, &stubOrigination{summary: approvedSummary()},
		repos.NewSaleContractRepo(tx, log), repos.NewContractEventRepo(tx, log))
}

func TestSaleGenerateTakesPriceFromOrigination(t *testing.T) {
	ss := newSaleService(t)
	ctx := context.Background()

	contract, err := ss.Generate(ctx, GenerateSaleContractInput{RequestID: 8401, ContractNumber: "VTA-8401"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if contract.State != types.SalePendingSignature || contract.Version != 1 {
		t.Fatalf("contract after generate: %+v", contract)
	}
	if !contract.FinalVehiclePrice.Equal(decimal.RequireFromString("25000.00")) {
		t.Fatalf("vehicle price not taken from origination: %s", contract.FinalVehiclePrice)
	}

	_, err = ss.Generate(ctx, GenerateSaleContractInput{RequestID: 8401, ContractNumber: "VTA-8402"})
	if code := apiCode(t, err); code != "already_exists" {
		t.Fatalf("duplicate request id: code %s", code)
	}
	_, err = ss.Generate(ctx, GenerateSaleContractInput{RequestID: 8402, ContractNumber: "VTA-8401"})
	if code := apiCode(t, err); code != "already_exists" {
		t.Fatalf("duplicate contract number: code %s", code)
	}
}

func TestSaleSignatureLifecycle(t *testing.T) {
	ss := newSaleService(t)
	ctx := context.Background()

	contract, err := ss.Generate(ctx, GenerateSaleContractInput{RequestID: 8501, ContractNumber: "VTA-8501"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	signed, err := ss.RegisterSignature(ctx, contract.ID, "s3://contracts/VTA-8501.pdf")
	if err != nil {
		t.Fatalf("RegisterSignature: %v", err)
	}
	if signed.State != types.SaleSigned || signed.SignedAt == nil || signed.Version != 2 {
		t.Fatalf("contract after signature: %+v", signed)
	}

	_, err = ss.RegisterSignature(ctx, contract.ID, "again")
	if code := apiCode(t, err); code != "invalid_state" {
		t.Fatalf("second signature: code %s", code)
	}

	// Updates stay open after signing.
	updated, err := ss.Update(ctx, contract.ID, UpdateSaleContractInput{
		FinalVehiclePrice: decimal.RequireFromString("24500.00"),
		SignedFileRef:     signed.SignedFileRef,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.FinalVehiclePrice.Equal(decimal.RequireFromString("24500.00")) || updated.Version != 3 {
		t.Fatalf("contract after update: %+v", updated)
	}

	history, err := ss.History(ctx, contract.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 events, got %d", len(history))
	}
}

func TestSaleGetByBusinessKeys(t *testing.T) {
	ss := newSaleService(t)
	ctx := context.Background()

	contract, err := ss.Generate(ctx, GenerateSaleContractInput{RequestID: 8601, ContractNumber: "VTA-8601"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	byNumber, err := ss.GetByContractNumber(ctx, "VTA-8601")
	if err != nil {
		t.Fatalf("GetByContractNumber: %v", err)
	}
	if byNumber.ID != contract.ID {
		t.Fatalf("GetByContractNumber: unexpected contract %+v", byNumber)
	}

	byRequest, err := ss.GetByRequestID(ctx, 8601)
	if err != nil {
		t.Fatalf("GetByRequestID: %v", err)
	}
	if byRequest.ID != contract.ID {
		t.Fatalf("GetByRequestID: unexpected contract %+v", byRequest)
	}

	_, err = ss.GetByContractNumber(ctx, "VTA-MISSING")
	if code := apiCode(t, err); code != "not_found" {
		t.Fatalf("missing number: code %s", code)
	}
}
