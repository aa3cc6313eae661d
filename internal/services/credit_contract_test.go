package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/banquito-core/formalization-backend/internal/clients/origination"
	"github.com/banquito-core/formalization-backend/internal/data/repos"
	"github.com/banquito-core/formalization-backend/internal/data/repos/testutil"
	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
)

type stubOrigination struct {
	summary *origination.RequestSummary
	err     error
}

func (s *stubOrigination) GetRequestSummary(ctx context.Context, requestID int64) (*origination.RequestSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.summary
	out.RequestID = requestID
	return &out, nil
}

func approvedSummary() *origination.RequestSummary {
	return &origination.RequestSummary{
		CustomerName:   "Maria Lopez",
		ApprovedAmount: decimal.RequireFromString("10000.00"),
		TermMonths:     12,
		AnnualRate:     decimal.RequireFromString("12.00"),
		VehiclePrice:   decimal.RequireFromString("25000.00"),
	}
}

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierr.Error, got %v", err)
	}
	return apiErr.Code
}

func newCreditService(t *testing.T) (CreditContractService, NoteService, repos.NoteRepo) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	contractRepo := repos.NewCreditContractRepo(tx, log)
	noteRepo := repos.NewNoteRepo(tx, log)
	eventRepo := repos.NewContractEventRepo(tx, log)

	policy := DefaultSchedulePolicy()
	stub := &stubOrigination{summary: approvedSummary()}
	cs := NewCreditContractService(tx, log, policy, stub, contractRepo, noteRepo, eventRepo)
	ns := NewNoteService(tx, log, policy, noteRepo, contractRepo, eventRepo)
	return cs, ns, noteRepo
}

func TestInstrumentCreatesContractAndSchedule(t *testing.T) {
	cs, _, noteRepo := newCreditService(t)
	ctx := context.Background()

	contract, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7001, ContractNumber: "CRD-7001"})
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if contract.State != types.CreditPendingSignature || contract.Version != 1 {
		t.Fatalf("contract after instrument: %+v", contract)
	}
	if contract.ApprovedAmount.String() != "10000" && contract.ApprovedAmount.String() != "10000.00" {
		t.Errorf("approved amount not taken from origination: %s", contract.ApprovedAmount)
	}
	if contract.TermMonths != 12 {
		t.Errorf("term not taken from origination: %d", contract.TermMonths)
	}

	notes, err := noteRepo.ListByContract(ctx, nil, contract.ID)
	if err != nil {
		t.Fatalf("ListByContract: %v", err)
	}
	if len(notes) != 12 {
		t.Fatalf("expected 12 notes, got %d", len(notes))
	}
	want := decimal.RequireFromString("888.49")
	for i, n := range notes {
		if n.InstallmentNo != i+1 {
			t.Errorf("note %d has installment %d", i, n.InstallmentNo)
		}
		if !n.Amount.Equal(want) {
			t.Errorf("note %d amount %s, want %s", n.InstallmentNo, n.Amount, want)
		}
		if n.State != types.NotePending {
			t.Errorf("note %d state %s", n.InstallmentNo, n.State)
		}
	}

	history, err := cs.History(ctx, contract.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Action != "instrumented" {
		t.Fatalf("history after instrument: %+v", history)
	}
}

func TestInstrumentUniqueness(t *testing.T) {
	cs, _, _ := newCreditService(t)
	ctx := context.Background()

	if _, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7101, ContractNumber: "CRD-7101"}); err != nil {
		t.Fatalf("Instrument: %v", err)
	}

	_, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7101, ContractNumber: "CRD-7102"})
	if code := apiCode(t, err); code != "already_exists" {
		t.Fatalf("duplicate request id: code %s", code)
	}

	_, err = cs.Instrument(ctx, InstrumentInput{RequestID: 7102, ContractNumber: "CRD-7101"})
	if code := apiCode(t, err); code != "already_exists" {
		t.Fatalf("duplicate contract number: code %s", code)
	}
}

func TestInstrumentUnknownRequest(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	stub := &stubOrigination{err: origination.ErrRequestNotFound}
	cs := NewCreditContractService(tx, log, DefaultSchedulePolicy(), stub,
		repos.NewCreditContractRepo(tx, log), repos.NewNoteRepo(tx, log), repos.NewContractEventRepo(tx, log))

	_, err := cs.Instrument(context.Background(), InstrumentInput{RequestID: 404, ContractNumber: "CRD-404"})
	if code := apiCode(t, err); code != "not_found" {
		t.Fatalf("unknown request: code %s", code)
	}
}

func TestActivationPaths(t *testing.T) {
	cs, _, _ := newCreditService(t)
	ctx := context.Background()

	signed, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7201, ContractNumber: "CRD-7201"})
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}

	got, err := cs.RegisterSignature(ctx, signed.ID, "s3://contracts/CRD-7201.pdf")
	if err != nil {
		t.Fatalf("RegisterSignature: %v", err)
	}
	if got.State != types.CreditActive || got.SignedAt == nil || got.Version != 2 {
		t.Fatalf("contract after signature: %+v", got)
	}

	// The second activation path loses once the first has run.
	_, err = cs.ApproveDisbursement(ctx, signed.ID)
	if code := apiCode(t, err); code != "invalid_state" {
		t.Fatalf("disbursement after activation: code %s", code)
	}

	// Disbursement approval requires a signed file ref on the record.
	unsigned, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7202, ContractNumber: "CRD-7202"})
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	_, err = cs.ApproveDisbursement(ctx, unsigned.ID)
	if code := apiCode(t, err); code != "not_signed" {
		t.Fatalf("disbursement without file ref: code %s", code)
	}

	if _, err := cs.Update(ctx, unsigned.ID, UpdateCreditContractInput{
		ApprovedAmount: unsigned.ApprovedAmount,
		TermMonths:     unsigned.TermMonths,
		AnnualRate:     unsigned.AnnualRate,
		SignedFileRef:  "s3://contracts/CRD-7202.pdf",
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	activated, err := cs.ApproveDisbursement(ctx, unsigned.ID)
	if err != nil {
		t.Fatalf("ApproveDisbursement: %v", err)
	}
	if activated.State != types.CreditActive {
		t.Fatalf("contract after disbursement: %+v", activated)
	}
}

func TestMarkPaidGuardedByUnpaidNotes(t *testing.T) {
	cs, ns, noteRepo := newCreditService(t)
	ctx := context.Background()

	contract, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7301, ContractNumber: "CRD-7301"})
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if _, err := cs.RegisterSignature(ctx, contract.ID, "ref"); err != nil {
		t.Fatalf("RegisterSignature: %v", err)
	}

	_, err = cs.MarkPaid(ctx, contract.ID)
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Code != "pending_notes" {
		t.Fatalf("MarkPaid with unpaid notes: %v", err)
	}
	if got := apiErr.Meta["pending"]; got != int64(12) {
		t.Fatalf("pending count in error = %v, want 12", got)
	}

	notes, err := noteRepo.ListByContract(ctx, nil, contract.ID)
	if err != nil {
		t.Fatalf("ListByContract: %v", err)
	}
	for _, n := range notes {
		if _, err := ns.RegisterPayment(ctx, n.ID); err != nil {
			t.Fatalf("RegisterPayment note %d: %v", n.InstallmentNo, err)
		}
	}

	paid, err := cs.MarkPaid(ctx, contract.ID)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if paid.State != types.CreditPaid {
		t.Fatalf("contract after payoff: %+v", paid)
	}

	_, err = cs.Cancel(ctx, contract.ID, "late cancel")
	if code := apiCode(t, err); code != "invalid_state" {
		t.Fatalf("cancel after payoff: code %s", code)
	}
}

func TestCancelMatrix(t *testing.T) {
	cs, _, _ := newCreditService(t)
	ctx := context.Background()

	pending, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7401, ContractNumber: "CRD-7401"})
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	cancelled, err := cs.Cancel(ctx, pending.ID, "customer walked away")
	if err != nil {
		t.Fatalf("Cancel from PENDING_SIGNATURE: %v", err)
	}
	if cancelled.State != types.CreditCancelled {
		t.Fatalf("contract after cancel: %+v", cancelled)
	}

	_, err = cs.Cancel(ctx, pending.ID, "again")
	if code := apiCode(t, err); code != "invalid_state" {
		t.Fatalf("double cancel: code %s", code)
	}

	active, err := cs.Instrument(ctx, InstrumentInput{RequestID: 7402, ContractNumber: "CRD-7402"})
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if _, err := cs.RegisterSignature(ctx, active.ID, "ref"); err != nil {
		t.Fatalf("RegisterSignature: %v", err)
	}
	if _, err := cs.Cancel(ctx, active.ID, "defaulted before first payment"); err != nil {
		t.Fatalf("Cancel from ACTIVE: %v", err)
	}

	history, err := cs.History(ctx, active.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	last := history[len(history)-1]
	if last.Action != "cancelled" {
		t.Fatalf("last event %q, want cancelled", last.Action)
	}
}

func TestGenerateScheduleParamDriven(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	contractRepo := repos.NewCreditContractRepo(tx, log)
	noteRepo := repos.NewNoteRepo(tx, log)
	eventRepo := repos.NewContractEventRepo(tx, log)
	cs := NewCreditContractService(tx, log, DefaultSchedulePolicy(), &stubOrigination{summary: approvedSummary()},
		contractRepo, noteRepo, eventRepo)
	ctx := context.Background()

	// Seeded directly so no schedule exists yet.
	contract := testutil.SeedCreditContract(t, ctx, tx, 7501, "CRD-7501", types.CreditPendingSignature)

	// 2025-07-05 is a Saturday; without the adjust flag it must stay put.
	start := time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC)
	notes, err := cs.GenerateSchedule(ctx, contract.ID, GenerateScheduleInput{StartDate: start})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(notes) != 12 {
		t.Fatalf("expected 12 notes, got %d", len(notes))
	}
	if !notes[0].DueDate.Equal(start) {
		t.Fatalf("first due %s, want the supplied start date", notes[0].DueDate)
	}

	_, err = cs.GenerateSchedule(ctx, contract.ID, GenerateScheduleInput{StartDate: start})
	if code := apiCode(t, err); code != "generation_conflict" {
		t.Fatalf("second generation: code %s", code)
	}

	again, err := noteRepo.ListByContract(ctx, nil, contract.ID)
	if err != nil {
		t.Fatalf("ListByContract: %v", err)
	}
	if len(again) != 12 {
		t.Fatalf("conflict must leave existing notes untouched, got %d", len(again))
	}
}

func TestGenerateScheduleFromContract(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	contractRepo := repos.NewCreditContractRepo(tx, log)
	noteRepo := repos.NewNoteRepo(tx, log)
	eventRepo := repos.NewContractEventRepo(tx, log)
	cs := NewCreditContractService(tx, log, DefaultSchedulePolicy(), &stubOrigination{summary: approvedSummary()},
		contractRepo, noteRepo, eventRepo)
	ctx := context.Background()

	contract := testutil.SeedCreditContract(t, ctx, tx, 7601, "CRD-7601", types.CreditPendingSignature)

	notes, err := cs.GenerateScheduleFromContract(ctx, contract.ID)
	if err != nil {
		t.Fatalf("GenerateScheduleFromContract: %v", err)
	}
	if len(notes) != 12 {
		t.Fatalf("expected 12 notes, got %d", len(notes))
	}
	for i, n := range notes {
		if n.InstallmentNo != i+1 {
			t.Errorf("note %d has installment %d", i, n.InstallmentNo)
		}
		if wd := n.DueDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("installment %d due on a %s", n.InstallmentNo, wd)
		}
	}

	// First due lands roughly one month after the contract was generated.
	if gap := notes[0].DueDate.Sub(contract.GeneratedAt); gap < 25*24*time.Hour || gap > 35*24*time.Hour {
		t.Errorf("first due %s, contract generated %s", notes[0].DueDate, contract.GeneratedAt)
	}

	_, err = cs.GenerateScheduleFromContract(ctx, contract.ID)
	if code := apiCode(t, err); code != "generation_conflict" {
		t.Fatalf("second generation: code %s", code)
	}
}
