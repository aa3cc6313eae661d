package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/banquito-core/formalization-backend/internal/data/repos"
	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

const noteEntity = "note"

type CreateNoteInput struct {
	CreditContractID int64
	InstallmentNo    int
	Amount           decimal.Decimal
	DueDate          time.Time
}

type UpdateNoteInput struct {
	Amount  decimal.Decimal
	DueDate time.Time
}

type NoteService interface {
	Create(ctx context.Context, in CreateNoteInput) (*types.Note, error)
	GetByID(ctx context.Context, id int64) (*types.Note, error)
	GetByInstallment(ctx context.Context, contractID int64, installmentNo int) (*types.Note, error)
	ListByContract(ctx context.Context, contractID int64) ([]*types.Note, error)
	ListByContractAndState(ctx context.Context, contractID int64, state types.NoteState) ([]*types.Note, error)
	ListDueSoon(ctx context.Context, asOf time.Time) ([]*types.Note, error)
	CountByState(ctx context.Context, contractID int64, state types.NoteState) (int64, error)
	UnpaidCount(ctx context.Context, contractID int64) (int64, error)
	ExistsForContract(ctx context.Context, contractID int64) (bool, error)
	Update(ctx context.Context, id int64, in UpdateNoteInput) (*types.Note, error)
	RegisterPayment(ctx context.Context, id int64) (*types.Note, error)
	SettleOverdue(ctx context.Context, id int64) (*types.Note, error)
	MarkOverdueBatch(ctx context.Context, asOf time.Time) ([]*types.Note, error)
}

type noteService struct {
	db        *gorm.DB
	log       *logger.Logger
	policy    SchedulePolicy
	notes     repos.NoteRepo
	contracts repos.CreditContractRepo
	events    repos.ContractEventRepo
}

func NewNoteService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy SchedulePolicy,
	noteRepo repos.NoteRepo,
	contractRepo repos.CreditContractRepo,
	eventRepo repos.ContractEventRepo,
) NoteService {
	serviceLog := baseLog.With("service", "NoteService")
	return &noteService{
		db:        db,
		log:       serviceLog,
		policy:    policy,
		notes:     noteRepo,
		contracts: contractRepo,
		events:    eventRepo,
	}
}

// Create inserts a single note outside the generated schedule, for manual
// corrections. The installment slot must be free and the owning contract
// must still be open.
func (ns *noteService) Create(ctx context.Context, in CreateNoteInput) (*types.Note, error) {
	ns.log.Info("Create", "contract_id", in.CreditContractID, "installment_no", in.InstallmentNo)

	if in.InstallmentNo < 1 {
		return nil, apierr.Validation(fmt.Errorf("installment number must be >= 1, got %d", in.InstallmentNo))
	}
	if !in.Amount.IsPositive() {
		return nil, apierr.Validation(fmt.Errorf("amount must be positive, got %s", in.Amount))
	}

	var note *types.Note
	err := ns.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := ns.contracts.GetByID(ctx, tx, in.CreditContractID)
		if err != nil {
			return lookupErr(creditContractEntity, in.CreditContractID, err)
		}
		if contract.State.Terminal() {
			return apierr.InvalidState(creditContractEntity, contract.ID, string(contract.State), "add note")
		}
		taken, err := ns.notes.ExistsInstallment(ctx, tx, in.CreditContractID, in.InstallmentNo)
		if err != nil {
			return apierr.Internal("check installment slot", err)
		}
		if taken {
			return apierr.AlreadyExists(noteEntity, "installment number", in.InstallmentNo)
		}

		note = &types.Note{
			CreditContractID: in.CreditContractID,
			InstallmentNo:    in.InstallmentNo,
			Amount:           in.Amount,
			DueDate:          dateOnly(in.DueDate),
			State:            types.NotePending,
			Version:          1,
		}
		if _, err := ns.notes.CreateBatch(ctx, tx, []*types.Note{note}); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apierr.AlreadyExists(noteEntity, "installment number", in.InstallmentNo)
			}
			return apierr.Internal("create note", err)
		}
		return appendEvent(ctx, tx, ns.events, types.EventEntityNote, note.ID, "created", map[string]any{
			"credit_contract_id": note.CreditContractID,
			"installment_no":     note.InstallmentNo,
		})
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (ns *noteService) GetByID(ctx context.Context, id int64) (*types.Note, error) {
	note, err := ns.notes.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(noteEntity, id)
		}
		return nil, apierr.Internal("get note", err)
	}
	return note, nil
}

func (ns *noteService) GetByInstallment(ctx context.Context, contractID int64, installmentNo int) (*types.Note, error) {
	note, err := ns.notes.GetByInstallment(ctx, nil, contractID, installmentNo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(noteEntity, fmt.Sprintf("%d/%d", contractID, installmentNo))
		}
		return nil, apierr.Internal("get note by installment", err)
	}
	return note, nil
}

func (ns *noteService) ListByContract(ctx context.Context, contractID int64) ([]*types.Note, error) {
	if _, err := ns.contracts.GetByID(ctx, nil, contractID); err != nil {
		return nil, lookupErr(creditContractEntity, contractID, err)
	}
	results, err := ns.notes.ListByContract(ctx, nil, contractID)
	if err != nil {
		return nil, apierr.Internal("list notes", err)
	}
	return results, nil
}

func (ns *noteService) ListByContractAndState(ctx context.Context, contractID int64, state types.NoteState) ([]*types.Note, error) {
	if _, err := ns.contracts.GetByID(ctx, nil, contractID); err != nil {
		return nil, lookupErr(creditContractEntity, contractID, err)
	}
	results, err := ns.notes.ListByContractAndState(ctx, nil, contractID, state)
	if err != nil {
		return nil, apierr.Internal("list notes by state", err)
	}
	return results, nil
}

// ListDueSoon reports PENDING notes falling due within the configured
// horizon, starting at asOf.
func (ns *noteService) ListDueSoon(ctx context.Context, asOf time.Time) ([]*types.Note, error) {
	from := dateOnly(asOf)
	to := from.AddDate(0, 0, ns.policy.DueSoonDays)
	results, err := ns.notes.ListDueWithin(ctx, nil, from, to)
	if err != nil {
		return nil, apierr.Internal("list due-soon notes", err)
	}
	return results, nil
}

func (ns *noteService) CountByState(ctx context.Context, contractID int64, state types.NoteState) (int64, error) {
	count, err := ns.notes.CountByStates(ctx, nil, contractID, state)
	if err != nil {
		return 0, apierr.Internal("count notes by state", err)
	}
	return count, nil
}

func (ns *noteService) UnpaidCount(ctx context.Context, contractID int64) (int64, error) {
	count, err := ns.notes.CountByStates(ctx, nil, contractID, types.NotePending, types.NoteOverdue)
	if err != nil {
		return 0, apierr.Internal("count unpaid notes", err)
	}
	return count, nil
}

func (ns *noteService) ExistsForContract(ctx context.Context, contractID int64) (bool, error) {
	exists, err := ns.notes.ExistsForContract(ctx, nil, contractID)
	if err != nil {
		return false, apierr.Internal("check notes existence", err)
	}
	return exists, nil
}

// Update rewrites the amount and due date of a note that has not settled
// yet. PAID notes are immutable.
func (ns *noteService) Update(ctx context.Context, id int64, in UpdateNoteInput) (*types.Note, error) {
	ns.log.Info("Update", "note_id", id)

	if !in.Amount.IsPositive() {
		return nil, apierr.Validation(fmt.Errorf("amount must be positive, got %s", in.Amount))
	}

	var note *types.Note
	err := ns.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		note, err = ns.notes.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(noteEntity, id, err)
		}
		if note.State == types.NotePaid {
			return apierr.InvalidState(noteEntity, id, string(note.State), "update")
		}
		note.Amount = in.Amount
		note.DueDate = dateOnly(in.DueDate)
		if err := ns.notes.UpdateVersioned(ctx, tx, note); err != nil {
			return writeErr(noteEntity, id, err)
		}
		return appendEvent(ctx, tx, ns.events, types.EventEntityNote, id, "updated", map[string]any{
			"credit_contract_id": note.CreditContractID,
			"installment_no":     note.InstallmentNo,
		})
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// RegisterPayment settles a PENDING note. A note that already slipped to
// OVERDUE goes through SettleOverdue instead; a second payment on the same
// note fails rather than double-transitioning.
func (ns *noteService) RegisterPayment(ctx context.Context, id int64) (*types.Note, error) {
	ns.log.Info("RegisterPayment", "note_id", id)
	return ns.settle(ctx, id, types.NotePending, "payment_registered")
}

// SettleOverdue settles an OVERDUE note, closing the PENDING to OVERDUE to
// PAID path.
func (ns *noteService) SettleOverdue(ctx context.Context, id int64) (*types.Note, error) {
	ns.log.Info("SettleOverdue", "note_id", id)
	return ns.settle(ctx, id, types.NoteOverdue, "overdue_settled")
}

func (ns *noteService) settle(ctx context.Context, id int64, required types.NoteState, action string) (*types.Note, error) {
	var note *types.Note
	err := ns.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		note, err = ns.notes.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(noteEntity, id, err)
		}
		if note.State != required {
			return apierr.InvalidState(noteEntity, id, string(note.State), string(types.NotePaid))
		}
		note.State = types.NotePaid
		if err := ns.notes.UpdateVersioned(ctx, tx, note); err != nil {
			return writeErr(noteEntity, id, err)
		}
		return appendEvent(ctx, tx, ns.events, types.EventEntityNote, id, action, map[string]any{
			"credit_contract_id": note.CreditContractID,
			"installment_no":     note.InstallmentNo,
		})
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// MarkOverdueBatch flips every PENDING note due strictly before asOf to
// OVERDUE and returns the updated set. Re-running with the same date is a
// no-op: already-OVERDUE notes never re-enter the scan.
func (ns *noteService) MarkOverdueBatch(ctx context.Context, asOf time.Time) ([]*types.Note, error) {
	ns.log.Info("MarkOverdueBatch", "as_of", asOf)

	var flipped []*types.Note
	err := ns.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidates, err := ns.notes.ListOverdueCandidates(ctx, tx, dateOnly(asOf))
		if err != nil {
			return apierr.Internal("scan overdue candidates", err)
		}
		flipped = make([]*types.Note, 0, len(candidates))
		for _, note := range candidates {
			note.State = types.NoteOverdue
			if err := ns.notes.UpdateVersioned(ctx, tx, note); err != nil {
				return writeErr(noteEntity, note.ID, err)
			}
			flipped = append(flipped, note)
		}
		if len(flipped) == 0 {
			return nil
		}
		return appendEvent(ctx, tx, ns.events, types.EventEntityNote, 0, "overdue_sweep", map[string]any{
			"as_of":   dateOnly(asOf).Format("2006-01-02"),
			"flipped": len(flipped),
		})
	})
	if err != nil {
		return nil, err
	}
	return flipped, nil
}
