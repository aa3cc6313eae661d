package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/banquito-core/formalization-backend/internal/amortization"
	"github.com/banquito-core/formalization-backend/internal/clients/origination"
	"github.com/banquito-core/formalization-backend/internal/data/repos"
	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
	"github.com/banquito-core/formalization-backend/internal/platform/logger"
	"github.com/banquito-core/formalization-backend/internal/platform/storage"
)

const creditContractEntity = "credit contract"

type InstrumentInput struct {
	RequestID      int64
	ContractNumber string
}

type UpdateCreditContractInput struct {
	ApprovedAmount decimal.Decimal
	TermMonths     int
	AnnualRate     decimal.Decimal
	SignedFileRef  string
}

type GenerateScheduleInput struct {
	StartDate      time.Time
	AdjustWeekends bool
}

type CreditContractService interface {
	Instrument(ctx context.Context, in InstrumentInput) (*types.CreditContract, error)
	GetByID(ctx context.Context, id int64) (*types.CreditContract, error)
	GetByContractNumber(ctx context.Context, number string) (*types.CreditContract, error)
	GetByRequestID(ctx context.Context, requestID int64) (*types.CreditContract, error)
	ExistsForRequest(ctx context.Context, requestID int64) (bool, error)
	List(ctx context.Context, filter types.CreditContractFilter, offset, limit int) ([]*types.CreditContract, int64, error)
	Update(ctx context.Context, id int64, in UpdateCreditContractInput) (*types.CreditContract, error)
	RegisterSignature(ctx context.Context, id int64, fileRef string) (*types.CreditContract, error)
	ApproveDisbursement(ctx context.Context, id int64) (*types.CreditContract, error)
	MarkPaid(ctx context.Context, id int64) (*types.CreditContract, error)
	Cancel(ctx context.Context, id int64, reason string) (*types.CreditContract, error)
	GenerateSchedule(ctx context.Context, id int64, in GenerateScheduleInput) ([]*types.Note, error)
	GenerateScheduleFromContract(ctx context.Context, id int64) ([]*types.Note, error)
	History(ctx context.Context, id int64) ([]*types.ContractEvent, error)
}

type creditContractService struct {
	db          *gorm.DB
	log         *logger.Logger
	policy      SchedulePolicy
	origination origination.Client
	contracts   repos.CreditContractRepo
	notes       repos.NoteRepo
	events      repos.ContractEventRepo
}

func NewCreditContractService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy SchedulePolicy,
	originationClient origination.Client,
	contractRepo repos.CreditContractRepo,
	noteRepo repos.NoteRepo,
	eventRepo repos.ContractEventRepo,
) CreditContractService {
	serviceLog := baseLog.With("service", "CreditContractService")
	return &creditContractService{
		db:          db,
		log:         serviceLog,
		policy:      policy,
		origination: originationClient,
		contracts:   contractRepo,
		notes:       noteRepo,
		events:      eventRepo,
	}
}

// Instrument creates the credit contract for an approved request and
// generates its full note schedule in the same transaction. Amount, term
// and rate come from origination; the caller only supplies the request id
// and the contract number.
func (cs *creditContractService) Instrument(ctx context.Context, in InstrumentInput) (*types.CreditContract, error) {
	cs.log.Info("Instrument", "request_id", in.RequestID, "contract_number", in.ContractNumber)

	summary, err := cs.origination.GetRequestSummary(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, origination.ErrRequestNotFound) {
			return nil, apierr.NotFound("approved request", in.RequestID)
		}
		return nil, apierr.Internal("fetch origination summary", err)
	}

	var contract *types.CreditContract
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := cs.contracts.ExistsByRequestID(ctx, tx, in.RequestID)
		if err != nil {
			return apierr.Internal("check request uniqueness", err)
		}
		if exists {
			return apierr.AlreadyExists(creditContractEntity, "request id", in.RequestID)
		}
		exists, err = cs.contracts.ExistsByContractNumber(ctx, tx, in.ContractNumber)
		if err != nil {
			return apierr.Internal("check contract number uniqueness", err)
		}
		if exists {
			return apierr.AlreadyExists(creditContractEntity, "contract number", in.ContractNumber)
		}

		now := time.Now().UTC()
		contract = &types.CreditContract{
			RequestID:      in.RequestID,
			ContractNumber: in.ContractNumber,
			GeneratedAt:    now,
			ApprovedAmount: summary.ApprovedAmount,
			TermMonths:     summary.TermMonths,
			AnnualRate:     summary.AnnualRate,
			State:          types.CreditPendingSignature,
			Version:        1,
		}
		// The uniqueness checks above can race a concurrent Instrument;
		// the insert's unique constraint settles the loser.
		if _, err := cs.contracts.Create(ctx, tx, contract); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apierr.AlreadyExists(creditContractEntity, "request id or contract number", in.ContractNumber)
			}
			return apierr.Internal("create credit contract", err)
		}

		firstDue := amortization.AddMonthsClamped(dateOnly(now), 1)
		installments, err := amortization.Schedule(
			contract.ApprovedAmount,
			contract.AnnualRate,
			contract.TermMonths,
			firstDue,
			amortization.Policy{
				AdjustWeekends:  cs.policy.AdjustWeekends,
				AbsorbRemainder: cs.policy.AbsorbRemainder,
			},
		)
		if err != nil {
			return apierr.Validation(err)
		}
		if _, err := cs.notes.CreateBatch(ctx, tx, notesFrom(contract.ID, installments)); err != nil {
			return apierr.Internal("create note schedule", err)
		}

		return appendEvent(ctx, tx, cs.events, types.EventEntityCreditContract, contract.ID, "instrumented", map[string]any{
			"contract_number": contract.ContractNumber,
			"request_id":      contract.RequestID,
			"installments":    len(installments),
		})
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (cs *creditContractService) GetByID(ctx context.Context, id int64) (*types.CreditContract, error) {
	contract, err := cs.contracts.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(creditContractEntity, id)
		}
		return nil, apierr.Internal("get credit contract", err)
	}
	return contract, nil
}

func (cs *creditContractService) GetByContractNumber(ctx context.Context, number string) (*types.CreditContract, error) {
	contract, err := cs.contracts.GetByContractNumber(ctx, nil, number)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(creditContractEntity, number)
		}
		return nil, apierr.Internal("get credit contract by number", err)
	}
	return contract, nil
}

func (cs *creditContractService) GetByRequestID(ctx context.Context, requestID int64) (*types.CreditContract, error) {
	contract, err := cs.contracts.GetByRequestID(ctx, nil, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apierr.NotFound(creditContractEntity, requestID)
		}
		return nil, apierr.Internal("get credit contract by request", err)
	}
	return contract, nil
}

func (cs *creditContractService) ExistsForRequest(ctx context.Context, requestID int64) (bool, error) {
	exists, err := cs.contracts.ExistsByRequestID(ctx, nil, requestID)
	if err != nil {
		return false, apierr.Internal("check credit contract existence", err)
	}
	return exists, nil
}

func (cs *creditContractService) List(ctx context.Context, filter types.CreditContractFilter, offset, limit int) ([]*types.CreditContract, int64, error) {
	results, total, err := cs.contracts.List(ctx, nil, filter, offset, limit)
	if err != nil {
		return nil, 0, apierr.Internal("list credit contracts", err)
	}
	return results, total, nil
}

func (cs *creditContractService) Update(ctx context.Context, id int64, in UpdateCreditContractInput) (*types.CreditContract, error) {
	cs.log.Info("Update", "contract_id", id)

	var contract *types.CreditContract
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contract, err = cs.contracts.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(creditContractEntity, id, err)
		}
		if contract.State.Terminal() {
			return apierr.InvalidState(creditContractEntity, id, string(contract.State), "update")
		}
		contract.ApprovedAmount = in.ApprovedAmount
		contract.TermMonths = in.TermMonths
		contract.AnnualRate = in.AnnualRate
		contract.SignedFileRef = in.SignedFileRef
		if err := cs.contracts.UpdateVersioned(ctx, tx, contract); err != nil {
			return writeErr(creditContractEntity, id, err)
		}
		return appendEvent(ctx, tx, cs.events, types.EventEntityCreditContract, id, "updated", nil)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// RegisterSignature is one of the two routes into ACTIVE; approving the
// disbursement is the other. Whichever lands first wins, the second call
// fails with InvalidState.
func (cs *creditContractService) RegisterSignature(ctx context.Context, id int64, fileRef string) (*types.CreditContract, error) {
	cs.log.Info("RegisterSignature", "contract_id", id)

	var contract *types.CreditContract
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contract, err = cs.contracts.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(creditContractEntity, id, err)
		}
		if contract.State != types.CreditPendingSignature {
			return apierr.InvalidState(creditContractEntity, id, string(contract.State), string(types.CreditActive))
		}
		now := time.Now().UTC()
		contract.SignedAt = &now
		contract.SignedFileRef = fileRef
		contract.State = types.CreditActive
		if err := cs.contracts.UpdateVersioned(ctx, tx, contract); err != nil {
			return writeErr(creditContractEntity, id, err)
		}
		return appendEvent(ctx, tx, cs.events, types.EventEntityCreditContract, id, "signature_registered", map[string]any{
			"signed_file_ref": fileRef,
		})
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (cs *creditContractService) ApproveDisbursement(ctx context.Context, id int64) (*types.CreditContract, error) {
	cs.log.Info("ApproveDisbursement", "contract_id", id)

	var contract *types.CreditContract
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contract, err = cs.contracts.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(creditContractEntity, id, err)
		}
		if contract.State != types.CreditPendingSignature {
			return apierr.InvalidState(creditContractEntity, id, string(contract.State), string(types.CreditActive))
		}
		if contract.SignedFileRef == "" {
			return apierr.NotSigned(creditContractEntity, id)
		}
		contract.State = types.CreditActive
		if err := cs.contracts.UpdateVersioned(ctx, tx, contract); err != nil {
			return writeErr(creditContractEntity, id, err)
		}
		return appendEvent(ctx, tx, cs.events, types.EventEntityCreditContract, id, "disbursement_approved", nil)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (cs *creditContractService) MarkPaid(ctx context.Context, id int64) (*types.CreditContract, error) {
	cs.log.Info("MarkPaid", "contract_id", id)

	var contract *types.CreditContract
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contract, err = cs.contracts.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(creditContractEntity, id, err)
		}
		if contract.State != types.CreditActive {
			return apierr.InvalidState(creditContractEntity, id, string(contract.State), string(types.CreditPaid))
		}
		unpaid, err := cs.notes.CountByStates(ctx, tx, id, types.NotePending, types.NoteOverdue)
		if err != nil {
			return apierr.Internal("count unpaid notes", err)
		}
		if unpaid > 0 {
			return apierr.PendingNotes(id, unpaid)
		}
		contract.State = types.CreditPaid
		if err := cs.contracts.UpdateVersioned(ctx, tx, contract); err != nil {
			return writeErr(creditContractEntity, id, err)
		}
		return appendEvent(ctx, tx, cs.events, types.EventEntityCreditContract, id, "paid_off", nil)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

func (cs *creditContractService) Cancel(ctx context.Context, id int64, reason string) (*types.CreditContract, error) {
	cs.log.Info("Cancel", "contract_id", id)

	var contract *types.CreditContract
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contract, err = cs.contracts.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(creditContractEntity, id, err)
		}
		if !contract.State.CanCancel() {
			return apierr.InvalidState(creditContractEntity, id, string(contract.State), string(types.CreditCancelled))
		}
		contract.State = types.CreditCancelled
		if err := cs.contracts.UpdateVersioned(ctx, tx, contract); err != nil {
			return writeErr(creditContractEntity, id, err)
		}
		return appendEvent(ctx, tx, cs.events, types.EventEntityCreditContract, id, "cancelled", map[string]any{
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// GenerateSchedule is the parameter-driven generation path: the schedule
// starts at the supplied date, with weekend adjustment off unless the
// request asks for it. Fails when the contract already has notes.
func (cs *creditContractService) GenerateSchedule(ctx context.Context, id int64, in GenerateScheduleInput) ([]*types.Note, error) {
	cs.log.Info("GenerateSchedule", "contract_id", id, "start_date", in.StartDate)
	start := dateOnly(in.StartDate)
	return cs.generate(ctx, id, &start, in.AdjustWeekends)
}

// GenerateScheduleFromContract derives the start date from the contract
// itself (one month after generation) and follows the configured weekend
// policy, the same schedule Instrument produces.
func (cs *creditContractService) GenerateScheduleFromContract(ctx context.Context, id int64) ([]*types.Note, error) {
	cs.log.Info("GenerateScheduleFromContract", "contract_id", id)
	return cs.generate(ctx, id, nil, cs.policy.AdjustWeekends)
}

func (cs *creditContractService) generate(ctx context.Context, id int64, start *time.Time, adjustWeekends bool) ([]*types.Note, error) {
	var created []*types.Note
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := cs.contracts.GetByID(ctx, tx, id)
		if err != nil {
			return lookupErr(creditContractEntity, id, err)
		}
		exists, err := cs.notes.ExistsForContract(ctx, tx, id)
		if err != nil {
			return apierr.Internal("check existing notes", err)
		}
		if exists {
			return apierr.GenerationConflict(id)
		}

		firstDue := amortization.AddMonthsClamped(dateOnly(contract.GeneratedAt), 1)
		if start != nil {
			firstDue = *start
		}
		installments, err := amortization.Schedule(
			contract.ApprovedAmount,
			contract.AnnualRate,
			contract.TermMonths,
			firstDue,
			amortization.Policy{
				AdjustWeekends:  adjustWeekends,
				AbsorbRemainder: cs.policy.AbsorbRemainder,
			},
		)
		if err != nil {
			return apierr.Validation(err)
		}
		created, err = cs.notes.CreateBatch(ctx, tx, notesFrom(id, installments))
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apierr.GenerationConflict(id)
			}
			return apierr.Internal("create note schedule", err)
		}
		return appendEvent(ctx, tx, cs.events, types.EventEntityCreditContract, id, "schedule_generated", map[string]any{
			"start_date":   firstDue.Format("2006-01-02"),
			"installments": len(installments),
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (cs *creditContractService) History(ctx context.Context, id int64) ([]*types.ContractEvent, error) {
	if _, err := cs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	events, err := cs.events.ListByEntity(ctx, nil, types.EventEntityCreditContract, id)
	if err != nil {
		return nil, apierr.Internal("list contract events", err)
	}
	return events, nil
}

func notesFrom(contractID int64, installments []amortization.Installment) []*types.Note {
	out := make([]*types.Note, 0, len(installments))
	for _, inst := range installments {
		out = append(out, &types.Note{
			CreditContractID: contractID,
			InstallmentNo:    inst.Number,
			Amount:           inst.Amount,
			DueDate:          inst.DueDate,
			State:            types.NotePending,
			Version:          1,
		})
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func lookupErr(entity string, id int64, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apierr.NotFound(entity, id)
	}
	return apierr.Internal("get "+entity, err)
}

func writeErr(entity string, id int64, err error) error {
	switch {
	case errors.Is(err, storage.ErrStaleVersion):
		return apierr.StaleVersion(entity, id)
	case errors.Is(err, storage.ErrNotFound):
		return apierr.NotFound(entity, id)
	default:
		return apierr.Internal("update "+entity, err)
	}
}
