package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/http/response"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
	"github.com/banquito-core/formalization-backend/internal/services"
)

type CreditContractHandler struct {
	svc   services.CreditContractService
	notes services.NoteService
}

func NewCreditContractHandler(svc services.CreditContractService, notes services.NoteService) *CreditContractHandler {
	return &CreditContractHandler{svc: svc, notes: notes}
}

type instrumentRequest struct {
	RequestID      int64  `json:"request_id" binding:"required"`
	ContractNumber string `json:"contract_number" binding:"required"`
}

// POST /api/credit-contracts
func (h *CreditContractHandler) Instrument(c *gin.Context) {
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.Instrument(c.Request.Context(), services.InstrumentInput{
		RequestID:      req.RequestID,
		ContractNumber: req.ContractNumber,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, contract)
}

// GET /api/credit-contracts?state=&contract_number=&request_id=&page=&size=
func (h *CreditContractHandler) List(c *gin.Context) {
	filter := types.CreditContractFilter{
		ContractNumber: c.Query("contract_number"),
	}
	if raw := c.Query("state"); raw != "" {
		state := types.CreditContractState(raw)
		filter.State = &state
	}
	requestID, err := queryInt64(c, "request_id")
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	filter.RequestID = requestID

	offset, limit := pagination(c)
	contracts, total, err := h.svc.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, paged(contracts, offset, limit, total))
}

// GET /api/credit-contracts/:id
func (h *CreditContractHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

// GET /api/credit-contracts/by-number/:number
func (h *CreditContractHandler) GetByNumber(c *gin.Context) {
	contract, err := h.svc.GetByContractNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

// GET /api/credit-contracts/by-request/:id
func (h *CreditContractHandler) GetByRequest(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.GetByRequestID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

// GET /api/credit-contracts/by-request/:id/exists
func (h *CreditContractHandler) ExistsForRequest(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	exists, err := h.svc.ExistsForRequest(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"exists": exists})
}

type updateCreditContractRequest struct {
	ApprovedAmount decimal.Decimal `json:"approved_amount" binding:"required"`
	TermMonths     int             `json:"term_months" binding:"required"`
	AnnualRate     decimal.Decimal `json:"annual_rate"`
	SignedFileRef  string          `json:"signed_file_ref"`
}

// PUT /api/credit-contracts/:id
func (h *CreditContractHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var req updateCreditContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.Update(c.Request.Context(), id, services.UpdateCreditContractInput{
		ApprovedAmount: req.ApprovedAmount,
		TermMonths:     req.TermMonths,
		AnnualRate:     req.AnnualRate,
		SignedFileRef:  req.SignedFileRef,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

type signatureRequest struct {
	SignedFileRef string `json:"signed_file_ref" binding:"required"`
}

// POST /api/credit-contracts/:id/signature
func (h *CreditContractHandler) RegisterSignature(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var req signatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.RegisterSignature(c.Request.Context(), id, req.SignedFileRef)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

// POST /api/credit-contracts/:id/disbursement-approval
func (h *CreditContractHandler) ApproveDisbursement(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.ApproveDisbursement(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

// POST /api/credit-contracts/:id/payoff
func (h *CreditContractHandler) MarkPaid(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.MarkPaid(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// POST /api/credit-contracts/:id/cancellation
func (h *CreditContractHandler) Cancel(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

type generateScheduleRequest struct {
	StartDate      string `json:"start_date"`
	AdjustWeekends bool   `json:"adjust_weekends"`
}

// POST /api/credit-contracts/:id/schedule
//
// Without a start_date the schedule is derived from the contract's own
// generation date; with one, generation is parameter-driven.
func (h *CreditContractHandler) GenerateSchedule(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var req generateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.FromError(c, apierr.Validation(err))
		return
	}

	var notes []*types.Note
	if req.StartDate == "" {
		notes, err = h.svc.GenerateScheduleFromContract(c.Request.Context(), id)
	} else {
		var start time.Time
		start, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			response.FromError(c, apierr.Validation(fmt.Errorf("invalid start_date %q, want YYYY-MM-DD", req.StartDate)))
			return
		}
		notes, err = h.svc.GenerateSchedule(c.Request.Context(), id, services.GenerateScheduleInput{
			StartDate:      start,
			AdjustWeekends: req.AdjustWeekends,
		})
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"notes": notes})
}

// GET /api/credit-contracts/:id/notes?state=
func (h *CreditContractHandler) ListNotes(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var (
		list []*types.Note
	)
	if raw := c.Query("state"); raw != "" {
		list, err = h.notes.ListByContractAndState(c.Request.Context(), id, types.NoteState(raw))
	} else {
		list, err = h.notes.ListByContract(c.Request.Context(), id)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notes": list})
}

// GET /api/credit-contracts/:id/notes/:installment
func (h *CreditContractHandler) GetNoteByInstallment(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	installment, err := strconv.Atoi(c.Param("installment"))
	if err != nil || installment < 1 {
		response.FromError(c, apierr.Validation(fmt.Errorf("invalid installment number %q", c.Param("installment"))))
		return
	}
	note, err := h.notes.GetByInstallment(c.Request.Context(), id, installment)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, note)
}

// GET /api/credit-contracts/:id/notes/exists
func (h *CreditContractHandler) NotesExist(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	exists, err := h.notes.ExistsForContract(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"exists": exists})
}

// GET /api/credit-contracts/:id/notes/count?state=
//
// Without a state the count covers everything still owed (PENDING plus
// OVERDUE).
func (h *CreditContractHandler) CountNotes(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var count int64
	if raw := c.Query("state"); raw != "" {
		count, err = h.notes.CountByState(c.Request.Context(), id, types.NoteState(raw))
	} else {
		count, err = h.notes.UnpaidCount(c.Request.Context(), id)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"count": count})
}

// GET /api/credit-contracts/:id/history
func (h *CreditContractHandler) History(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	events, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}
