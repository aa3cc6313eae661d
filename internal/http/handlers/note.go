package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/banquito-core/formalization-backend/internal/http/response"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
	"github.com/banquito-core/formalization-backend/internal/services"
)

type NoteHandler struct {
	svc services.NoteService
}

func NewNoteHandler(svc services.NoteService) *NoteHandler {
	return &NoteHandler{svc: svc}
}

type createNoteRequest struct {
	CreditContractID int64           `json:"credit_contract_id" binding:"required"`
	InstallmentNo    int             `json:"installment_no" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	DueDate          string          `json:"due_date" binding:"required"`
}

// POST /api/notes
func (h *NoteHandler) Create(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		response.FromError(c, apierr.Validation(fmt.Errorf("invalid due_date %q, want YYYY-MM-DD", req.DueDate)))
		return
	}
	note, err := h.svc.Create(c.Request.Context(), services.CreateNoteInput{
		CreditContractID: req.CreditContractID,
		InstallmentNo:    req.InstallmentNo,
		Amount:           req.Amount,
		DueDate:          due,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, note)
}

type updateNoteRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	DueDate string          `json:"due_date" binding:"required"`
}

// PUT /api/notes/:id
func (h *NoteHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var req updateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		response.FromError(c, apierr.Validation(fmt.Errorf("invalid due_date %q, want YYYY-MM-DD", req.DueDate)))
		return
	}
	note, err := h.svc.Update(c.Request.Context(), id, services.UpdateNoteInput{
		Amount:  req.Amount,
		DueDate: due,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, note)
}

// GET /api/notes/:id
func (h *NoteHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	note, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, note)
}

// POST /api/notes/:id/payment
func (h *NoteHandler) RegisterPayment(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	note, err := h.svc.RegisterPayment(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, note)
}

// POST /api/notes/:id/overdue-settlement
func (h *NoteHandler) SettleOverdue(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	note, err := h.svc.SettleOverdue(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, note)
}

type overdueSweepRequest struct {
	AsOf string `json:"as_of"`
}

// POST /api/notes/overdue-sweep
func (h *NoteHandler) MarkOverdueBatch(c *gin.Context) {
	var req overdueSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.FromError(c, apierr.Validation(err))
		return
	}
	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			response.FromError(c, apierr.Validation(err))
			return
		}
		asOf = parsed
	}
	flipped, err := h.svc.MarkOverdueBatch(c.Request.Context(), asOf)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"flipped": flipped, "count": len(flipped)})
}

// GET /api/notes/due-soon?as_of=
func (h *NoteHandler) ListDueSoon(c *gin.Context) {
	asOf, err := queryDate(c, "as_of", time.Now().UTC())
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	notes, err := h.svc.ListDueSoon(c.Request.Context(), asOf)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notes": notes})
}
