package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/http/response"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
	"github.com/banquito-core/formalization-backend/internal/services"
)

type SaleContractHandler struct {
	svc services.SaleContractService
}

func NewSaleContractHandler(svc services.SaleContractService) *SaleContractHandler {
	return &SaleContractHandler{svc: svc}
}

type generateSaleContractRequest struct {
	RequestID      int64  `json:"request_id" binding:"required"`
	ContractNumber string `json:"contract_number" binding:"required"`
}

// POST /api/sale-contracts
func (h *SaleContractHandler) Generate(c *gin.Context) {
	var req generateSaleContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.Generate(c.Request.Context(), services.GenerateSaleContractInput{
		RequestID:      req.RequestID,
		ContractNumber: req.ContractNumber,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondCreated(c, contract)
}

// GET /api/sale-contracts?state=&contract_number=&request_id=&page=&size=
func (h *SaleContractHandler) List(c *gin.Context) {
	filter := types.SaleContractFilter{
		ContractNumber: c.Query("contract_number"),
	}
	if raw := c.Query("state"); raw != "" {
		state := types.SaleContractState(raw)
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

// GET /api/sale-contracts/:id
func (h *SaleContractHandler) Get(c *gin.Context) {
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

// GET /api/sale-contracts/by-number/:number
func (h *SaleContractHandler) GetByNumber(c *gin.Context) {
	contract, err := h.svc.GetByContractNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

// GET /api/sale-contracts/by-request/:id
func (h *SaleContractHandler) GetByRequest(c *gin.Context) {
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

type updateSaleContractRequest struct {
	FinalVehiclePrice decimal.Decimal `json:"final_vehicle_price" binding:"required"`
	SignedFileRef     string          `json:"signed_file_ref"`
}

// PUT /api/sale-contracts/:id
func (h *SaleContractHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	var req updateSaleContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apierr.Validation(err))
		return
	}
	contract, err := h.svc.Update(c.Request.Context(), id, services.UpdateSaleContractInput{
		FinalVehiclePrice: req.FinalVehiclePrice,
		SignedFileRef:     req.SignedFileRef,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.RespondOK(c, contract)
}

// POST /api/sale-contracts/:id/signature
func (h *SaleContractHandler) RegisterSignature(c *gin.Context) {
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

// GET /api/sale-contracts/:id/history
func (h *SaleContractHandler) History(c *gin.Context) {
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
