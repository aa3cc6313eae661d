package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/banquito-core/formalization-backend/internal/http/handlers"
	httpMW "github.com/banquito-core/formalization-backend/internal/http/middleware"
)

type RouterConfig struct {
	CreditContractHandler *httpH.CreditContractHandler
	SaleContractHandler   *httpH.SaleContractHandler
	NoteHandler           *httpH.NoteHandler
	HealthHandler         *httpH.HealthHandler

	// TracingEnabled attaches the otelgin middleware; keep it off unless
	// the tracer provider was initialized.
	TracingEnabled bool
	ServiceName    string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.RequestID())
	r.Use(httpMW.CORS())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	// Credit contracts
	if cfg.CreditContractHandler != nil {
		h := cfg.CreditContractHandler
		api.POST("/credit-contracts", h.Instrument)
		api.GET("/credit-contracts", h.List)
		api.GET("/credit-contracts/:id", h.Get)
		api.PUT("/credit-contracts/:id", h.Update)
		api.GET("/credit-contracts/by-number/:number", h.GetByNumber)
		api.GET("/credit-contracts/by-request/:id", h.GetByRequest)
		api.GET("/credit-contracts/by-request/:id/exists", h.ExistsForRequest)
		api.POST("/credit-contracts/:id/signature", h.RegisterSignature)
		api.POST("/credit-contracts/:id/disbursement-approval", h.ApproveDisbursement)
		api.POST("/credit-contracts/:id/payoff", h.MarkPaid)
		api.POST("/credit-contracts/:id/cancellation", h.Cancel)
		api.POST("/credit-contracts/:id/schedule", h.GenerateSchedule)
		api.GET("/credit-contracts/:id/notes", h.ListNotes)
		api.GET("/credit-contracts/:id/notes/count", h.CountNotes)
		api.GET("/credit-contracts/:id/notes/exists", h.NotesExist)
		api.GET("/credit-contracts/:id/notes/:installment", h.GetNoteByInstallment)
		api.GET("/credit-contracts/:id/history", h.History)
	}

	// Notes
	if cfg.NoteHandler != nil {
		h := cfg.NoteHandler
		api.POST("/notes", h.Create)
		api.GET("/notes/due-soon", h.ListDueSoon)
		api.POST("/notes/overdue-sweep", h.MarkOverdueBatch)
		api.GET("/notes/:id", h.Get)
		api.PUT("/notes/:id", h.Update)
		api.POST("/notes/:id/payment", h.RegisterPayment)
		api.POST("/notes/:id/overdue-settlement", h.SettleOverdue)
	}

	// Sale contracts
	if cfg.SaleContractHandler != nil {
		h := cfg.SaleContractHandler
		api.POST("/sale-contracts", h.Generate)
		api.GET("/sale-contracts", h.List)
		api.GET("/sale-contracts/:id", h.Get)
		api.PUT("/sale-contracts/:id", h.Update)
		api.GET("/sale-contracts/by-number/:number", h.GetByNumber)
		api.GET("/sale-contracts/by-request/:id", h.GetByRequest)
		api.POST("/sale-contracts/:id/signature", h.RegisterSignature)
		api.GET("/sale-contracts/:id/history", h.History)
	}

	return r
}
