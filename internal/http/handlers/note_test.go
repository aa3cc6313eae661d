package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/banquito-core/formalization-backend/internal/domain"
	"github.com/banquito-core/formalization-backend/internal/http/response"
	"github.com/banquito-core/formalization-backend/internal/platform/apierr"
	"github.com/banquito-core/formalization-backend/internal/services"
)

type stubNoteService struct {
	note    *types.Note
	notes   []*types.Note
	flipped []*types.Note
	err     error
}

func (s *stubNoteService) Create(ctx context.Context, in services.CreateNoteInput) (*types.Note, error) {
	return s.note, s.err
}
func (s *stubNoteService) GetByID(ctx context.Context, id int64) (*types.Note, error) {
	return s.note, s.err
}
func (s *stubNoteService) GetByInstallment(ctx context.Context, contractID int64, installmentNo int) (*types.Note, error) {
	return s.note, s.err
}
func (s *stubNoteService) ListByContract(ctx context.Context, contractID int64) ([]*types.Note, error) {
	return s.notes, s.err
}
func (s *stubNoteService) ListByContractAndState(ctx context.Context, contractID int64, state types.NoteState) ([]*types.Note, error) {
	return s.notes, s.err
}
func (s *stubNoteService) ListDueSoon(ctx context.Context, asOf time.Time) ([]*types.Note, error) {
	return s.notes, s.err
}
func (s *stubNoteService) CountByState(ctx context.Context, contractID int64, state types.NoteState) (int64, error) {
	return int64(len(s.notes)), s.err
}
func (s *stubNoteService) UnpaidCount(ctx context.Context, contractID int64) (int64, error) {
	return int64(len(s.notes)), s.err
}
func (s *stubNoteService) ExistsForContract(ctx context.Context, contractID int64) (bool, error) {
	return len(s.notes) > 0, s.err
}
func (s *stubNoteService) Update(ctx context.Context, id int64, in services.UpdateNoteInput) (*types.Note, error) {
	return s.note, s.err
}
func (s *stubNoteService) RegisterPayment(ctx context.Context, id int64) (*types.Note, error) {
	return s.note, s.err
}
func (s *stubNoteService) SettleOverdue(ctx context.Context, id int64) (*types.Note, error) {
	return s.note, s.err
}
func (s *stubNoteService) MarkOverdueBatch(ctx context.Context, asOf time.Time) ([]*types.Note, error) {
	return s.flipped, s.err
}

func noteRouter(svc *stubNoteService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewNoteHandler(svc)
	r := gin.New()
	r.GET("/api/notes/:id", h.Get)
	r.POST("/api/notes/:id/payment", h.RegisterPayment)
	r.POST("/api/notes/overdue-sweep", h.MarkOverdueBatch)
	return r
}

func TestNoteHandlerGet(t *testing.T) {
	svc := &stubNoteService{note: &types.Note{ID: 5, InstallmentNo: 1, State: types.NotePending}}
	r := noteRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notes/5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got types.Note
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 5 {
		t.Errorf("note id = %d", got.ID)
	}
}

func TestNoteHandlerInvalidID(t *testing.T) {
	r := noteRouter(&stubNoteService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notes/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestNoteHandlerMapsServiceErrors(t *testing.T) {
	svc := &stubNoteService{err: apierr.InvalidState("note", 5, "PAID", "PAID")}
	r := noteRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/notes/5/payment", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "invalid_state" {
		t.Errorf("code = %q", env.Error.Code)
	}
}

func TestNoteHandlerOverdueSweep(t *testing.T) {
	svc := &stubNoteService{flipped: []*types.Note{{ID: 1, State: types.NoteOverdue}}}
	r := noteRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/notes/overdue-sweep",
		strings.NewReader(`{"as_of":"2025-09-01"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}

	// Empty body defaults the sweep date to today.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/notes/overdue-sweep", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("sweep without body: status = %d, want 200", w.Code)
	}
}

func TestNoteByInstallmentRoutes(t *testing.T) {
	svc := &stubNoteService{
		note:  &types.Note{ID: 7, InstallmentNo: 3, State: types.NotePending},
		notes: []*types.Note{{ID: 7}},
	}
	gin.SetMode(gin.TestMode)
	h := NewCreditContractHandler(nil, svc)
	r := gin.New()
	r.GET("/api/credit-contracts/:id/notes/exists", h.NotesExist)
	r.GET("/api/credit-contracts/:id/notes/:installment", h.GetNoteByInstallment)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/credit-contracts/1/notes/3", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got types.Note
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.InstallmentNo != 3 {
		t.Errorf("installment = %d", got.InstallmentNo)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/credit-contracts/1/notes/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric installment: status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/credit-contracts/1/notes/exists", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("exists: status = %d, want 200", w.Code)
	}
	var body struct {
		Exists bool `json:"exists"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Exists {
		t.Errorf("exists = false, want true")
	}
}

func TestNoteHandlerBadSweepDate(t *testing.T) {
	r := noteRouter(&stubNoteService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/notes/overdue-sweep",
		strings.NewReader(`{"as_of":"01-09-2025"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
