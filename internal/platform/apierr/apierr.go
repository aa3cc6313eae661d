package apierr

import (
	"fmt"
	"net/http"
)

// Error is the HTTP-mappable error carried from services to handlers.
// Status is the HTTP status the boundary should answer with, Code a stable
// machine-readable identifier, Err the human-readable detail. Meta carries
// structured context (entity, id, current state, pending counts).
type Error struct {
	Status int
	Code   string
	Err    error
	Meta   map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(entity string, key any) *Error {
	return &Error{
		Status: http.StatusNotFound,
		Code:   "not_found",
		Err:    fmt.Errorf("%s %v not found", entity, key),
		Meta:   map[string]any{"entity": entity, "key": key},
	}
}

func AlreadyExists(entity, field string, value any) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Code:   "already_exists",
		Err:    fmt.Errorf("%s with %s %v already exists", entity, field, value),
		Meta:   map[string]any{"entity": entity, "field": field, "value": value},
	}
}

func InvalidState(entity string, id int64, current, attempted string) *Error {
	return &Error{
		Status: http.StatusConflict,
		Code:   "invalid_state",
		Err:    fmt.Errorf("%s %d is %s, cannot transition to %s", entity, id, current, attempted),
		Meta:   map[string]any{"entity": entity, "id": id, "current": current, "attempted": attempted},
	}
}

func NotSigned(entity string, id int64) *Error {
	return &Error{
		Status: http.StatusConflict,
		Code:   "not_signed",
		Err:    fmt.Errorf("%s %d has no signed file reference", entity, id),
		Meta:   map[string]any{"entity": entity, "id": id},
	}
}

func PendingNotes(contractID, count int64) *Error {
	return &Error{
		Status: http.StatusConflict,
		Code:   "pending_notes",
		Err:    fmt.Errorf("credit contract %d has %d unpaid notes", contractID, count),
		Meta:   map[string]any{"entity": "credit contract", "id": contractID, "pending": count},
	}
}

func GenerationConflict(contractID int64) *Error {
	return &Error{
		Status: http.StatusConflict,
		Code:   "generation_conflict",
		Err:    fmt.Errorf("notes already generated for credit contract %d", contractID),
		Meta:   map[string]any{"entity": "credit contract", "id": contractID},
	}
}

func StaleVersion(entity string, id int64) *Error {
	return &Error{
		Status: http.StatusConflict,
		Code:   "version_conflict",
		Err:    fmt.Errorf("%s %d was modified concurrently", entity, id),
		Meta:   map[string]any{"entity": entity, "id": id},
	}
}

func Validation(err error) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "validation", Err: err}
}

// Internal wraps infrastructure failures with the operation being attempted.
func Internal(op string, err error) *Error {
	return &Error{
		Status: http.StatusInternalServerError,
		Code:   "internal",
		Err:    fmt.Errorf("%s: %w", op, err),
	}
}
