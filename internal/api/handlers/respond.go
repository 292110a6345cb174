package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/crusade-tracker/internal/domain"
	"github.com/dom/crusade-tracker/internal/service"
)

// Response is the uniform envelope for every mutating operation: a
// success flag, a human-readable message and the updated entity when
// one exists.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, Response{Success: true, Data: data})
}

// respondError maps the engine's error taxonomy to HTTP statuses. The
// error string is surfaced directly; rejection reasons are written for
// display.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrCategoryViolation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrCapExceeded),
		errors.Is(err, domain.ErrInsufficientRP),
		errors.Is(err, domain.ErrBattleSealed),
		errors.Is(err, domain.ErrBattleUnresolved):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCorruptSnapshot),
		errors.Is(err, domain.ErrRecoveryFailed):
		status = http.StatusInternalServerError
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrDisplayNameExists):
		status = http.StatusConflict
	}
	respondJSON(w, status, Response{Success: false, Message: err.Error()})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, Response{Success: false, Message: message})
}
