// Package apperr is the typed error taxonomy for the BOOMS engine (spec §7).
// Every pipeline and collaborator returns *Error instead of a bare error so
// handlers can write a consistent structured JSON body without re-deriving
// an HTTP status from error strings.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Code is one of the taxonomy codes from.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeUnsupportedCurrency Code = "UNSUPPORTED_CURRENCY"
	CodeInsufficientReal Code = "INSUFFICIENT_REAL_FUNDS"
	CodeInsufficientVirtual Code = "INSUFFICIENT_VIRTUAL_FUNDS"
	CodeBoomUnavailable Code = "BOOM_UNAVAILABLE"
	CodeStockExhausted Code = "STOCK_EXHAUSTED"
	CodeHoldingNotOwned Code = "HOLDING_NOT_OWNED"
	CodeHoldingNotTransfer Code = "HOLDING_NOT_TRANSFERABLE"
	CodeGiftNotFound Code = "GIFT_NOT_FOUND"
	CodeGiftExpired Code = "GIFT_EXPIRED"
	CodeGiftInvalidTransit Code = "GIFT_INVALID_TRANSITION"
	CodeGiftDuplicateRecent Code = "GIFT_DUPLICATE_RECENT"
	CodeUserNotFound Code = "USER_NOT_FOUND"
	CodeUserSuspended Code = "USER_SUSPENDED"
	CodeUserBanned Code = "USER_BANNED"
	CodeForbidden Code = "FORBIDDEN"
	CodeProviderUnconfigured Code = "PROVIDER_UNCONFIGURED"
	CodeProviderError Code = "PROVIDER_ERROR"
	CodeTransientContended Code = "TRANSIENT_CONTENDED"
	CodeIntegrityError Code = "INTEGRITY_ERROR"
)

// httpStatus maps each code to the status class demands:
// validation errors 4xx, transient contention / integrity errors 5xx.
var httpStatus = map[Code]int{
	CodeValidation: http.StatusBadRequest,
	CodeUnsupportedCurrency: http.StatusBadRequest,
	CodeInsufficientReal: http.StatusUnprocessableEntity,
	CodeInsufficientVirtual: http.StatusUnprocessableEntity,
	CodeBoomUnavailable: http.StatusConflict,
	CodeStockExhausted: http.StatusConflict,
	CodeHoldingNotOwned: http.StatusForbidden,
	CodeHoldingNotTransfer: http.StatusConflict,
	CodeGiftNotFound: http.StatusNotFound,
	CodeGiftExpired: http.StatusGone,
	CodeGiftInvalidTransit: http.StatusConflict,
	CodeGiftDuplicateRecent: http.StatusConflict,
	CodeUserNotFound: http.StatusNotFound,
	CodeUserSuspended: http.StatusForbidden,
	CodeUserBanned: http.StatusForbidden,
	CodeForbidden: http.StatusForbidden,
	CodeProviderUnconfigured: http.StatusServiceUnavailable,
	CodeProviderError: http.StatusBadGateway,
	CodeTransientContended: http.StatusServiceUnavailable,
	CodeIntegrityError: http.StatusInternalServerError,
}

// Error is the structured error every package in this module returns
// instead of a bare error, so transport layers never have to sniff
// error strings to pick a status code.
type Error struct {
	Code Code `json:"error"`
	Message string `json:"message"`
	cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status this code maps to; 500 for unknown codes.
func (e *Error) Status() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a new Error that records an underlying cause (for logging,
// never exposed in the JSON body).
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// As extracts an *Error from err via errors.As, with an INTEGRITY_ERROR
// fallback for anything untyped: any error this module didn't itself
// originate surfaces as a 500.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeIntegrityError, Message: "unexpected internal error", cause: err}
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// body is the JSON shape written on the wire; kept separate from Error so
// the cause field never serializes.
type body struct {
	Error string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes err as a structured JSON error body with the status
// its code maps to.
func WriteJSON(w http.ResponseWriter, err error) {
	e := As(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	_ = json.NewEncoder(w).Encode(body{Error: string(e.Code), Message: e.Message})
}
