package services

import (
	"errors"
	"net/http"
)

// Kind is the error class callers map to a response.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindNotFound
	KindUnprocessed
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUnprocessed:
		return "UNPROCESSED"
	default:
		return "SYSTEM_ERROR"
	}
}

// HTTPStatus is the status code the outer layer renders for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnprocessed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by every service operation. Detail is safe to show to
// clients; Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind and code so wrapped copies compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Code == e.Code
}

// ClientMessage is the message rendered to callers.
func (e *Error) ClientMessage() string {
	if e.Kind == KindSystem || e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

func (e *Error) Wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrMissingField        = &Error{Kind: KindBadRequest, Code: "MISSING_MANDATORY_FIELD", Message: "a mandatory field is missing"}
	ErrInvalidField        = &Error{Kind: KindBadRequest, Code: "INVALID_FIELD", Message: "a field has an invalid value"}
	ErrInvalidAmount       = &Error{Kind: KindBadRequest, Code: "INVALID_AMOUNT", Message: "amount must be positive with at most 6 decimals"}
	ErrDuplicateRequest    = &Error{Kind: KindBadRequest, Code: "DUPLICATE_REQUEST", Message: "request id has already been used"}
	ErrNotSigned           = &Error{Kind: KindUnprocessed, Code: "NOT_SIGNED", Message: "signing request was not signed"}
	ErrMismatchedLegs      = &Error{Kind: KindBadRequest, Code: "MISMATCHED_REFERENCES", Message: "references do not belong to the same payment"}
	ErrUserNotFound        = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrAccountNotFound     = &Error{Kind: KindNotFound, Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
	ErrRecordNotFound      = &Error{Kind: KindNotFound, Code: "PAYMENT_NOT_FOUND", Message: "payment not found"}
	ErrInsufficientBalance = &Error{Kind: KindUnprocessed, Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance"}
	ErrLedgerAccountAbsent = &Error{Kind: KindUnprocessed, Code: "LEDGER_ACCOUNT_NOT_FOUND", Message: "address is not funded on the ledger"}
	ErrLedgerRejected      = &Error{Kind: KindUnprocessed, Code: "LEDGER_REJECTED", Message: "ledger rejected the transaction"}
	ErrPaymentLegFailed    = &Error{Kind: KindUnprocessed, Code: "PAYMENT_LEG_FAILED", Message: "payment leg was rejected by the ledger"}
	ErrSigningFailed       = &Error{Kind: KindUnprocessed, Code: "SIGNING_FAILED", Message: "signing provider could not process the request"}
	ErrAlreadyProcessed    = &Error{Kind: KindUnprocessed, Code: "ALREADY_PROCESSED", Message: "payment has already been processed"}
	ErrConcurrentUpdate    = &Error{Kind: KindUnprocessed, Code: "CONCURRENT_UPDATE", Message: "balance changed concurrently, retry the request"}
	ErrSystem              = &Error{Kind: KindSystem, Code: "SYSTEM_ERROR", Message: "internal error"}
)

// SystemError wraps an unexpected failure. Service errors pass through as is.
func SystemError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return ErrSystem.Wrap(err)
}

// AsError extracts the service error, classifying anything else as system.
func AsError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return ErrSystem.Wrap(err)
}
