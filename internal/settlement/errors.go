package settlement

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindPersistence       ErrorKind = "PERSISTENCE_ERROR"
	KindDuplicate         ErrorKind = "DUPLICATE_REQUEST"
)

type ErrorCode string

const (
	ErrCardInfoRequired       ErrorCode = "CARD_INFO_REQUIRED"
	ErrInvalidAmount          ErrorCode = "INVALID_AMOUNT"
	ErrDiscountExceedsNet     ErrorCode = "DISCOUNT_EXCEEDS_SUBTOTAL"
	ErrMethodInactive         ErrorCode = "PAYMENT_METHOD_INACTIVE"
	ErrSplitQuantity          ErrorCode = "SPLIT_QUANTITY_UNAVAILABLE"
	ErrSplitEmpty             ErrorCode = "SPLIT_BILL_EMPTY"
	ErrOrderNotFound          ErrorCode = "ORDER_NOT_FOUND"
	ErrPaymentNotFound        ErrorCode = "PAYMENT_NOT_FOUND"
	ErrMethodNotFound         ErrorCode = "PAYMENT_METHOD_NOT_FOUND"
	ErrSplitBillNotFound      ErrorCode = "SPLIT_BILL_NOT_FOUND"
	ErrOrderItemNotFound      ErrorCode = "ORDER_ITEM_NOT_FOUND"
	ErrPaymentNotPending      ErrorCode = "PAYMENT_NOT_PENDING"
	ErrPaymentNotApproved     ErrorCode = "PAYMENT_NOT_APPROVED"
	ErrOrderClosed            ErrorCode = "ORDER_CLOSED"
	ErrOrderNotCancellable    ErrorCode = "ORDER_NOT_CANCELLABLE"
	ErrOrderStatusBackwards   ErrorCode = "ORDER_STATUS_BACKWARDS"
	ErrSplitBillNotActive     ErrorCode = "SPLIT_BILL_NOT_ACTIVE"
	ErrTransactionFailed      ErrorCode = "TRANSACTION_FAILED"
	ErrRequestInFlight        ErrorCode = "REQUEST_IN_FLIGHT"
	ErrIdempotencyUnavailable ErrorCode = "IDEMPOTENCY_UNAVAILABLE"
)

// ErrNotFound is returned by stores when a row does not exist. The service
// turns it into a KindNotFound error with a specific code.
var ErrNotFound = errors.New("not found")

type Error struct {
	Kind    ErrorKind
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable is true for failures where the caller should rerun the whole
// operation.
func (e *Error) Retryable() bool {
	return e.Kind == KindPersistence
}

func newError(kind ErrorKind, code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Details: details}
}

func ValidationError(code ErrorCode, message string, details map[string]any) *Error {
	return newError(KindValidation, code, message, details)
}

func NotFoundError(code ErrorCode, message string) *Error {
	return newError(KindNotFound, code, message, nil)
}

func InvalidTransition(code ErrorCode, message string, details map[string]any) *Error {
	return newError(KindInvalidTransition, code, message, details)
}

func PersistenceError(err error) *Error {
	return &Error{Kind: KindPersistence, Code: ErrTransactionFailed, Message: "transaction aborted, retry the operation", Err: err}
}

func DuplicateError(code ErrorCode, message string) *Error {
	return newError(KindDuplicate, code, message, nil)
}

// AsError extracts a settlement error from err.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind reports whether err is a settlement error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	se, ok := AsError(err)
	return ok && se.Kind == kind
}

// asPersistence passes settlement errors through and wraps everything else.
func asPersistence(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	return PersistenceError(err)
}

func notFoundOr(err error, code ErrorCode, message string) error {
	if errors.Is(err, ErrNotFound) {
		return NotFoundError(code, message)
	}
	return err
}
