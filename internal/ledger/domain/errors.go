package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 决定 API 层返回的状态码
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1 // 400
	KindInvariant                       // 400, 余额不变量被破坏
	KindConflict                        // 409
	KindNotFound                        // 404
)

// Reason 机器可读的错误原因
type Reason string

const (
	ReasonInvalid             Reason = "invalid"
	ReasonMissingField        Reason = "missing_field"
	ReasonInsufficientFunds   Reason = "insufficient_funds"
	ReasonCreditLimitExceeded Reason = "credit_limit_exceeded"
	ReasonInsufficientLots    Reason = "insufficient_lots"
	ReasonCurrencyMismatch    Reason = "currency_mismatch"
	ReasonSameItem            Reason = "same_item"
	ReasonPaymentInsufficient Reason = "payment_insufficient"
	ReasonNoScheduleDates     Reason = "no_schedule_dates"
	ReasonCannotSolve         Reason = "cannot_solve"
	ReasonReverseConflict     Reason = "reverse_conflict"
	ReasonNotFound            Reason = "not_found"
	ReasonInvalidReference    Reason = "invalid_reference"
	ReasonInvalidDate         Reason = "invalid_date"
	ReasonItemInactive        Reason = "item_inactive"
	ReasonDeleted             Reason = "deleted"
)

// Error 领域错误
type Error struct {
	Kind    ErrorKind
	Reason  Reason
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is 按 Reason 匹配，哨兵错误不带 Field 时忽略 Field
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason && (t.Field == "" || t.Field == e.Field)
}

// 哨兵错误，用于 errors.Is
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Reason: ReasonNotFound, Message: "not found"}
	ErrMissingField        = &Error{Kind: KindValidation, Reason: ReasonMissingField, Message: "field is required"}
	ErrInsufficientFunds   = &Error{Kind: KindInvariant, Reason: ReasonInsufficientFunds, Message: "insufficient funds"}
	ErrCreditLimitExceeded = &Error{Kind: KindInvariant, Reason: ReasonCreditLimitExceeded, Message: "credit limit exceeded"}
	ErrInsufficientLots    = &Error{Kind: KindInvariant, Reason: ReasonInsufficientLots, Message: "insufficient lots"}
	ErrCurrencyMismatch    = &Error{Kind: KindValidation, Reason: ReasonCurrencyMismatch, Message: "currency mismatch"}
	ErrSameItem            = &Error{Kind: KindValidation, Reason: ReasonSameItem, Message: "transfer sides must differ"}
	ErrPaymentInsufficient = &Error{Kind: KindValidation, Reason: ReasonPaymentInsufficient, Message: "payment does not cover interest"}
	ErrNoScheduleDates     = &Error{Kind: KindValidation, Reason: ReasonNoScheduleDates, Message: "schedule produced no dates"}
	ErrCannotSolve         = &Error{Kind: KindValidation, Reason: ReasonCannotSolve, Message: "cannot solve annuity payment"}
	ErrReverseConflict     = &Error{Kind: KindConflict, Reason: ReasonReverseConflict, Message: "reverse conflict"}
	ErrInvalidReference    = &Error{Kind: KindValidation, Reason: ReasonInvalidReference, Message: "invalid reference"}
	ErrInvalidDate         = &Error{Kind: KindValidation, Reason: ReasonInvalidDate, Message: "invalid date"}
	ErrItemInactive        = &Error{Kind: KindValidation, Reason: ReasonItemInactive, Message: "item is closed or archived"}
)

func newError(kind ErrorKind, reason Reason, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Invalid 通用参数错误
func Invalid(field, format string, args ...any) *Error {
	return newError(KindValidation, ReasonInvalid, field, format, args...)
}

// Validation 带原因的参数错误
func Validation(reason Reason, field, format string, args ...any) *Error {
	return newError(KindValidation, reason, field, format, args...)
}

// MissingField 缺少必填字段
func MissingField(field string) *Error {
	return newError(KindValidation, ReasonMissingField, field, "field is required")
}

func Invariant(reason Reason, format string, args ...any) *Error {
	return newError(KindInvariant, reason, "", format, args...)
}

func Conflict(reason Reason, format string, args ...any) *Error {
	return newError(KindConflict, reason, "", format, args...)
}

func NotFound(what string, id int64) *Error {
	return newError(KindNotFound, ReasonNotFound, "", "%s %d not found", what, id)
}

// KindOf 非领域错误返回 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ReasonOf 非领域错误返回空串
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
