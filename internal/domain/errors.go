package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmptyProfileID  = errors.New("empty profile id")
)

// ошибки валидации полей профиля
var (
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDateRange   = errors.New("departure date is after return date")
	ErrInvalidCountryCode = errors.New("invalid country code")
	ErrInvalidValue       = errors.New("invalid value")
)

var (
	ErrNoTravelerCount  = errors.New("adults and children count must be at least 1")
	ErrTooManyTravelers = errors.New("too many travelers")
)

var (
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrNoQuote             = errors.New("no quote available")
	ErrStageLocked         = errors.New("stage is locked")
)

// FieldError - отказ по конкретному полю из пачки обновлений
type FieldError struct {
	Path  string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func newFieldError(path string, value any, err error) *FieldError {
	return &FieldError{Path: path, Value: value, Err: err}
}
