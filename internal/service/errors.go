package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrGenerationNotFound = errors.New("generation not found")
	ErrUnsupportedModel   = errors.New("unsupported model")
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// InsufficientCreditsError 余额不足，携带所需与可用积分
type InsufficientCreditsError struct {
	Needed    int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Needed, e.Available)
}

// StoreError wraps a database failure. GenerationID is set when a record already exists.
type StoreError struct {
	Op           string
	GenerationID uint
	Err          error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, id uint, err error) error {
	return &StoreError{Op: op, GenerationID: id, Err: err}
}
