package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("duplicate")
	ErrTimeout             = errors.New("deadline exceeded")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAlreadyRegistered   = errors.New("already registered")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrProvisioningFailed  = errors.New("provisioning failed")
	ErrLedgerWriteFailed   = errors.New("ledger write failed")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidSelection    = errors.New("invalid garment selection")
	ErrTryOnPending        = errors.New("try-on already in flight")
)
