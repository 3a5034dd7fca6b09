package domain

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRiskProfileMissing  = errors.New("user risk profile missing")
	ErrRiskNotAssessed     = errors.New("asset risk not assessed")
	ErrStalePrice          = errors.New("stale price")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrAssetInactive       = errors.New("asset inactive")
	ErrDomainInactive      = errors.New("domain inactive")
	ErrTransferCompleted   = errors.New("transfer already completed")
	ErrOrderInactive       = errors.New("stop-loss order inactive")
	ErrEmergencyStop       = errors.New("emergency stop active")
	ErrPaused              = errors.New("ledger paused")
	ErrRateLimited         = errors.New("rate limited")
	ErrLockHeld            = errors.New("lock already held")
)
