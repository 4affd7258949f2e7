package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrOperationFailed      = errors.New("operation failed")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
	ErrInvalidExecContext   = errors.New("invalid query execution context")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrUpstreamFetch        = errors.New("payment processor fetch failed")
	ErrAmountMismatch       = errors.New("transaction amount does not match")
	ErrTransactionNotOpen   = errors.New("transaction is not pending")
	ErrInsufficientBalance  = errors.New("insufficient commission balance")
	ErrLockBusy             = errors.New("resource is locked by another operation")
	ErrRaffleClosed         = errors.New("raffle is not accepting entries")
)
