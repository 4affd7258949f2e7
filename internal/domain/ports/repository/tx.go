package repository

import "context"

// Tx is an opaque query-execution context. Concrete repositories accept a
// pgx.Tx, a pool connection, or nil (pool directly); passing anything else
// is a programming error surfaced as ErrInvalidExecContext.
type Tx = any

// NoTX documents call sites that intentionally run outside a transaction.
var NoTX Tx = nil

// TransactionManager runs fn inside one database transaction, rolling back
// when fn returns an error.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
