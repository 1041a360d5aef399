package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Tx is the view of the store available inside a unit of work. Writes made
// through a Tx become visible to others only when the unit commits.
type Tx interface {
	// GetAccount returns errs.ErrNotFound for unknown ids.
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	// AccountNumberTaken reports whether an account with the number exists.
	AccountNumberTaken(ctx context.Context, number string) (bool, error)
	// CreateAccount inserts a new account at version 0.
	CreateAccount(ctx context.Context, a Account) (Account, error)
	// SaveAccount persists a only if the stored version still equals
	// expectedVersion, otherwise it fails with errs.ErrConcurrencyConflict.
	// The returned account carries the bumped version.
	SaveAccount(ctx context.Context, a Account, expectedVersion int64) (Account, error)
	AppendTransaction(ctx context.Context, t Transaction) (Transaction, error)
	ProjectExists(ctx context.Context, id uuid.UUID) (bool, error)

	ExistsSettlement(ctx context.Context, partnerID uuid.UUID, p Period) (bool, error)
	// InsertSettlement fails with errs.ErrDuplicate when the partner already
	// has a settlement for the period.
	InsertSettlement(ctx context.Context, s Settlement) (Settlement, error)
	// LockPeriod serializes settlement runs for p across processes until the
	// unit of work ends. Stores without shared state may treat it as a no-op.
	LockPeriod(ctx context.Context, p Period) error
}

// UnitOfWork runs fn atomically: either every write made through the Tx is
// committed or none is. A non-nil error from fn rolls the unit back and is
// returned unchanged.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}
