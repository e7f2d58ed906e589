// Package blob defines the flat key/value persistence contract the ledger
// saves its state through. Each key holds one JSON-encoded value written
// wholesale; there are no partial updates.
package blob

import "context"

// Well-known state keys.
const (
	KeyBankDeposits    = "bank_deposits"
	KeyLiquorItems     = "liquor_items"
	KeyOtherExpenses   = "other_expenses"
	KeyPreviousRecords = "previous_records"
	KeySalary          = "salary"
	KeyLocker          = "locker"
	KeyUsers           = "users"
)

// Store is the persistence adapter. Load reports found=false for a key that
// was never saved; callers fall back to their empty default.
type Store interface {
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
