// Package ledger persists the set of items that were published, so a
// scheduled run never selects the same item twice.
package ledger

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/dailyuploadflow/internal/models"
)

// Ledger is the durable record of processed item IDs.
//
// Implementations must not cache contents between calls: every read
// reflects the latest committed state, including writes by other processes.
type Ledger interface {
	Contains(ctx context.Context, id string) (bool, error)
	Commit(ctx context.Context, entry models.LedgerEntry) error
	Count(ctx context.Context) (int, error)
	All(ctx context.Context) (map[string]models.LedgerEntry, error)
}

// CorruptError reports a ledger store that exists but cannot be read or
// decoded. File ledgers recover from it by starting empty.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("ledger %s is unreadable: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }
