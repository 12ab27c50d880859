package ledger

import "errors"

var (
	// ErrEntryNotFound is returned when no ledger entry matches
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrNotPending is returned when updating an entry that already reached a terminal status
	ErrNotPending = errors.New("ledger entry is not pending")

	// ErrDuplicateRef is returned when an external transfer reference was already recorded
	ErrDuplicateRef = errors.New("external reference already recorded")

	// ErrInvariantViolated is returned when balance_after != balance_before + amount
	ErrInvariantViolated = errors.New("ledger balance invariant violated")
)
