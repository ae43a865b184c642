// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import "errors"

var (
	// ErrInvalidOption is returned by SubmitAnswer for an out-of-range option index.
	// No state is changed.
	ErrInvalidOption = errors.New("invalid option")

	// ErrCorruptLedger indicates a ledger source that does not follow the layout,
	// or whose tally disagrees with its answer log.
	ErrCorruptLedger = errors.New("corrupt ledger")

	// ErrSealMismatch indicates the stored seal does not match the content.
	ErrSealMismatch = errors.New("seal mismatch: ledger has been tampered with")

	// ErrDuplicateVoterKey indicates the same anonymous key appears twice in the log.
	ErrDuplicateVoterKey = errors.New("duplicate voter key")

	// ErrRolledBack indicates the ledger is missing answers that an external
	// witness has already recorded.
	ErrRolledBack = errors.New("ledger is missing witnessed answers")

	// ErrPersistence wraps a failure to write the ledger during submission.
	ErrPersistence = errors.New("persist ledger")

	// ErrNotFound is returned by the registry for unknown poll names.
	ErrNotFound = errors.New("poll not found")
)

// IsIntegrityError reports whether err means the ledger must not be served.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrCorruptLedger) ||
		errors.Is(err, ErrSealMismatch) ||
		errors.Is(err, ErrDuplicateVoterKey) ||
		errors.Is(err, ErrRolledBack)
}
