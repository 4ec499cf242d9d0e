package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMalformedInput marks input that could not be parsed or is out of
	// range, such as a corpus line or a classifier response.
	// The whole file read is aborted.
	ErrMalformedInput = errors.New("malformed input")
	// ErrMissingField marks an article that lacks a field the tagger needs.
	// Recoverable per article.
	ErrMissingField = errors.New("missing field")
	// ErrLedgerWrite marks a durability failure in the processed-set ledger.
	// Fatal for the run.
	ErrLedgerWrite = errors.New("ledger write failed")
	// ErrOutputWrite marks a failed append to the output log. Fatal for the run.
	ErrOutputWrite = errors.New("output log write failed")
	// ErrTransfer marks a failed download or upload against the object store.
	ErrTransfer = errors.New("transfer failed")
	// ErrAlignment marks per-sentence annotation sequences of unequal length.
	ErrAlignment = errors.New("sentence annotations misaligned")
)
