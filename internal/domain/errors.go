package domain

import "errors"

var (
	// ErrStoreReadFailed is returned when the chain tail or record range
	// could not be read from the persistence collaborator
	ErrStoreReadFailed = errors.New("STORE_READ_FAILED")

	// ErrStoreWriteFailed is returned when persisting a record failed;
	// the caller must not treat the record as appended
	ErrStoreWriteFailed = errors.New("STORE_WRITE_FAILED")

	// ErrTailConflict is returned when a conditional insert detected that
	// the partition tail moved between the read and the write. The append
	// path re-reads the tail and retries.
	ErrTailConflict = errors.New("chain tail moved")

	// ErrCryptoUnavailable is returned when the digest primitive or the
	// canonical serializer cannot operate on the input. The chain engine
	// never falls back to a weaker scheme.
	ErrCryptoUnavailable = errors.New("CRYPTO_UNAVAILABLE")

	// ErrIntegrityViolation indicates a recomputed hash mismatch found
	// during verification. Reported, never auto-repaired.
	ErrIntegrityViolation = errors.New("INTEGRITY_VIOLATION_DETECTED")

	// ErrVerificationFailed indicates the verification procedure itself
	// errored, which is distinct from a proven violation
	ErrVerificationFailed = errors.New("VERIFICATION_FAILED")

	// ErrUnbalancedJournal indicates a posting-engine mapping produced
	// rows whose debits and credits do not sum equal
	ErrUnbalancedJournal = errors.New("UNBALANCED_JOURNAL")

	// ErrComplianceDenied indicates the compliance gate rejected the
	// action before any append occurred
	ErrComplianceDenied = errors.New("COMPLIANCE_DENIED")

	// ErrSecurityViolation indicates the action tripped a prohibited
	// pattern in the operating model
	ErrSecurityViolation = errors.New("SECURITY_VIOLATION")

	// ErrPoolNotFound is returned when a pool does not exist
	ErrPoolNotFound = errors.New("pool not found")

	// ErrInvalidEventType is returned for event types outside the closed
	// enumeration
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrEmptyActor is returned when an append is attempted without an
	// actor identifier
	ErrEmptyActor = errors.New("actor id must not be empty")
)
