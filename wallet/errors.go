package wallet

import "fmt"

// InsufficientFundsError is returned when the spendable outputs at the
// funding address cannot cover the requested amount plus fee.
type InsufficientFundsError struct {
	Available int64
	Required  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %d available, %d required", e.Available, e.Required)
}

// ExceedsSizeError is returned before signing when a draft transaction
// violates one of the configured ledger limits.
type ExceedsSizeError struct {
	What  string
	Size  int
	Limit int
}

func (e *ExceedsSizeError) Error() string {
	return fmt.Sprintf("%s size %d exceeds ledger limit %d", e.What, e.Size, e.Limit)
}

// SubmissionError is returned when a signed transaction is rejected by
// the ledger or the submission request fails. The draft it wraps must
// be discarded; a retry has to rebuild from a fresh selection.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction submission failed: %s", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
