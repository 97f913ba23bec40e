package orchestrator

import "fmt"

// ValidationError aborts a leg before any external state changes: wrong
// network, insufficient balance, missing wallet capability. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TimeoutError escalates an exhausted polling budget. It names the attempt
// count and the last observed state so the operator can tell a slow
// service from a dead one.
type TimeoutError struct {
	Operation string
	Attempts  int
	LastState string
}

func (e *TimeoutError) Error() string {
	if e.LastState == "" {
		return fmt.Sprintf("%s timed out after %d attempts", e.Operation, e.Attempts)
	}
	return fmt.Sprintf("%s timed out after %d attempts (last state: %s)", e.Operation, e.Attempts, e.LastState)
}

// RevertError surfaces an on-chain failure as-is. Never retried
// automatically: resubmitting a reverted batch risks double execution.
type RevertError struct {
	TxHash string
	Err    error
}

func (e *RevertError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transaction %s reverted: %v", e.TxHash, e.Err)
	}
	return fmt.Sprintf("transaction %s reverted", e.TxHash)
}

func (e *RevertError) Unwrap() error { return e.Err }

// HandoffError marks a failure in a later leg of a multi-leg operation.
// The earlier leg's funds stay wherever the chain left them; no rollback
// or resumption state exists, the user resumes manually.
type HandoffError struct {
	Stage string
	Err   error
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("cross-chain handoff failed at %s: %v (earlier leg is confirmed and will not be rolled back)", e.Stage, e.Err)
}

func (e *HandoffError) Unwrap() error { return e.Err }
