package domain

import "errors"

// Sentinel errors for the import pipeline. Callers test these with errors.Is;
// wrapping sites add context with fmt.Errorf("%w", ...).
var (
	// ErrNotFound indicates the requested job, row, or contact does not exist
	// (or belongs to a different owner).
	ErrNotFound = errors.New("record not found")

	// ErrInvalidStateTransition indicates a job status write that is not an
	// edge in the transition table.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrRowNotAwaitingReview indicates a decision was submitted for a row
	// that has nothing to decide, or whose job is not pending_review.
	ErrRowNotAwaitingReview = errors.New("row not awaiting review")

	// ErrInvalidDecision indicates an unknown decision value or decision
	// arguments that contradict each other (e.g. overwrite fields on skip).
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrOverwriteNotSubset indicates overwrite fields that are not contained
	// in the row's conflict fields.
	ErrOverwriteNotSubset = errors.New("overwrite fields not a subset of conflict fields")

	// ErrPendingDecisionsRemain indicates execute was called while rows still
	// await review.
	ErrPendingDecisionsRemain = errors.New("pending decisions remain")

	// ErrJobNotPendingReview indicates execute was called on a job that is not
	// in pending_review (including re-execution of a processing/completed job).
	ErrJobNotPendingReview = errors.New("job not pending review")

	// ErrJobProcessing indicates a delete was requested while the job is
	// executing.
	ErrJobProcessing = errors.New("job is processing")
)
