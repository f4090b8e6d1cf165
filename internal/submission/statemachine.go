package submission

import (
	"fmt"

	dErrors "scholar/pkg/domain-errors"
)

// transitions is the explicit, exhaustive transition table. Anything not
// listed here is illegal by construction.
// under_review -> submitted covers a revision arriving mid-review: the new
// version re-enters the queue and the old version's reviews no longer count.
var transitions = map[Status][]Status{
	StatusDraft:             {StatusSubmitted},
	StatusSubmitted:         {StatusUnderReview},
	StatusUnderReview:       {StatusPublished, StatusRevisionRequested, StatusRejected, StatusSubmitted},
	StatusRevisionRequested: {StatusSubmitted},
	StatusPublished:         {},
	StatusRejected:          {},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the work to the target status, rejecting illegal moves.
func (w *Work) Transition(to Status) error {
	if !CanTransition(w.Status, to) {
		return dErrors.New(dErrors.CodeWrongState,
			fmt.Sprintf("cannot move work from %s to %s", w.Status, to))
	}
	w.Status = to
	return nil
}

// reviewableStatuses are the statuses in which new reviews are accepted.
var reviewableStatuses = map[Status]bool{
	StatusSubmitted:   true,
	StatusUnderReview: true,
}

// CanAcceptReview reports whether the work currently accepts reviews.
func (w *Work) CanAcceptReview() bool {
	return reviewableStatuses[w.Status]
}

// revisableStatuses are the statuses from which the author may submit a
// revision. A revision always lands the work back in submitted.
var revisableStatuses = map[Status]bool{
	StatusSubmitted:         true,
	StatusUnderReview:       true,
	StatusRevisionRequested: true,
}

// CanRevise reports whether the work may be revised.
func (w *Work) CanRevise() bool {
	return revisableStatuses[w.Status]
}
