// Package flow drives the quote-request lifecycle of a thread: the state
// machine that decides what happens next, and the processor that executes it.
package flow

import "quotedesk/internal"

// Decision is the outcome of one state-machine step. Supersede is set when
// a fresh complete request arrives on an already-quoted thread and replaces
// the previously stored one instead of merging into it.
type Decision struct {
	Next      internal.ThreadState
	Action    internal.Action
	Supersede bool
}

// Next computes the transition for a (current state, intent, extraction
// completeness) triple. It never advances past complete by itself: reaching
// quoted requires the processor to actually produce a price, and a pricing
// failure leaves the thread at complete flagged for manual handling.
func Next(state internal.ThreadState, intent internal.Intent, complete bool) Decision {
	if intent == internal.IntentUnrelated {
		return Decision{Next: state, Action: internal.ActionNone}
	}

	switch state {
	case internal.StateClosed:
		return Decision{Next: state, Action: internal.ActionNone}

	case internal.StateIncomplete, internal.StateInfoRequested:
		if complete {
			return Decision{Next: internal.StateComplete, Action: internal.ActionGenerateQuote}
		}
		return Decision{Next: internal.StateInfoRequested, Action: internal.ActionRequestInfo}

	case internal.StateComplete:
		return Decision{Next: internal.StateComplete, Action: internal.ActionGenerateQuote}

	case internal.StateQuoted:
		switch intent {
		case internal.IntentDuplicate:
			return Decision{Next: internal.StateQuoted, Action: internal.ActionSuppressReply}
		case internal.IntentNewRequest:
			if complete {
				return Decision{Next: internal.StateComplete, Action: internal.ActionGenerateQuote, Supersede: true}
			}
		}
		return Decision{Next: internal.StateQuoted, Action: internal.ActionNone}
	}

	return Decision{Next: state, Action: internal.ActionNone}
}
