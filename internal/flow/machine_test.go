package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quotedesk/internal"
)

func TestNextTransitions(t *testing.T) {
	cases := []struct {
		name     string
		state    internal.ThreadState
		intent   internal.Intent
		complete bool
		want     Decision
	}{
		{
			name:  "first message missing fields asks for info",
			state: internal.StateIncomplete, intent: internal.IntentNewRequest, complete: false,
			want: Decision{Next: internal.StateInfoRequested, Action: internal.ActionRequestInfo},
		},
		{
			name:  "first message with everything goes straight to pricing",
			state: internal.StateIncomplete, intent: internal.IntentNewRequest, complete: true,
			want: Decision{Next: internal.StateComplete, Action: internal.ActionGenerateQuote},
		},
		{
			name:  "follow-up fills the gaps",
			state: internal.StateInfoRequested, intent: internal.IntentFollowUp, complete: true,
			want: Decision{Next: internal.StateComplete, Action: internal.ActionGenerateQuote},
		},
		{
			name:  "follow-up still missing fields re-asks",
			state: internal.StateInfoRequested, intent: internal.IntentFollowUp, complete: false,
			want: Decision{Next: internal.StateInfoRequested, Action: internal.ActionRequestInfo},
		},
		{
			name:  "duplicate after quote is suppressed",
			state: internal.StateQuoted, intent: internal.IntentDuplicate, complete: false,
			want: Decision{Next: internal.StateQuoted, Action: internal.ActionSuppressReply},
		},
		{
			name:  "new complete ask on quoted thread starts a fresh cycle",
			state: internal.StateQuoted, intent: internal.IntentNewRequest, complete: true,
			want: Decision{Next: internal.StateComplete, Action: internal.ActionGenerateQuote, Supersede: true},
		},
		{
			name:  "plain follow-up on quoted thread does nothing",
			state: internal.StateQuoted, intent: internal.IntentFollowUp, complete: false,
			want: Decision{Next: internal.StateQuoted, Action: internal.ActionNone},
		},
		{
			name:  "unrelated never moves the thread",
			state: internal.StateInfoRequested, intent: internal.IntentUnrelated, complete: true,
			want: Decision{Next: internal.StateInfoRequested, Action: internal.ActionNone},
		},
		{
			name:  "closed is terminal",
			state: internal.StateClosed, intent: internal.IntentNewRequest, complete: true,
			want: Decision{Next: internal.StateClosed, Action: internal.ActionNone},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Next(tc.state, tc.intent, tc.complete)
			assert.Equal(t, tc.want, got)
		})
	}
}
