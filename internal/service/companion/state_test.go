package companion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	cases := []struct {
		from    State
		trigger Trigger
		to      State
		ok      bool
	}{
		{StateIdle, TriggerStart, StateRecording, true},
		{StateIdle, TriggerSubmit, StateResponding, true},
		{StateRecording, TriggerStop, StateFlushing, true},
		{StateRecording, TriggerCancel, StateIdle, true},
		{StateRecording, TriggerFail, StateIdle, true},
		{StateFlushing, TriggerTranscript, StateResponding, true},
		{StateFlushing, TriggerEmpty, StateIdle, true},
		{StateFlushing, TriggerFail, StateIdle, true},
		{StateResponding, TriggerSettled, StateIdle, true},

		{StateRecording, TriggerSubmit, "", false},
		{StateResponding, TriggerStart, "", false},
		{StateResponding, TriggerSubmit, "", false},
		{StateIdle, TriggerStop, "", false},
		{StateFlushing, TriggerStart, "", false},
	}
	for _, tc := range cases {
		to, ok := Next(tc.from, tc.trigger)
		assert.Equal(t, tc.ok, ok, "%s --%s-->", tc.from, tc.trigger)
		assert.Equal(t, tc.to, to, "%s --%s-->", tc.from, tc.trigger)
	}
}
