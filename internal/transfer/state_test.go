package transfer

import (
	"testing"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, tr types.Transfer, e Event) types.Transfer {
	t.Helper()
	patch, err := Transition(tr, e)
	require.NoError(t, err)
	return patch.Apply(tr)
}

func TestEnableIsIdempotent(t *testing.T) {
	tr := types.Transfer{Name: "SCS", Status: types.StatusDisabled}

	once := apply(t, tr, EventEnable)
	twice := apply(t, once, EventEnable)

	assert.Equal(t, types.StatusIdle, once.Status)
	assert.True(t, once.Enable)
	assert.Equal(t, once, twice)
}

func TestEnableKeepsLiveStatus(t *testing.T) {
	for _, status := range []types.Status{types.StatusRunning, types.StatusError, types.StatusIdle} {
		t.Run(status.String(), func(t *testing.T) {
			got := apply(t, types.Transfer{Status: status, PID: 7}, EventEnable)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, 7, got.PID)
			assert.True(t, got.Enable)
		})
	}
}

func TestDisableFromAnyState(t *testing.T) {
	for _, status := range []types.Status{types.StatusRunning, types.StatusIdle, types.StatusError, types.StatusDisabled} {
		t.Run(status.String(), func(t *testing.T) {
			got := apply(t, types.Transfer{Status: status, Enable: true, PID: 31}, EventDisable)
			assert.Equal(t, types.StatusDisabled, got.Status)
			assert.False(t, got.Enable)
			assert.Equal(t, 31, got.PID, "disabling does not stop the live job")
		})
	}
}

func TestRunTransitions(t *testing.T) {
	tests := []struct {
		from     types.Status
		conflict bool
	}{
		{types.StatusIdle, false},
		{types.StatusError, false},
		{types.StatusDisabled, true},
		{types.StatusRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			tr := types.Transfer{Name: "SCS", Status: tt.from, Enable: tt.from != types.StatusDisabled}
			patch, err := Transition(tr, EventRun)
			if tt.conflict {
				var conflict errtypes.IsConflict
				assert.ErrorAs(t, err, &conflict)
				assert.True(t, patch.Empty())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, types.StatusRunning, patch.Apply(tr).Status)
		})
	}
}

func TestStopTransitions(t *testing.T) {
	got := apply(t, types.Transfer{Status: types.StatusRunning, Enable: true, PID: 4410}, EventStop)
	assert.Equal(t, types.StatusIdle, got.Status)
	assert.Zero(t, got.PID)

	got = apply(t, types.Transfer{Status: types.StatusDisabled, PID: 4410}, EventStop)
	assert.Equal(t, types.StatusDisabled, got.Status, "a job left running after disable can still be stopped")
	assert.Zero(t, got.PID)

	_, err := Transition(types.Transfer{Status: types.StatusIdle, Enable: true}, EventStop)
	var conflict errtypes.IsConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestWorkerReports(t *testing.T) {
	running := types.Transfer{Status: types.StatusIdle, Enable: true}
	running = apply(t, running, EventRun)
	running = apply(t, running, EventStarted(981))
	assert.Equal(t, types.StatusRunning, running.Status)
	assert.Equal(t, 981, running.PID)

	done := apply(t, running, EventSucceeded)
	assert.Equal(t, types.StatusIdle, done.Status)
	assert.Zero(t, done.PID)

	failed := apply(t, running, EventFailed)
	assert.Equal(t, types.StatusError, failed.Status)
	assert.Zero(t, failed.PID)

	disabledMidRun := apply(t, running, EventDisable)
	settled := apply(t, disabledMidRun, EventSucceeded)
	assert.Equal(t, types.StatusDisabled, settled.Status)
	assert.Zero(t, settled.PID)

	stale := apply(t, types.Transfer{Status: types.StatusIdle, Enable: true, PID: 5}, EventFailed)
	assert.Equal(t, types.StatusIdle, stale.Status, "a report for a job no longer tracked only clears the pid")
	assert.Zero(t, stale.PID)
}

func TestEnableRestoresLiveJob(t *testing.T) {
	disabled := types.Transfer{Name: "SCS", Status: types.StatusDisabled, PID: 4410}

	got := apply(t, disabled, EventEnable)
	assert.Equal(t, types.StatusRunning, got.Status)
	assert.Equal(t, 4410, got.PID)
	assert.True(t, got.Enable)
}

func TestRunRefusedWhileJobIsLive(t *testing.T) {
	for _, status := range []types.Status{types.StatusIdle, types.StatusError} {
		t.Run(status.String(), func(t *testing.T) {
			patch, err := Transition(types.Transfer{Name: "SCS", Status: status, Enable: true, PID: 12}, EventRun)
			var conflict errtypes.IsConflict
			assert.ErrorAs(t, err, &conflict)
			assert.True(t, patch.Empty())
		})
	}
}
