package transfer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/database"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/transferconfig"
	"github.com/openvdm/openvdm-web/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	job     string
	payload any
}

type fakeDispatcher struct {
	mu        sync.Mutex
	submitted []submission
	asyncErr  error
	syncErr   error
	result    worker.JobResult
	timeouts  []time.Duration
}

func (f *fakeDispatcher) SubmitAsync(ctx context.Context, jobName string, payload any) (worker.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.asyncErr != nil {
		return "", f.asyncErr
	}
	f.submitted = append(f.submitted, submission{job: jobName, payload: payload})
	return worker.Handle("handle-" + jobName), nil
}

func (f *fakeDispatcher) SubmitSync(ctx context.Context, jobName string, payload any, timeout time.Duration) (worker.JobResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts = append(f.timeouts, timeout)
	if f.syncErr != nil {
		return worker.JobResult{}, f.syncErr
	}
	f.submitted = append(f.submitted, submission{job: jobName, payload: payload})
	return f.result, nil
}

func (f *fakeDispatcher) jobs() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission(nil), f.submitted...)
}

func setupService(t *testing.T, dispatcher worker.Dispatcher) (*Service, *database.Database) {
	t.Helper()
	db, err := database.Initialize(t.Context(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	settings := func() Settings {
		return Settings{SiteRoot: "http://openvdm.ship/", SyncTimeout: 30 * time.Second}
	}
	return NewService(db, dispatcher, settings), db
}

func localForm(name string) transferconfig.Fields {
	return transferconfig.Fields{
		"name":         name,
		"longName":     name + " system",
		"transferType": "1",
		"sourceDir":    "/mnt/" + name,
		"destDir":      name,
	}
}

// idleTransfer creates an enabled, idle collection system transfer.
func idleTransfer(t *testing.T, svc *Service, name string) types.Transfer {
	t.Helper()
	tr, err := svc.Create(types.KindCollectionSystem, localForm(name))
	require.NoError(t, err)
	tr, err = svc.Enable(tr.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusIdle, tr.Status)
	return tr
}

func TestCreateAnonymousRsync(t *testing.T) {
	svc, db := setupService(t, &fakeDispatcher{})

	form := transferconfig.Fields{
		"name":         "SCS",
		"longName":     "Scientific Computing System",
		"transferType": "2",
		"sourceDir":    "/data",
		"destDir":      "SCS",
		"rsyncServer":  "scs.ship",
		"rsyncUser":    "anonymous",
		"smbServer":    "//leftover/share",
		"sshServer":    "leftover.ship",
	}

	created, err := svc.Create(types.KindCollectionSystem, form)
	require.NoError(t, err)

	stored, err := db.GetTransfer(created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TransferTypeRsyncServer, stored.TransferType)
	assert.Equal(t, "anonymous", stored.RsyncUser)
	assert.Empty(t, stored.SMBServer)
	assert.Empty(t, stored.SSHServer)
	assert.Equal(t, types.StatusDisabled, stored.Status)
	assert.False(t, stored.Enable)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, _ := setupService(t, &fakeDispatcher{})

	_, err := svc.Create(types.KindCollectionSystem, localForm("EM302"))
	require.NoError(t, err)

	form := localForm("EM302")
	form["bandwidthLimit"] = "1.5"
	_, err = svc.Create(types.KindCollectionSystem, form)

	var verr *errtypes.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := verr.Fields()
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "bandwidthLimit")
}

func TestUpdateKeepsLifecycle(t *testing.T) {
	svc, _ := setupService(t, &fakeDispatcher{})
	tr := idleTransfer(t, svc, "Knudsen")

	form := localForm("Knudsen")
	form["longName"] = "Knudsen Echosounder"
	updated, err := svc.Update(types.KindCollectionSystem, tr.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "Knudsen Echosounder", updated.LongName)
	assert.Equal(t, types.StatusIdle, updated.Status)
	assert.True(t, updated.Enable)

	_, err = svc.Update(types.KindCruiseData, tr.ID, form)
	var nf errtypes.IsNotFound
	assert.ErrorAs(t, err, &nf, "transfer ids are scoped by kind")
}

func TestRunFromDisabledIsRejected(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupService(t, dispatcher)

	tr, err := svc.Create(types.KindCollectionSystem, localForm("Gravimeter"))
	require.NoError(t, err)

	_, _, err = svc.Run(context.Background(), tr.ID)
	var conflict errtypes.IsConflict
	assert.ErrorAs(t, err, &conflict)
	assert.Empty(t, dispatcher.jobs())

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDisabled, stored.Status)
}

func TestRunSubmitsJob(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupService(t, dispatcher)
	tr := idleTransfer(t, svc, "CTD")

	running, handle, err := svc.Run(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, worker.Handle("handle-runCollectionSystemTransfer"), handle)
	assert.Equal(t, types.StatusRunning, running.Status)

	jobs := dispatcher.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, worker.JobRunCollectionSystemTransfer, jobs[0].job)
	payload, ok := jobs[0].payload.(worker.TransferPayload)
	require.True(t, ok)
	require.NotNil(t, payload.CollectionSystemTransfer)
	assert.Equal(t, "CTD", payload.CollectionSystemTransfer.Name)
	assert.Nil(t, payload.CruiseDataTransfer)
	assert.Equal(t, "http://openvdm.ship/", payload.SiteRoot)

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, stored.Status)

	_, _, err = svc.Run(context.Background(), tr.ID)
	var conflict errtypes.IsConflict
	assert.ErrorAs(t, err, &conflict, "a second run while running is refused")
	assert.Len(t, dispatcher.jobs(), 1, "no second job is dispatched")
}

func TestConcurrentRunsDispatchOnce(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, _ := setupService(t, dispatcher)
	tr := idleTransfer(t, svc, "Winch")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, conflicts int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Run(context.Background(), tr.ID)
			mu.Lock()
			defer mu.Unlock()
			var conflict errtypes.IsConflict
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &conflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, conflicts)
	assert.Len(t, dispatcher.jobs(), 1)
}

func TestRunWithUnreachableWorkerLeavesStatus(t *testing.T) {
	client := worker.NewClient(worker.StaticEndpoint(worker.Endpoint{
		Network:     "unix",
		Address:     filepath.Join(t.TempDir(), "missing.sock"),
		DialTimeout: time.Second,
	}), nil)
	svc, db := setupService(t, client)
	tr := idleTransfer(t, svc, "ADCP")

	_, _, err := svc.Run(context.Background(), tr.ID)
	var dispatch *errtypes.DispatchError
	require.ErrorAs(t, err, &dispatch)
	assert.Equal(t, worker.JobRunCollectionSystemTransfer, dispatch.JobName)

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, stored.Status)
	assert.Zero(t, stored.PID)
}

func TestStop(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupService(t, dispatcher)
	tr := idleTransfer(t, svc, "Sonar")

	_, err := svc.Stop(context.Background(), tr.ID)
	var conflict errtypes.IsConflict
	assert.ErrorAs(t, err, &conflict)

	_, _, err = svc.Run(context.Background(), tr.ID)
	require.NoError(t, err)
	_, err = svc.MarkRunning(tr.ID, 4410)
	require.NoError(t, err)

	stopped, err := svc.Stop(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, stopped.Status)
	assert.Zero(t, stopped.PID)

	jobs := dispatcher.jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, worker.JobStop, jobs[1].job)
	assert.Equal(t, worker.StopJobPayload{PID: 4410, TransferID: tr.ID, Kind: types.KindCollectionSystem}, jobs[1].payload)

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, stored.Status)
	assert.Zero(t, stored.PID)
}

func TestStopWithUnreachableWorkerKeepsPID(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupService(t, dispatcher)
	tr := idleTransfer(t, svc, "Met")

	_, _, err := svc.Run(context.Background(), tr.ID)
	require.NoError(t, err)
	_, err = svc.MarkRunning(tr.ID, 77)
	require.NoError(t, err)

	dispatcher.asyncErr = &errtypes.DispatchError{JobName: worker.JobStop, Err: errors.New("connection refused")}
	_, err = svc.Stop(context.Background(), tr.ID)
	var dispatch errtypes.IsDispatch
	assert.ErrorAs(t, err, &dispatch)

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, stored.Status)
	assert.Equal(t, 77, stored.PID)
}

func TestReenabledLiveJobCannotRunAgain(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupService(t, dispatcher)
	tr := idleTransfer(t, svc, "Gravimeter")

	_, _, err := svc.Run(context.Background(), tr.ID)
	require.NoError(t, err)
	_, err = svc.MarkRunning(tr.ID, 4410)
	require.NoError(t, err)

	_, err = svc.Disable(tr.ID)
	require.NoError(t, err)
	reenabled, err := svc.Enable(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRunning, reenabled.Status)
	assert.Equal(t, 4410, reenabled.PID)

	_, _, err = svc.Run(context.Background(), tr.ID)
	var conflict errtypes.IsConflict
	assert.ErrorAs(t, err, &conflict)
	assert.Len(t, dispatcher.jobs(), 1)

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 4410, stored.PID)

	stopped, err := svc.Stop(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, stopped.Status)
	jobs := dispatcher.jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, worker.StopJobPayload{PID: 4410, TransferID: tr.ID, Kind: types.KindCollectionSystem}, jobs[1].payload)
}

type fakePendingRuns struct {
	mu       sync.Mutex
	canceled []int64
}

func (f *fakePendingRuns) Cancel(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	return true
}

func TestStopAndDisableCancelQueuedRuns(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, _ := setupService(t, dispatcher)
	pending := &fakePendingRuns{}
	svc.SetPendingRuns(pending)
	tr := idleTransfer(t, svc, "Thermosalinograph")

	_, _, err := svc.Run(context.Background(), tr.ID)
	require.NoError(t, err)
	_, err = svc.Stop(context.Background(), tr.ID)
	require.NoError(t, err)
	_, err = svc.Disable(tr.ID)
	require.NoError(t, err)

	assert.Equal(t, []int64{tr.ID, tr.ID}, pending.canceled)
}

func TestRunWithCanceledContextSubmitsNothing(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupService(t, dispatcher)
	tr := idleTransfer(t, svc, "CTD")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := svc.Run(ctx, tr.ID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dispatcher.jobs())

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, stored.Status)
}

func TestCompletion(t *testing.T) {
	svc, _ := setupService(t, &fakeDispatcher{})

	pass := worker.JobResult{Parts: []worker.Part{
		{Name: "Transfer Files", Result: worker.PartFail},
		{Name: "Final Verdict", Result: worker.PartPass},
	}}
	fail := worker.JobResult{Parts: []worker.Part{{Name: "Final Verdict", Result: worker.PartFail}}}

	t.Run("pass settles to idle", func(t *testing.T) {
		tr := idleTransfer(t, svc, "Pass")
		_, _, err := svc.Run(context.Background(), tr.ID)
		require.NoError(t, err)

		done, v, err := svc.Complete(tr.ID, pass)
		require.NoError(t, err)
		assert.True(t, v.OverallPass)
		assert.Equal(t, types.StatusIdle, done.Status)
	})

	t.Run("fail sets error", func(t *testing.T) {
		tr := idleTransfer(t, svc, "Fail")
		_, _, err := svc.Run(context.Background(), tr.ID)
		require.NoError(t, err)
		_, err = svc.MarkRunning(tr.ID, 12)
		require.NoError(t, err)

		done, v, err := svc.Complete(tr.ID, fail)
		require.NoError(t, err)
		assert.False(t, v.OverallPass)
		assert.Equal(t, types.StatusError, done.Status)
		assert.Zero(t, done.PID)

		_, _, err = svc.Run(context.Background(), tr.ID)
		assert.NoError(t, err, "a transfer in error can be run again")
	})

	t.Run("disabled while running settles to disabled", func(t *testing.T) {
		tr := idleTransfer(t, svc, "Disabled")
		_, _, err := svc.Run(context.Background(), tr.ID)
		require.NoError(t, err)
		_, err = svc.MarkRunning(tr.ID, 55)
		require.NoError(t, err)

		disabled, err := svc.Disable(tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 55, disabled.PID)

		done, err := svc.MarkIdle(tr.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusDisabled, done.Status)
		assert.Zero(t, done.PID)
	})
}

func TestTestDoesNotChangeStatus(t *testing.T) {
	dispatcher := &fakeDispatcher{result: worker.JobResult{Parts: []worker.Part{
		{Name: "Source Directory", Result: worker.PartFail},
		{Name: "Final Verdict", Result: worker.PartFail},
	}}}
	svc, db := setupService(t, dispatcher)
	tr := idleTransfer(t, svc, "Test")

	v, err := svc.Test(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.False(t, v.OverallPass)
	assert.Equal(t, []time.Duration{30 * time.Second}, dispatcher.timeouts)

	jobs := dispatcher.jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, worker.JobTestCollectionSystemTransfer, jobs[0].job)

	stored, err := db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, stored.Status)

	dispatcher.syncErr = &errtypes.TimeoutError{JobName: worker.JobTestCollectionSystemTransfer, Err: context.DeadlineExceeded}
	_, err = svc.Test(context.Background(), tr.ID)
	var timeout errtypes.IsTimeout
	assert.ErrorAs(t, err, &timeout)

	stored, err = db.GetTransfer(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, stored.Status, "a timed out test changes nothing")
}

func TestDelete(t *testing.T) {
	svc, db := setupService(t, &fakeDispatcher{})

	ssdw, err := db.GetTransferByName(types.KindCruiseData, "SSDW")
	require.NoError(t, err)
	var conflict errtypes.IsConflict
	assert.ErrorAs(t, svc.Delete(types.KindCruiseData, ssdw.ID), &conflict)

	tr := idleTransfer(t, svc, "Busy")
	_, _, err = svc.Run(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.ErrorAs(t, svc.Delete(types.KindCollectionSystem, tr.ID), &conflict)

	_, err = svc.Stop(context.Background(), tr.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(types.KindCollectionSystem, tr.ID))

	_, err = db.GetTransfer(tr.ID)
	assert.ErrorIs(t, err, database.ErrTransferNotFound)
}
