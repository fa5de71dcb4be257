package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/syslog"
	"github.com/openvdm/openvdm-web/internal/transferconfig"
	"github.com/openvdm/openvdm-web/internal/verdict"
	"github.com/openvdm/openvdm-web/internal/worker"
)

// Store is the persistence the service needs.
type Store interface {
	GetTransfer(id int64) (types.Transfer, error)
	GetTransferByName(kind types.TransferKind, name string) (types.Transfer, error)
	GetAllTransfers(filter types.TransferFilter) ([]types.Transfer, error)
	CreateTransfer(tx *sql.Tx, t types.Transfer) (int64, error)
	UpdateTransfer(tx *sql.Tx, t types.Transfer) error
	PatchTransfer(tx *sql.Tx, id int64, patch types.TransferPatch) error
	DeleteTransfer(tx *sql.Tx, id int64) error
	GetWarehouse() (types.Warehouse, error)
}

// PendingRuns holds run requests that were queued for a transfer but not
// yet submitted to the worker pool.
type PendingRuns interface {
	Cancel(id int64) bool
}

type Settings struct {
	SiteRoot    string
	SyncTimeout time.Duration
}

// Service applies user actions and worker reports to transfers. Every
// change to one transfer, including the job dispatch it triggers, happens
// under that transfer's lock.
type Service struct {
	db         Store
	dispatcher worker.Dispatcher
	settings   func() Settings
	locks      *lockMap
	pending    PendingRuns
}

func NewService(db Store, dispatcher worker.Dispatcher, settings func() Settings) *Service {
	return &Service{
		db:         db,
		dispatcher: dispatcher,
		settings:   settings,
		locks:      newLockMap(),
	}
}

// SetPendingRuns makes Stop and Disable drop queued runs of the transfer.
// It must be called before the service is used concurrently.
func (s *Service) SetPendingRuns(p PendingRuns) {
	s.pending = p
}

func (s *Service) cancelPending(id int64) {
	if s.pending != nil && s.pending.Cancel(id) {
		syslog.L.Info().WithMessage("queued run canceled").WithTransfer(id).Write()
	}
}

func runJob(kind types.TransferKind) string {
	if kind == types.KindCruiseData {
		return worker.JobRunCruiseDataTransfer
	}
	return worker.JobRunCollectionSystemTransfer
}

func testJob(kind types.TransferKind) string {
	if kind == types.KindCruiseData {
		return worker.JobTestCruiseDataTransfer
	}
	return worker.JobTestCollectionSystemTransfer
}

// Get returns transfer id, which must be of the given kind.
func (s *Service) Get(kind types.TransferKind, id int64) (types.Transfer, error) {
	t, err := s.db.GetTransfer(id)
	if err != nil {
		return types.Transfer{}, err
	}
	if t.Kind != kind {
		return types.Transfer{}, errtypes.NotFound(fmt.Sprintf("%s transfer %d", kind, id))
	}
	return t, nil
}

func (s *Service) List(kind types.TransferKind) ([]types.Transfer, error) {
	return s.db.GetAllTransfers(types.TransferFilter{Kind: kind})
}

// checkName reports a field error when another transfer of the same kind
// already uses name.
func (s *Service) checkName(kind types.TransferKind, name string, self int64) error {
	other, err := s.db.GetTransferByName(kind, name)
	if err != nil {
		var nf errtypes.IsNotFound
		if errors.As(err, &nf) {
			return nil
		}
		return err
	}
	if other.ID == self {
		return nil
	}
	verr := &errtypes.ValidationError{}
	verr.Add("name", "The name is already in use.")
	return verr
}

// mergeValidation folds a validation error into verr and returns any
// other error unchanged.
func mergeValidation(verr *errtypes.ValidationError, err error) error {
	if err == nil {
		return nil
	}
	var ve *errtypes.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	verr.Merge(err)
	return nil
}

func (s *Service) Create(kind types.TransferKind, form transferconfig.Fields) (types.Transfer, error) {
	verr := &errtypes.ValidationError{}
	t, err := transferconfig.Validate(kind, form, transferconfig.Options{})
	if err := mergeValidation(verr, err); err != nil {
		return types.Transfer{}, err
	}
	if name := form.Get("name"); name != "" {
		if err := mergeValidation(verr, s.checkName(kind, name, 0)); err != nil {
			return types.Transfer{}, err
		}
	}
	if err := verr.ErrOrNil(); err != nil {
		return types.Transfer{}, err
	}

	id, err := s.db.CreateTransfer(nil, t)
	if err != nil {
		return types.Transfer{}, err
	}
	t.ID = id

	syslog.L.Info().WithMessage("transfer created").WithTransfer(id).
		WithFields(map[string]any{"kind": string(kind), "name": t.Name}).Write()
	return t, nil
}

func (s *Service) Update(kind types.TransferKind, id int64, form transferconfig.Fields) (types.Transfer, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	existing, err := s.Get(kind, id)
	if err != nil {
		return types.Transfer{}, err
	}

	verr := &errtypes.ValidationError{}
	t, err := transferconfig.Validate(kind, form, transferconfig.Options{Existing: &existing})
	if err := mergeValidation(verr, err); err != nil {
		return types.Transfer{}, err
	}
	if err == nil {
		if err := mergeValidation(verr, s.checkName(kind, t.Name, id)); err != nil {
			return types.Transfer{}, err
		}
	}
	if err := verr.ErrOrNil(); err != nil {
		return types.Transfer{}, err
	}

	if err := s.db.UpdateTransfer(nil, t); err != nil {
		return types.Transfer{}, err
	}

	syslog.L.Info().WithMessage("transfer updated").WithTransfer(id).Write()
	return t, nil
}

// Delete removes a transfer. Required transfers and transfers with a live
// job are refused.
func (s *Service) Delete(kind types.TransferKind, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.Get(kind, id)
	if err != nil {
		return err
	}
	if t.Status == types.StatusRunning || t.PID != 0 {
		return errtypes.Conflict(fmt.Sprintf("transfer %q is running; stop it before deleting", t.Name))
	}

	if err := s.db.DeleteTransfer(nil, id); err != nil {
		return err
	}

	syslog.L.Info().WithMessage("transfer deleted").WithTransfer(id).Write()
	return nil
}

// apply runs e against transfer id and persists the result. Callers hold
// the transfer's lock.
func (s *Service) apply(t types.Transfer, e Event) (types.Transfer, error) {
	patch, err := Transition(t, e)
	if err != nil {
		return types.Transfer{}, err
	}
	if err := s.db.PatchTransfer(nil, t.ID, patch); err != nil {
		return types.Transfer{}, err
	}

	updated := patch.Apply(t)
	syslog.L.Info().WithMessage("transfer status changed").WithTransfer(t.ID).
		WithFields(map[string]any{
			"event": e.String(),
			"from":  t.Status.String(),
			"to":    updated.Status.String(),
		}).Write()
	return updated, nil
}

func (s *Service) transition(id int64, e Event) (types.Transfer, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.db.GetTransfer(id)
	if err != nil {
		return types.Transfer{}, err
	}
	return s.apply(t, e)
}

func (s *Service) Enable(id int64) (types.Transfer, error) {
	return s.transition(id, EventEnable)
}

// Disable stops future scheduling. A live job is left running.
func (s *Service) Disable(id int64) (types.Transfer, error) {
	s.cancelPending(id)
	return s.transition(id, EventDisable)
}

func (s *Service) payload(t types.Transfer) (worker.TransferPayload, error) {
	w, err := s.db.GetWarehouse()
	if err != nil {
		return worker.TransferPayload{}, err
	}
	return worker.NewTransferPayload(worker.NewContext(s.settings().SiteRoot, w), t), nil
}

// Run submits the run job of transfer id and marks it Running. When the
// worker pool cannot be reached the transfer is left untouched.
func (s *Service) Run(ctx context.Context, id int64) (types.Transfer, worker.Handle, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	// The request may have been canceled while it waited for the lock.
	if err := ctx.Err(); err != nil {
		return types.Transfer{}, "", err
	}

	t, err := s.db.GetTransfer(id)
	if err != nil {
		return types.Transfer{}, "", err
	}
	patch, err := Transition(t, EventRun)
	if err != nil {
		return types.Transfer{}, "", err
	}

	payload, err := s.payload(t)
	if err != nil {
		return types.Transfer{}, "", err
	}

	handle, err := s.dispatcher.SubmitAsync(ctx, runJob(t.Kind), payload)
	if err != nil {
		syslog.L.Error(err).WithMessage("failed to submit run job").WithTransfer(id).Write()
		return types.Transfer{}, "", err
	}

	if err := s.db.PatchTransfer(nil, id, patch); err != nil {
		syslog.L.Error(err).WithMessage("run job submitted but status not saved").
			WithTransfer(id).WithField("handle", string(handle)).Write()
		return types.Transfer{}, handle, err
	}

	syslog.L.Info().WithMessage("transfer run submitted").WithTransfer(id).
		WithField("handle", string(handle)).Write()
	return patch.Apply(t), handle, nil
}

// Stop asks the worker to stop the live job of transfer id. The request
// is fire-and-forget; the transfer settles to Idle (or Disabled) at once.
func (s *Service) Stop(ctx context.Context, id int64) (types.Transfer, error) {
	s.cancelPending(id)

	unlock := s.locks.Lock(id)
	defer unlock()

	t, err := s.db.GetTransfer(id)
	if err != nil {
		return types.Transfer{}, err
	}
	patch, err := Transition(t, EventStop)
	if err != nil {
		return types.Transfer{}, err
	}

	stop := worker.StopJobPayload{PID: t.PID, TransferID: t.ID, Kind: t.Kind}
	if _, err := s.dispatcher.SubmitAsync(ctx, worker.JobStop, stop); err != nil {
		syslog.L.Error(err).WithMessage("failed to submit stop job").WithTransfer(id).Write()
		return types.Transfer{}, err
	}

	if err := s.db.PatchTransfer(nil, id, patch); err != nil {
		return types.Transfer{}, err
	}
	return patch.Apply(t), nil
}

// Test runs the test job of transfer id and waits for its verdict. The
// transfer's status is not changed.
func (s *Service) Test(ctx context.Context, id int64) (verdict.Verdict, error) {
	t, err := s.db.GetTransfer(id)
	if err != nil {
		return verdict.Verdict{}, err
	}
	return s.TestTransfer(ctx, t)
}

// TestTransfer runs the test job for an unsaved or stored transfer.
func (s *Service) TestTransfer(ctx context.Context, t types.Transfer) (verdict.Verdict, error) {
	payload, err := s.payload(t)
	if err != nil {
		return verdict.Verdict{}, err
	}

	result, err := s.dispatcher.SubmitSync(ctx, testJob(t.Kind), payload, s.settings().SyncTimeout)
	if err != nil {
		return verdict.Verdict{}, err
	}

	v := verdict.Interpret(result)
	syslog.L.Info().WithMessage("transfer test finished").WithTransfer(t.ID).
		WithFields(map[string]any{"pass": v.OverallPass, "failed": v.FailedParts()}).Write()
	return v, nil
}

// MarkRunning records that the worker started a job for id with process
// id pid.
func (s *Service) MarkRunning(id int64, pid int) (types.Transfer, error) {
	return s.transition(id, EventStarted(pid))
}

// MarkIdle records that the worker finished the job of id successfully.
func (s *Service) MarkIdle(id int64) (types.Transfer, error) {
	return s.transition(id, EventSucceeded)
}

// MarkError records a worker-reported failure of the job of id.
func (s *Service) MarkError(id int64, reason string) (types.Transfer, error) {
	failure := &errtypes.WorkerReportedFailure{JobName: "transfer", Reason: reason}
	syslog.L.Error(failure).WithMessage("worker reported transfer failure").WithTransfer(id).Write()
	return s.transition(id, EventFailed)
}

// Complete applies the final result document of a run job.
func (s *Service) Complete(id int64, result worker.JobResult) (types.Transfer, verdict.Verdict, error) {
	v := verdict.Interpret(result)
	if v.OverallPass {
		t, err := s.MarkIdle(id)
		return t, v, err
	}

	reason := "job failed"
	if failed := v.FailedParts(); len(failed) > 0 {
		reason = fmt.Sprintf("failed parts: %v", failed)
	}
	t, err := s.MarkError(id, reason)
	return t, v, err
}
