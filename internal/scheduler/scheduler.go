// Package scheduler periodically submits run jobs for enabled collection
// system transfers while the system is turned on.
package scheduler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/syslog"
	"github.com/openvdm/openvdm-web/internal/worker"
)

type Transfers interface {
	List(kind types.TransferKind) ([]types.Transfer, error)
	Run(ctx context.Context, id int64) (types.Transfer, worker.Handle, error)
}

type Warehouse interface {
	Get() (types.Warehouse, error)
}

type Scheduler struct {
	manager   *Manager
	transfers Transfers
	warehouse Warehouse
	interval  func() time.Duration
}

func New(manager *Manager, transfers Transfers, warehouse Warehouse, interval func() time.Duration) *Scheduler {
	return &Scheduler{
		manager:   manager,
		transfers: transfers,
		warehouse: warehouse,
		interval:  interval,
	}
}

// Start ticks until ctx is done. The interval is re-read after every tick
// so config reloads take effect.
func (s *Scheduler) Start(ctx context.Context) error {
	timer := time.NewTimer(s.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if _, err := s.Tick(); err != nil {
				syslog.L.Error(err).WithMessage("scheduler tick failed").Write()
			}
			timer.Reset(s.interval())
		}
	}
}

// Tick enqueues a run for every due transfer and returns how many were
// enqueued. Nothing is enqueued while the system status is Off.
func (s *Scheduler) Tick() (int, error) {
	w, err := s.warehouse.Get()
	if err != nil {
		return 0, err
	}
	if w.SystemStatus != types.SystemOn {
		return 0, nil
	}

	transfers, err := s.transfers.List(types.KindCollectionSystem)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, t := range transfers {
		if !due(t) {
			continue
		}
		if s.manager.IsRunning(opID(t.ID)) {
			continue
		}
		if err := s.manager.Enqueue(&runOperation{id: t.ID, name: t.Name, transfers: s.transfers}); err != nil {
			if errors.Is(err, ErrManagerClosed) {
				return enqueued, err
			}
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// Cancel drops the scheduled run of transfer id if it has not been
// submitted yet. It reports whether one was pending.
func (s *Scheduler) Cancel(id int64) bool {
	return s.manager.StopJob(opID(id)) == nil
}

func due(t types.Transfer) bool {
	if !t.Enable || t.PID != 0 {
		return false
	}
	return t.Status == types.StatusIdle || t.Status == types.StatusError
}

func opID(id int64) string {
	return "run-" + strconv.FormatInt(id, 10)
}

type runOperation struct {
	id        int64
	name      string
	transfers Transfers
	handle    worker.Handle
}

func (o *runOperation) ID() string { return opID(o.id) }

func (o *runOperation) Execute(ctx context.Context) error {
	_, handle, err := o.transfers.Run(ctx, o.id)
	o.handle = handle
	return err
}

func (o *runOperation) OnError(err error) {
	if errors.Is(err, ErrCanceled) {
		syslog.L.Debug().WithMessage("scheduled run canceled").WithTransfer(o.id).Write()
		return
	}
	var conflict errtypes.IsConflict
	if errors.As(err, &conflict) {
		syslog.L.Debug().WithMessage("scheduled run skipped").WithTransfer(o.id).WithField("reason", err.Error()).Write()
		return
	}
	syslog.L.Error(err).WithMessage("scheduled run failed").WithTransfer(o.id).WithField("name", o.name).Write()
}

func (o *runOperation) OnSuccess() {
	syslog.L.Info().WithMessage("scheduled run submitted").WithTransfer(o.id).
		WithFields(map[string]any{"name": o.name, "handle": string(o.handle)}).Write()
}
