package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

var (
	ErrManagerClosed = errors.New("manager is closed")
	ErrCanceled      = errors.New("operation canceled")
)

// Operation is one unit of queued work. At most one operation per ID is
// queued or running at a time.
type Operation interface {
	ID() string
	Execute(ctx context.Context) error
	OnError(err error)
	OnSuccess()
}

type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc

	queue        chan *queued
	executionSem chan struct{}
	running      *xsync.Map[string, context.CancelFunc]
	wg           sync.WaitGroup
}

func NewManager(ctx context.Context, maxConcurrent int, queueSize int) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	newCtx, cancel := context.WithCancel(ctx)

	m := &Manager{
		ctx:          newCtx,
		cancel:       cancel,
		queue:        make(chan *queued, queueSize),
		executionSem: make(chan struct{}, maxConcurrent),
		running:      xsync.NewMap[string, context.CancelFunc](),
	}

	m.wg.Add(1)
	go m.processQueue()

	return m
}

func (m *Manager) Enqueue(op Operation) error {
	select {
	case <-m.ctx.Done():
		return ErrManagerClosed
	default:
	}

	id := op.ID()
	ctx, cancel := context.WithCancel(m.ctx)
	if _, loaded := m.running.LoadOrStore(id, cancel); loaded {
		cancel()
		return fmt.Errorf("operation %s is already running or queued", id)
	}

	select {
	case m.queue <- &queued{Operation: op, ctx: ctx}:
		return nil
	case <-m.ctx.Done():
		m.cleanup(id)
		op.OnError(ErrManagerClosed)
		return ErrManagerClosed
	}
}

type queued struct {
	Operation
	ctx context.Context
}

func (m *Manager) processQueue() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case op := <-m.queue:
			m.wg.Add(1)
			go m.runJob(op)
		}
	}
}

func (m *Manager) runJob(op *queued) {
	defer m.wg.Done()
	defer m.cleanup(op.ID())

	select {
	case m.executionSem <- struct{}{}:
	case <-op.ctx.Done():
		op.OnError(ErrCanceled)
		return
	}
	defer func() { <-m.executionSem }()

	if op.ctx.Err() != nil {
		op.OnError(ErrCanceled)
		return
	}

	if err := op.Execute(op.ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			err = ErrCanceled
		}
		op.OnError(err)
		return
	}
	op.OnSuccess()
}

// StopJob cancels a queued or running operation.
func (m *Manager) StopJob(id string) error {
	cancel, exists := m.running.Load(id)
	if !exists {
		return fmt.Errorf("operation %s is not running", id)
	}
	cancel()
	return nil
}

func (m *Manager) cleanup(id string) {
	if cancel, ok := m.running.LoadAndDelete(id); ok {
		cancel()
	}
}

func (m *Manager) IsRunning(id string) bool {
	_, exists := m.running.Load(id)
	return exists
}

func (m *Manager) RunningCount() int {
	return m.running.Size()
}

// Close cancels queued and running operations and waits for them to
// return.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
