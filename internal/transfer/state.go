// Package transfer owns the status lifecycle of collection system and
// cruise data transfers and the actions that drive it.
package transfer

import (
	"fmt"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
)

type eventKind int

const (
	eventEnable eventKind = iota + 1
	eventDisable
	eventRun
	eventStop
	eventStarted
	eventSucceeded
	eventFailed
)

// Event is a user action or a worker report applied to a transfer.
type Event struct {
	kind eventKind
	pid  int
}

var (
	EventEnable    = Event{kind: eventEnable}
	EventDisable   = Event{kind: eventDisable}
	EventRun       = Event{kind: eventRun}
	EventStop      = Event{kind: eventStop}
	EventSucceeded = Event{kind: eventSucceeded}
	EventFailed    = Event{kind: eventFailed}
)

// EventStarted is the worker reporting a live job with process id pid.
func EventStarted(pid int) Event {
	return Event{kind: eventStarted, pid: pid}
}

func (e Event) String() string {
	switch e.kind {
	case eventEnable:
		return "enable"
	case eventDisable:
		return "disable"
	case eventRun:
		return "run"
	case eventStop:
		return "stop"
	case eventStarted:
		return "started"
	case eventSucceeded:
		return "succeeded"
	case eventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition computes the change e makes to t. It never has side effects;
// the caller persists the returned patch.
func Transition(t types.Transfer, e Event) (types.TransferPatch, error) {
	var patch types.TransferPatch

	switch e.kind {
	case eventEnable:
		patch.Enable = ptr(true)
		if t.Status == types.StatusDisabled {
			// A job started before the transfer was disabled is still live.
			if t.PID != 0 {
				patch.Status = ptr(types.StatusRunning)
			} else {
				patch.Status = ptr(types.StatusIdle)
			}
		}

	case eventDisable:
		// A live job keeps running and keeps its pid; only scheduling
		// eligibility changes.
		patch.Enable = ptr(false)
		patch.Status = ptr(types.StatusDisabled)

	case eventRun:
		if t.PID != 0 {
			return patch, errtypes.Conflict(fmt.Sprintf("transfer %q has a live job (pid %d)", t.Name, t.PID))
		}
		switch t.Status {
		case types.StatusIdle, types.StatusError:
			patch.Status = ptr(types.StatusRunning)
			patch.PID = ptr(0)
		case types.StatusRunning:
			return patch, errtypes.Conflict(fmt.Sprintf("transfer %q is already running", t.Name))
		default:
			return patch, errtypes.Conflict(fmt.Sprintf("transfer %q is disabled and cannot be run", t.Name))
		}

	case eventStop:
		if t.Status != types.StatusRunning && t.PID == 0 {
			return patch, errtypes.Conflict(fmt.Sprintf("transfer %q is not running", t.Name))
		}
		patch.Status = ptr(settledStatus(t))
		patch.PID = ptr(0)

	case eventStarted:
		patch.Status = ptr(types.StatusRunning)
		patch.PID = ptr(e.pid)

	case eventSucceeded, eventFailed:
		patch.PID = ptr(0)
		if t.Status == types.StatusRunning {
			if e.kind == eventFailed {
				patch.Status = ptr(types.StatusError)
			} else {
				patch.Status = ptr(settledStatus(t))
			}
		}

	default:
		return patch, fmt.Errorf("Transition: unknown event %d", e.kind)
	}

	return patch, nil
}

// settledStatus is the status of t once no job is live.
func settledStatus(t types.Transfer) types.Status {
	if !t.Enable {
		return types.StatusDisabled
	}
	return types.StatusIdle
}

func ptr[T any](v T) *T {
	return &v
}
