// Package status serves the read-only status snapshots that clients poll
// to refresh transfer tables.
package status

import (
	"github.com/openvdm/openvdm-web/internal/store/types"
)

type Store interface {
	GetAllTransfers(filter types.TransferFilter) ([]types.Transfer, error)
}

type Entry struct {
	ID       int64        `json:"id"`
	LongName string       `json:"longName"`
	Status   types.Status `json:"status"`
	Enable   bool         `json:"enable"`
	PID      int          `json:"pid"`
}

type Reconciler struct {
	db Store
}

func NewReconciler(db Store) *Reconciler {
	return &Reconciler{db: db}
}

func entryOf(t types.Transfer) Entry {
	return Entry{
		ID:       t.ID,
		LongName: t.LongName,
		Status:   t.Status,
		Enable:   t.Enable,
		PID:      t.PID,
	}
}

// PollStatuses returns the current status of each known id, in the order
// requested. Unknown ids are left out.
func (r *Reconciler) PollStatuses(ids []int64) ([]Entry, error) {
	return r.poll(types.TransferFilter{IDs: ids})
}

// PollKindStatuses is PollStatuses limited to transfers of kind.
func (r *Reconciler) PollKindStatuses(kind types.TransferKind, ids []int64) ([]Entry, error) {
	return r.poll(types.TransferFilter{Kind: kind, IDs: ids})
}

func (r *Reconciler) poll(filter types.TransferFilter) ([]Entry, error) {
	if len(filter.IDs) == 0 {
		return []Entry{}, nil
	}

	transfers, err := r.db.GetAllTransfers(filter)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]types.Transfer, len(transfers))
	for _, t := range transfers {
		byID[t.ID] = t
	}

	entries := make([]Entry, 0, len(transfers))
	seen := make(map[int64]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		t, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, entryOf(t))
	}
	return entries, nil
}

// PollKind returns the status of every transfer of kind.
func (r *Reconciler) PollKind(kind types.TransferKind) ([]Entry, error) {
	transfers, err := r.db.GetAllTransfers(types.TransferFilter{Kind: kind})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(transfers))
	for _, t := range transfers {
		entries = append(entries, entryOf(t))
	}
	return entries, nil
}
