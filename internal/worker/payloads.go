package worker

import "github.com/openvdm/openvdm-web/internal/store/types"

// Context is the site-wide part of every payload, enough for the worker
// to act without calling back.
type Context struct {
	SiteRoot   string          `json:"siteRoot"`
	CruiseID   string          `json:"cruiseID"`
	LoweringID string          `json:"loweringID,omitempty"`
	Warehouse  types.Warehouse `json:"warehouseConfig"`
}

func NewContext(siteRoot string, w types.Warehouse) Context {
	return Context{
		SiteRoot:   siteRoot,
		CruiseID:   w.CruiseID,
		LoweringID: w.LoweringID,
		Warehouse:  w,
	}
}

// TransferPayload is sent with the test and run jobs of a transfer. Only
// the field matching the transfer's kind is set.
type TransferPayload struct {
	Context
	CollectionSystemTransfer *types.Transfer `json:"collectionSystemTransfer,omitempty"`
	CruiseDataTransfer       *types.Transfer `json:"cruiseDataTransfer,omitempty"`
}

func NewTransferPayload(ctx Context, t types.Transfer) TransferPayload {
	p := TransferPayload{Context: ctx}
	if t.Kind == types.KindCruiseData {
		p.CruiseDataTransfer = &t
	} else {
		p.CollectionSystemTransfer = &t
	}
	return p
}

type StopJobPayload struct {
	PID        int                `json:"pid"`
	TransferID int64              `json:"transferID"`
	Kind       types.TransferKind `json:"kind"`
}

// CruisePayload is sent with the directory, summary and cruise lifecycle
// jobs.
type CruisePayload struct {
	Context
	CruiseStartDate string `json:"cruiseStartDate,omitempty"`
	CruiseEndDate   string `json:"cruiseEndDate,omitempty"`
}
