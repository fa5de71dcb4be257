// Package warehouse runs the site-wide jobs: warehouse tests, directory
// and summary rebuilds, and the cruise lifecycle.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/constants"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/syslog"
	"github.com/openvdm/openvdm-web/internal/transferconfig"
	"github.com/openvdm/openvdm-web/internal/verdict"
	"github.com/openvdm/openvdm-web/internal/worker"
)

type Store interface {
	GetWarehouse() (types.Warehouse, error)
	SetCoreVar(tx *sql.Tx, name, value string) error
	InTx(op string, fn func(tx *sql.Tx) error) error
	GetTransferByName(kind types.TransferKind, name string) (types.Transfer, error)
}

type Settings struct {
	SiteRoot    string
	SyncTimeout time.Duration
}

type Service struct {
	db         Store
	dispatcher worker.Dispatcher
	settings   func() Settings
}

func NewService(db Store, dispatcher worker.Dispatcher, settings func() Settings) *Service {
	return &Service{db: db, dispatcher: dispatcher, settings: settings}
}

func (s *Service) Get() (types.Warehouse, error) {
	return s.db.GetWarehouse()
}

func (s *Service) context() (worker.Context, error) {
	w, err := s.db.GetWarehouse()
	if err != nil {
		return worker.Context{}, err
	}
	return worker.NewContext(s.settings().SiteRoot, w), nil
}

// testWarehouse runs a warehouse test job and records its verdict in flagVar.
// Dispatch failures and timeouts leave the flag as it was.
func (s *Service) testWarehouse(ctx context.Context, jobName, flagVar string, payload any) (verdict.Verdict, error) {
	result, err := s.dispatcher.SubmitSync(ctx, jobName, payload, s.settings().SyncTimeout)
	if err != nil {
		return verdict.Verdict{}, err
	}

	v := verdict.Interpret(result)
	flag := types.WarehouseOK
	if !v.OverallPass {
		flag = types.WarehouseError
	}
	if err := s.db.SetCoreVar(nil, flagVar, string(flag)); err != nil {
		return v, err
	}

	syslog.L.Info().WithMessage("warehouse test finished").
		WithFields(map[string]any{"job": jobName, "flag": string(flag), "failed": v.FailedParts()}).Write()
	return v, nil
}

func (s *Service) TestShipboard(ctx context.Context) (verdict.Verdict, error) {
	wctx, err := s.context()
	if err != nil {
		return verdict.Verdict{}, err
	}
	return s.testWarehouse(ctx, worker.JobTestShipboardDataWarehouse, types.VarShipboardDataWarehouseStatus,
		worker.CruisePayload{Context: wctx})
}

// TestShoreside tests the required cruise data transfer that ships data
// to the shoreside warehouse.
func (s *Service) TestShoreside(ctx context.Context) (verdict.Verdict, error) {
	ssdw, err := s.db.GetTransferByName(types.KindCruiseData, constants.ShipToShoreTransferName)
	if err != nil {
		return verdict.Verdict{}, err
	}
	wctx, err := s.context()
	if err != nil {
		return verdict.Verdict{}, err
	}
	return s.testWarehouse(ctx, worker.JobTestCruiseDataTransfer, types.VarShoresideDataWarehouseStatus,
		worker.NewTransferPayload(wctx, ssdw))
}

func (s *Service) submit(ctx context.Context, jobName string, payload worker.CruisePayload) (worker.Handle, error) {
	handle, err := s.dispatcher.SubmitAsync(ctx, jobName, payload)
	if err != nil {
		syslog.L.Error(err).WithMessage("failed to submit job").WithField("job", jobName).Write()
		return "", err
	}
	return handle, nil
}

func (s *Service) cruiseJob(ctx context.Context, jobName string) (worker.Handle, error) {
	wctx, err := s.context()
	if err != nil {
		return "", err
	}
	if wctx.CruiseID == "" {
		return "", errtypes.Conflict("no cruise is configured")
	}
	return s.submit(ctx, jobName, worker.CruisePayload{
		Context:         wctx,
		CruiseStartDate: wctx.Warehouse.CruiseStartDate,
		CruiseEndDate:   wctx.Warehouse.CruiseEndDate,
	})
}

func (s *Service) RebuildCruiseDirectory(ctx context.Context) (worker.Handle, error) {
	return s.cruiseJob(ctx, worker.JobRebuildCruiseDirectory)
}

func (s *Service) RebuildLoweringDirectory(ctx context.Context) (worker.Handle, error) {
	wctx, err := s.context()
	if err != nil {
		return "", err
	}
	if wctx.LoweringID == "" {
		return "", errtypes.Conflict("no lowering is configured")
	}
	return s.submit(ctx, worker.JobRebuildLoweringDirectory, worker.CruisePayload{Context: wctx})
}

func (s *Service) RebuildMD5Summary(ctx context.Context) (worker.Handle, error) {
	return s.cruiseJob(ctx, worker.JobRebuildMD5Summary)
}

func (s *Service) RebuildDataDashboard(ctx context.Context) (worker.Handle, error) {
	return s.cruiseJob(ctx, worker.JobRebuildDataDashboard)
}

func (s *Service) FinalizeCurrentCruise(ctx context.Context) (worker.Handle, error) {
	return s.cruiseJob(ctx, worker.JobFinalizeCurrentCruise)
}

func (s *Service) ExportConfig(ctx context.Context) (worker.Handle, error) {
	return s.cruiseJob(ctx, worker.JobExportOVDMConfig)
}

var dateLayouts = []string{"2006/01/02 15:04", "2006/01/02", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SetupNewCruise submits the setupNewCruise job for the cruise in form and,
// once the worker pool has it, makes it the current cruise.
func (s *Service) SetupNewCruise(ctx context.Context, form transferconfig.Fields) (worker.Handle, error) {
	verr := &errtypes.ValidationError{}

	cruiseID := form.Get("cruiseID")
	if cruiseID == "" {
		verr.Add("cruiseID", "The cruise ID field is required.")
	} else if strings.ContainsAny(cruiseID, " \t/") {
		verr.Add("cruiseID", "The cruise ID may not contain spaces or slashes.")
	}

	startDate := form.Get("cruiseStartDate")
	start, ok := parseDate(startDate)
	if !ok {
		verr.Add("cruiseStartDate", "The start date must look like 2006/01/02 15:04.")
	}
	endDate := form.Get("cruiseEndDate")
	if endDate != "" {
		end, ok := parseDate(endDate)
		if !ok {
			verr.Add("cruiseEndDate", "The end date must look like 2006/01/02 15:04.")
		} else if !start.IsZero() && end.Before(start) {
			verr.Add("cruiseEndDate", "The end date is before the start date.")
		}
	}
	if err := verr.ErrOrNil(); err != nil {
		return "", err
	}

	wctx, err := s.context()
	if err != nil {
		return "", err
	}
	wctx.CruiseID = cruiseID
	wctx.Warehouse.CruiseID = cruiseID
	wctx.Warehouse.CruiseStartDate = startDate
	wctx.Warehouse.CruiseEndDate = endDate

	handle, err := s.submit(ctx, worker.JobSetupNewCruise, worker.CruisePayload{
		Context:         wctx,
		CruiseStartDate: startDate,
		CruiseEndDate:   endDate,
	})
	if err != nil {
		return "", err
	}

	err = s.setCoreVars("SetupNewCruise", []coreVar{
		{types.VarCruiseID, cruiseID},
		{types.VarCruiseStartDate, startDate},
		{types.VarCruiseEndDate, endDate},
	})
	if err != nil {
		syslog.L.Error(err).WithMessage("new cruise submitted but not saved").
			WithFields(map[string]any{"cruiseID": cruiseID, "handle": string(handle)}).Write()
		return handle, err
	}

	syslog.L.Info().WithMessage("new cruise set up").WithField("cruiseID", cruiseID).Write()
	return handle, nil
}

func (s *Service) SetSystemStatus(status types.SystemStatus) error {
	if status != types.SystemOn && status != types.SystemOff {
		return errtypes.Conflict(fmt.Sprintf("unknown system status %q", status))
	}
	if err := s.db.SetCoreVar(nil, types.VarSystemStatus, string(status)); err != nil {
		return err
	}
	syslog.L.Info().WithMessage("system status changed").WithField("status", string(status)).Write()
	return nil
}

// UpdateSettings saves the editable warehouse settings present in form.
func (s *Service) UpdateSettings(form transferconfig.Fields) (types.Warehouse, error) {
	verr := &errtypes.ValidationError{}
	var updates []coreVar

	for _, name := range []string{
		types.VarShipboardDataWarehouseIP,
		types.VarShipboardDataWarehouseUsername,
		types.VarShipboardDataWarehousePublicDir,
		types.VarCruiseDataBaseDir,
		types.VarLoweringDataBaseDir,
	} {
		if !form.Has(name) {
			continue
		}
		if v := form.Get(name); v == "" {
			verr.Add(name, "This field is required.")
		} else {
			updates = append(updates, coreVar{name, v})
		}
	}

	if form.Has(types.VarShipToShoreBandwidthLimit) {
		v := form.Get(types.VarShipToShoreBandwidthLimit)
		if v == "" {
			v = "0"
		}
		if n, err := strconv.Atoi(v); err != nil || n < 0 {
			verr.Add(types.VarShipToShoreBandwidthLimit, "The bandwidth limit must be a whole number of kB/s, 0 for unlimited.")
		} else {
			updates = append(updates, coreVar{types.VarShipToShoreBandwidthLimit, strconv.Itoa(n)})
		}
	}

	if form.Has(types.VarShowLoweringComponents) {
		switch strings.ToLower(form.Get(types.VarShowLoweringComponents)) {
		case "1", "true", "on", "yes":
			updates = append(updates, coreVar{types.VarShowLoweringComponents, "1"})
		case "", "0", "false", "off", "no":
			updates = append(updates, coreVar{types.VarShowLoweringComponents, "0"})
		default:
			verr.Add(types.VarShowLoweringComponents, "Must be a yes/no value.")
		}
	}

	if err := verr.ErrOrNil(); err != nil {
		return types.Warehouse{}, err
	}
	if err := s.setCoreVars("UpdateSettings", updates); err != nil {
		return types.Warehouse{}, err
	}
	return s.db.GetWarehouse()
}

type coreVar struct {
	name, value string
}

// setCoreVars writes vars in one transaction.
func (s *Service) setCoreVars(op string, vars []coreVar) error {
	return s.db.InTx(op, func(tx *sql.Tx) error {
		for _, v := range vars {
			if err := s.db.SetCoreVar(tx, v.name, v.value); err != nil {
				return err
			}
		}
		return nil
	})
}
