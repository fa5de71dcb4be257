package web

import (
	"net/http"

	"github.com/openvdm/openvdm-web/internal/status"
	"github.com/openvdm/openvdm-web/internal/store/database"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/transfer"
	"github.com/openvdm/openvdm-web/internal/warehouse"
	"github.com/openvdm/openvdm-web/internal/web/controllers"
	"github.com/openvdm/openvdm-web/internal/web/controllers/callbacks"
	"github.com/openvdm/openvdm-web/internal/web/controllers/metrics"
	"github.com/openvdm/openvdm-web/internal/web/controllers/records"
	"github.com/openvdm/openvdm-web/internal/web/controllers/transfers"
	warehousectl "github.com/openvdm/openvdm-web/internal/web/controllers/warehouse"
	mw "github.com/openvdm/openvdm-web/internal/web/middlewares"
	"github.com/prometheus/client_golang/prometheus"
)

// Services are the application services the API is built on.
type Services struct {
	Database   *database.Database
	Transfers  *transfer.Service
	Reconciler *status.Reconciler
	Warehouse  *warehouse.Service
	Registry   *prometheus.Registry
}

type Options struct {
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
}

var transferKinds = map[string]types.TransferKind{
	"collection-system-transfers": types.KindCollectionSystem,
	"cruise-data-transfers":       types.KindCruiseData,
}

func NewRouter(svc Services, opts Options) http.Handler {
	mux := http.NewServeMux()

	for path, kind := range transferKinds {
		base := "/api/" + path

		mux.HandleFunc("GET "+base, transfers.ListHandler(kind, svc.Transfers))
		mux.HandleFunc("POST "+base, transfers.CreateHandler(kind, svc.Transfers))
		mux.HandleFunc("POST "+base+"/test", transfers.TestFormHandler(kind, svc.Transfers))
		mux.HandleFunc("GET "+base+"/status", transfers.StatusHandler(kind, svc.Reconciler))
		mux.HandleFunc("GET "+base+"/{id}", transfers.GetHandler(kind, svc.Transfers))
		mux.HandleFunc("PUT "+base+"/{id}", transfers.UpdateHandler(kind, svc.Transfers))
		mux.HandleFunc("POST "+base+"/{id}", transfers.UpdateHandler(kind, svc.Transfers))
		mux.HandleFunc("DELETE "+base+"/{id}", transfers.DeleteHandler(kind, svc.Transfers))
		mux.HandleFunc("POST "+base+"/{id}/{action}", transfers.ActionHandler(kind, svc.Transfers))
	}

	mux.HandleFunc("POST /api/worker/transfers/{id}/running", callbacks.RunningHandler(svc.Transfers))
	mux.HandleFunc("POST /api/worker/transfers/{id}/idle", callbacks.IdleHandler(svc.Transfers))
	mux.HandleFunc("POST /api/worker/transfers/{id}/error", callbacks.ErrorHandler(svc.Transfers))
	mux.HandleFunc("POST /api/worker/transfers/{id}/complete", callbacks.CompleteHandler(svc.Transfers))

	mux.HandleFunc("GET /api/warehouse", warehousectl.GetHandler(svc.Warehouse))
	mux.HandleFunc("PUT /api/warehouse", warehousectl.UpdateHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse", warehousectl.UpdateHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/test-shipboard", warehousectl.TestShipboardHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/test-shoreside", warehousectl.TestShoresideHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/rebuild-cruise-directory", warehousectl.RebuildCruiseDirectoryHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/rebuild-lowering-directory", warehousectl.RebuildLoweringDirectoryHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/rebuild-md5-summary", warehousectl.RebuildMD5SummaryHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/rebuild-data-dashboard", warehousectl.RebuildDataDashboardHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/setup-new-cruise", warehousectl.SetupNewCruiseHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/finalize-current-cruise", warehousectl.FinalizeCurrentCruiseHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/export-config", warehousectl.ExportConfigHandler(svc.Warehouse))
	mux.HandleFunc("POST /api/warehouse/system-status", warehousectl.SystemStatusHandler(svc.Warehouse))

	registerRecords(mux, "/api/extra-directories", records.ExtraDirectories(svc.Database))
	registerRecords(mux, "/api/ship-to-shore-transfers", records.ShipToShoreTransfers(svc.Database))
	registerRecords(mux, "/api/links", records.Links(svc.Database))

	mux.HandleFunc("GET /metrics", metrics.Handler(svc.Registry, svc.Database, svc.Database))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		controllers.WriteSuccess(w, r, "ok", nil)
	})

	return mw.Chain(mux,
		mw.Recover,
		mw.Logger,
		mw.CORS(opts.CORSOrigins),
		mw.RateLimit(opts.RateLimit, opts.RateBurst),
		mw.Gzip,
	)
}

func registerRecords[T any](mux *http.ServeMux, base string, res *records.Resource[T]) {
	mux.HandleFunc("GET "+base, records.ListHandler(res))
	mux.HandleFunc("POST "+base, records.CreateHandler(res))
	mux.HandleFunc("GET "+base+"/{id}", records.GetHandler(res))
	mux.HandleFunc("PUT "+base+"/{id}", records.UpdateHandler(res))
	mux.HandleFunc("POST "+base+"/{id}", records.UpdateHandler(res))
	mux.HandleFunc("DELETE "+base+"/{id}", records.DeleteHandler(res))
	mux.HandleFunc("POST "+base+"/{id}/enable", records.EnableHandler(res))
	mux.HandleFunc("POST "+base+"/{id}/disable", records.DisableHandler(res))
}
