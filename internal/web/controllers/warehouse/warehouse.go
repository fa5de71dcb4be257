package warehouse

import (
	"context"
	"net/http"
	"strings"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/verdict"
	"github.com/openvdm/openvdm-web/internal/warehouse"
	"github.com/openvdm/openvdm-web/internal/web/controllers"
	"github.com/openvdm/openvdm-web/internal/worker"
)

type JobResponse struct {
	Handle string `json:"handle"`
}

func GetHandler(service *warehouse.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wh, err := service.Get()
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "", wh)
	}
}

func UpdateHandler(service *warehouse.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := controllers.ParseForm(r)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		wh, err := service.UpdateSettings(form)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "warehouse settings saved", wh)
	}
}

func testHandler(run func(context.Context) (verdict.Verdict, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		v, err := run(r.Context())
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "warehouse tested", v)
	}
}

func TestShipboardHandler(service *warehouse.Service) http.HandlerFunc {
	return testHandler(service.TestShipboard)
}

func TestShoresideHandler(service *warehouse.Service) http.HandlerFunc {
	return testHandler(service.TestShoreside)
}

func job(message string, submit func(context.Context) (worker.Handle, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		handle, err := submit(r.Context())
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, message, JobResponse{Handle: string(handle)})
	}
}

func RebuildCruiseDirectoryHandler(service *warehouse.Service) http.HandlerFunc {
	return job("cruise directory rebuild submitted", service.RebuildCruiseDirectory)
}

func RebuildLoweringDirectoryHandler(service *warehouse.Service) http.HandlerFunc {
	return job("lowering directory rebuild submitted", service.RebuildLoweringDirectory)
}

func RebuildMD5SummaryHandler(service *warehouse.Service) http.HandlerFunc {
	return job("MD5 summary rebuild submitted", service.RebuildMD5Summary)
}

func RebuildDataDashboardHandler(service *warehouse.Service) http.HandlerFunc {
	return job("data dashboard rebuild submitted", service.RebuildDataDashboard)
}

func FinalizeCurrentCruiseHandler(service *warehouse.Service) http.HandlerFunc {
	return job("cruise finalize submitted", service.FinalizeCurrentCruise)
}

func ExportConfigHandler(service *warehouse.Service) http.HandlerFunc {
	return job("config export submitted", service.ExportConfig)
}

func SetupNewCruiseHandler(service *warehouse.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := controllers.ParseForm(r)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		handle, err := service.SetupNewCruise(r.Context(), form)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "new cruise submitted", JobResponse{Handle: string(handle)})
	}
}

// SystemStatusHandler turns the system On or Off from the status form value.
func SystemStatusHandler(service *warehouse.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := controllers.ParseForm(r)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		var status types.SystemStatus
		switch strings.ToLower(form.Get("status")) {
		case "on":
			status = types.SystemOn
		case "off":
			status = types.SystemOff
		default:
			verr := &errtypes.ValidationError{}
			verr.Add("status", "The status must be On or Off.")
			controllers.WriteErrorResponse(w, verr)
			return
		}

		if err := service.SetSystemStatus(status); err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "system status changed", map[string]types.SystemStatus{"systemStatus": status})
	}
}
