package transfers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/status"
	"github.com/openvdm/openvdm-web/internal/store/constants"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/transfer"
	"github.com/openvdm/openvdm-web/internal/transferconfig"
	"github.com/openvdm/openvdm-web/internal/web/controllers"
	"github.com/openvdm/openvdm-web/internal/worker"
)

type RunResponse struct {
	Transfer types.Transfer `json:"transfer"`
	Handle   string         `json:"handle"`
}

// StatusResponse carries the polled entries and how long clients should
// wait before polling again.
type StatusResponse struct {
	Entries      []status.Entry `json:"entries"`
	PollInterval int64          `json:"pollIntervalMs"`
}

func ListHandler(kind types.TransferKind, service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := service.List(kind)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "", all)
	}
}

func CreateHandler(kind types.TransferKind, service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := controllers.ParseForm(r)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		created, err := service.Create(kind, form)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer created", created)
	}
}

func GetHandler(kind types.TransferKind, service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		t, err := service.Get(kind, id)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "", t)
	}
}

func UpdateHandler(kind types.TransferKind, service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		form, err := controllers.ParseForm(r)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		updated, err := service.Update(kind, id, form)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer updated", updated)
	}
}

func DeleteHandler(kind types.TransferKind, service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		_ = r.ParseForm()

		if err := service.Delete(kind, id); err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer deleted", nil)
	}
}

// ActionHandler applies enable, disable, run, stop or test to one transfer.
func ActionHandler(kind types.TransferKind, service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		_ = r.ParseForm()

		// Scope the id to this kind before acting on it.
		if _, err := service.Get(kind, id); err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		var (
			data    any
			message string
		)
		switch action := r.PathValue("action"); action {
		case "enable":
			data, err = service.Enable(id)
			message = "transfer enabled"
		case "disable":
			data, err = service.Disable(id)
			message = "transfer disabled"
		case "run":
			var (
				t      types.Transfer
				handle worker.Handle
			)
			t, handle, err = service.Run(r.Context(), id)
			data = RunResponse{Transfer: t, Handle: string(handle)}
			message = "transfer started"
		case "stop":
			data, err = service.Stop(r.Context(), id)
			message = "transfer stopped"
		case "test":
			data, err = service.Test(r.Context(), id)
			message = "transfer tested"
		default:
			err = errtypes.NotFound("unknown action " + strconv.Quote(action))
		}

		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, message, data)
	}
}

// TestFormHandler validates an unsaved transfer and runs its test job.
func TestFormHandler(kind types.TransferKind, service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := controllers.ParseForm(r)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		t, err := transferconfig.Validate(kind, form, transferconfig.Options{})
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		v, err := service.TestTransfer(r.Context(), t)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer tested", v)
	}
}

// StatusHandler is polled by clients to refresh their status tables. With
// one or more id parameters only those transfers are returned.
func StatusHandler(kind types.TransferKind, reconciler *status.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ids []int64
		for _, raw := range r.URL.Query()["id"] {
			for _, part := range strings.Split(raw, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				id, err := strconv.ParseInt(part, 10, 64)
				if err != nil {
					verr := &errtypes.ValidationError{}
					verr.Add("id", "Transfer ids must be whole numbers.")
					controllers.WriteErrorResponse(w, verr)
					return
				}
				ids = append(ids, id)
			}
		}

		var (
			entries []status.Entry
			err     error
		)
		if ids == nil {
			entries, err = reconciler.PollKind(kind)
		} else {
			entries, err = reconciler.PollKindStatuses(kind, ids)
		}
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "", StatusResponse{
			Entries:      entries,
			PollInterval: constants.StatusPollInterval.Milliseconds(),
		})
	}
}
