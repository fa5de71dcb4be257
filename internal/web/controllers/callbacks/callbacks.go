// Package callbacks serves the endpoints the worker pool calls to report
// the progress of transfer jobs.
package callbacks

import (
	"io"
	"net/http"
	"strconv"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/transfer"
	"github.com/openvdm/openvdm-web/internal/verdict"
	"github.com/openvdm/openvdm-web/internal/web/controllers"
	"github.com/openvdm/openvdm-web/internal/worker"
)

const maxResultBytes = 1 << 20

type CompleteResponse struct {
	Transfer types.Transfer  `json:"transfer"`
	Verdict  verdict.Verdict `json:"verdict"`
}

func RunningHandler(service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		pid, err := strconv.Atoi(r.URL.Query().Get("pid"))
		if err != nil || pid <= 0 {
			verr := &errtypes.ValidationError{}
			verr.Add("pid", "A positive process id is required.")
			controllers.WriteErrorResponse(w, verr)
			return
		}

		t, err := service.MarkRunning(id, pid)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer running", t)
	}
}

func IdleHandler(service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		t, err := service.MarkIdle(id)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer idle", t)
	}
}

func ErrorHandler(service *transfer.Service) http.HandlerFunc {
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

		reason := form.Get("reason")
		if reason == "" {
			reason = "worker reported an error"
		}

		t, err := service.MarkError(id, reason)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer error recorded", t)
	}
}

// CompleteHandler takes the job's result document as the request body.
func CompleteHandler(service *transfer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxResultBytes))
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		result, err := worker.ParseJobResult(body)
		if err != nil {
			verr := &errtypes.ValidationError{}
			verr.Add("result", "The job result is not a valid result document.")
			controllers.WriteErrorResponse(w, verr)
			return
		}

		t, v, err := service.Complete(id, result)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "transfer completed", CompleteResponse{Transfer: t, Verdict: v})
	}
}
