// Package controllers holds the response helpers shared by the API
// handlers.
package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/syslog"
	"github.com/openvdm/openvdm-web/internal/transferconfig"
)

// Response is the envelope of every API answer.
type Response struct {
	Errors  map[string]string `json:"errors"`
	Message string            `json:"message"`
	Data    any               `json:"data"`
	Status  int               `json:"status"`
	Success bool              `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		syslog.L.Error(err).WithMessage("failed to encode response").Write()
	}
}

// WriteErrorResponse answers with the status matching err. Validation
// failures carry their per-field messages.
func WriteErrorResponse(w http.ResponseWriter, err error) {
	status := errtypes.HTTPStatus(err)
	resp := Response{
		Message: err.Error(),
		Status:  status,
	}

	var ve *errtypes.ValidationError
	if errors.As(err, &ve) {
		resp.Errors = ve.Fields()
		resp.Message = "validation failed"
	}

	if status >= http.StatusInternalServerError {
		syslog.L.Error(err).WithMessage("request failed").WithField("status", status).Write()
	}
	writeJSON(w, status, resp)
}

// WriteSuccess answers with data, or redirects to the form's redirect
// value when the client posted one.
func WriteSuccess(w http.ResponseWriter, r *http.Request, message string, data any) {
	if target := redirectTarget(r); target != "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Message: message,
		Data:    data,
		Status:  http.StatusOK,
		Success: true,
	})
}

// redirectTarget only allows same-site paths.
func redirectTarget(r *http.Request) string {
	if r.Method == http.MethodGet || r.Form == nil {
		return ""
	}
	target := strings.TrimSpace(r.Form.Get("redirect"))
	if target == "" {
		return ""
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	return u.String()
}

// ParseForm reads the request form, body and query, into Fields.
func ParseForm(r *http.Request) (transferconfig.Fields, error) {
	if err := r.ParseForm(); err != nil {
		verr := &errtypes.ValidationError{}
		verr.Add("form", "The request body could not be read.")
		return nil, verr
	}
	return transferconfig.FromValues(r.Form), nil
}

// PathID parses the {name} path wildcard as a record id.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errtypes.NotFound("invalid id " + strconv.Quote(raw))
	}
	return id, nil
}
