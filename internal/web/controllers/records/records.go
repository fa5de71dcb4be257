// Package records serves CRUD for the supporting records: extra
// directories, ship-to-shore transfers and links.
package records

import (
	"net/http"

	"github.com/openvdm/openvdm-web/internal/store/database"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/syslog"
	"github.com/openvdm/openvdm-web/internal/transferconfig"
	"github.com/openvdm/openvdm-web/internal/web/controllers"
)

// Resource describes the storage of one record table for its handlers.
type Resource[T any] struct {
	name       string
	list       func() ([]T, error)
	get        func(id int64) (T, error)
	validate   func(form transferconfig.Fields, existing *T) (T, error)
	create     func(v T) (int64, error)
	update     func(v T) error
	setEnabled func(id int64, enable bool) error
	remove     func(id int64) error
}

func ExtraDirectories(db *database.Database) *Resource[types.ExtraDirectory] {
	return &Resource[types.ExtraDirectory]{
		name:     "extra directory",
		list:     db.GetAllExtraDirectories,
		get:      db.GetExtraDirectory,
		validate: transferconfig.ValidateExtraDirectory,
		create:   func(d types.ExtraDirectory) (int64, error) { return db.CreateExtraDirectory(nil, d) },
		update:   func(d types.ExtraDirectory) error { return db.UpdateExtraDirectory(nil, d) },
		setEnabled: func(id int64, enable bool) error {
			return db.SetExtraDirectoryEnabled(nil, id, enable)
		},
		remove: func(id int64) error { return db.DeleteExtraDirectory(nil, id) },
	}
}

func ShipToShoreTransfers(db *database.Database) *Resource[types.ShipToShoreTransfer] {
	return &Resource[types.ShipToShoreTransfer]{
		name:     "ship-to-shore transfer",
		list:     db.GetAllShipToShoreTransfers,
		get:      db.GetShipToShoreTransfer,
		validate: transferconfig.ValidateShipToShore,
		create: func(s types.ShipToShoreTransfer) (int64, error) {
			return db.CreateShipToShoreTransfer(nil, s)
		},
		update: func(s types.ShipToShoreTransfer) error { return db.UpdateShipToShoreTransfer(nil, s) },
		setEnabled: func(id int64, enable bool) error {
			return db.SetShipToShoreTransferEnabled(nil, id, enable)
		},
		remove: func(id int64) error { return db.DeleteShipToShoreTransfer(nil, id) },
	}
}

func Links(db *database.Database) *Resource[types.Link] {
	return &Resource[types.Link]{
		name:       "link",
		list:       db.GetAllLinks,
		get:        db.GetLink,
		validate:   transferconfig.ValidateLink,
		create:     func(l types.Link) (int64, error) { return db.CreateLink(nil, l) },
		update:     func(l types.Link) error { return db.UpdateLink(nil, l) },
		setEnabled: func(id int64, enable bool) error { return db.SetLinkEnabled(nil, id, enable) },
		remove:     func(id int64) error { return db.DeleteLink(nil, id) },
	}
}

func ListHandler[T any](res *Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := res.list()
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "", all)
	}
}

func GetHandler[T any](res *Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		v, err := res.get(id)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, "", v)
	}
}

func CreateHandler[T any](res *Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := controllers.ParseForm(r)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		v, err := res.validate(form, nil)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		id, err := res.create(v)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}

		created, err := res.get(id)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		syslog.L.Info().WithMessage(res.name+" created").WithField("id", id).Write()
		controllers.WriteSuccess(w, r, res.name+" created", created)
	}
}

func UpdateHandler[T any](res *Resource[T]) http.HandlerFunc {
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

		existing, err := res.get(id)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		v, err := res.validate(form, &existing)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		if err := res.update(v); err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, res.name+" updated", v)
	}
}

func setEnableHandler[T any](res *Resource[T], enable bool, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		_ = r.ParseForm()

		if err := res.setEnabled(id, enable); err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		v, err := res.get(id)
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		controllers.WriteSuccess(w, r, message, v)
	}
}

func EnableHandler[T any](res *Resource[T]) http.HandlerFunc {
	return setEnableHandler(res, true, res.name+" enabled")
}

func DisableHandler[T any](res *Resource[T]) http.HandlerFunc {
	return setEnableHandler(res, false, res.name+" disabled")
}

func DeleteHandler[T any](res *Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.PathID(r, "id")
		if err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		_ = r.ParseForm()

		if err := res.remove(id); err != nil {
			controllers.WriteErrorResponse(w, err)
			return
		}
		syslog.L.Info().WithMessage(res.name+" deleted").WithField("id", id).Write()
		controllers.WriteSuccess(w, r, res.name+" deleted", nil)
	}
}
