package transferconfig

import (
	"net/url"
	"strconv"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/constants"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/utils"
)

func ValidateExtraDirectory(form Fields, existing *types.ExtraDirectory) (types.ExtraDirectory, error) {
	verr := &errtypes.ValidationError{}

	d := types.ExtraDirectory{
		Name:     form.Get("name"),
		LongName: form.Get("longName"),
		DestDir:  form.Get("destDir"),
	}
	if existing != nil {
		d.ID = existing.ID
		d.Enable = existing.Enable
		d.Required = existing.Required
		if existing.Required {
			d.Name = existing.Name
		}
	}

	if d.Name == "" {
		verr.Add("name", "The name field is required.")
	} else if hasWhitespace(d.Name) {
		verr.Add("name", "The name field may not contain spaces.")
	}
	if d.LongName == "" {
		verr.Add("longName", "The long name field is required.")
	}
	if d.DestDir == "" {
		verr.Add("destDir", "The destination directory field is required.")
	} else if !utils.IsValidPath(d.DestDir) {
		verr.Add("destDir", "The destination directory may not leave the cruise directory.")
	}

	scope, ok := parseScope(form.Get("cruiseOrLowering"))
	if !ok {
		verr.Add("cruiseOrLowering", "Must be cruise or lowering.")
	}
	d.CruiseOrLowering = scope

	if err := verr.ErrOrNil(); err != nil {
		return types.ExtraDirectory{}, err
	}
	return d, nil
}

// ValidateShipToShore checks a ship-to-shore entry. Priority runs from 1
// (highest) to 5, and exactly one of collectionSystem or extraDirectory
// names the source.
func ValidateShipToShore(form Fields, existing *types.ShipToShoreTransfer) (types.ShipToShoreTransfer, error) {
	verr := &errtypes.ValidationError{}

	s := types.ShipToShoreTransfer{
		Name:          form.Get("name"),
		LongName:      form.Get("longName"),
		IncludeFilter: form.Get("includeFilter"),
	}
	if existing != nil {
		s.ID = existing.ID
		s.Enable = existing.Enable
		s.Required = existing.Required
		if existing.Required {
			s.Name = existing.Name
		}
	}

	if s.Name == "" {
		verr.Add("name", "The name field is required.")
	} else if hasWhitespace(s.Name) {
		verr.Add("name", "The name field may not contain spaces.")
	}
	if s.LongName == "" {
		verr.Add("longName", "The long name field is required.")
	}

	priority, err := strconv.Atoi(form.Get("priority"))
	if err != nil || priority < 1 || priority > 5 {
		verr.Add("priority", "The priority must be a whole number from 1 to 5.")
	}
	s.Priority = priority

	s.CollectionSystem = parseOptionalID(form.Get("collectionSystem"), "collectionSystem", verr)
	s.ExtraDirectory = parseOptionalID(form.Get("extraDirectory"), "extraDirectory", verr)
	if (s.CollectionSystem == 0) == (s.ExtraDirectory == 0) {
		verr.Add("collectionSystem", "Select either a collection system or an extra directory.")
	}

	if s.IncludeFilter == "" {
		s.IncludeFilter = constants.DefaultIncludeFilter
	}
	if err := checkGlobs(s.IncludeFilter); err != nil {
		verr.Add("includeFilter", err.Error())
	}

	if err := verr.ErrOrNil(); err != nil {
		return types.ShipToShoreTransfer{}, err
	}
	return s, nil
}

func ValidateLink(form Fields, existing *types.Link) (types.Link, error) {
	verr := &errtypes.ValidationError{}

	l := types.Link{
		Name:   form.Get("name"),
		URL:    form.Get("url"),
		Enable: true,
	}
	if existing != nil {
		l.ID = existing.ID
		l.Enable = existing.Enable
	}

	if l.Name == "" {
		verr.Add("name", "The name field is required.")
	}
	if l.URL == "" {
		verr.Add("url", "The URL field is required.")
	} else if _, err := url.Parse(l.URL); err != nil {
		verr.Add("url", "The URL is not valid.")
	}

	private, err := parseFlag(form["private"])
	if err != nil {
		verr.Add("private", err.Error())
	}
	l.Private = private

	if err := verr.ErrOrNil(); err != nil {
		return types.Link{}, err
	}
	return l, nil
}

func parseOptionalID(s, field string, verr *errtypes.ValidationError) int64 {
	if s == "" || s == "0" {
		return 0
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		verr.Add(field, "Not a valid record id.")
		return 0
	}
	return id
}
