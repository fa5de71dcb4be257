// Package transferconfig turns submitted transfer forms into normalized
// records, collecting every field problem instead of stopping at the first.
package transferconfig

import (
	"strconv"
	"strings"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/constants"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/utils"
)

// Options carries the context a form is validated in.
type Options struct {
	// Existing is the stored record when editing. Its identity and
	// lifecycle fields carry over; a required record keeps its name.
	Existing *types.Transfer
}

type flagField struct {
	field string
	dest  *bool
}

// Validate checks form against the rules for kind and returns the
// normalized transfer. On failure the error is a *errtypes.ValidationError
// listing every problem found.
func Validate(kind types.TransferKind, form Fields, opts Options) (types.Transfer, error) {
	verr := &errtypes.ValidationError{}

	t := types.Transfer{
		Kind:     kind,
		Status:   types.StatusDisabled,
		Enable:   false,
		Name:     form.Get("name"),
		LongName: form.Get("longName"),
		DestDir:  form.Get("destDir"),
	}
	if opts.Existing != nil {
		t.ID = opts.Existing.ID
		t.Status = opts.Existing.Status
		t.Enable = opts.Existing.Enable
		t.PID = opts.Existing.PID
		t.Required = opts.Existing.Required
		if opts.Existing.Required {
			t.Name = opts.Existing.Name
		}
	}

	if !kind.Valid() {
		verr.Add("kind", "unknown transfer kind")
	}

	if t.Name == "" {
		verr.Add("name", "The name field is required.")
	} else if hasWhitespace(t.Name) {
		verr.Add("name", "The name field may not contain spaces.")
	}
	if t.LongName == "" {
		verr.Add("longName", "The long name field is required.")
	}
	if t.DestDir == "" {
		verr.Add("destDir", "The destination directory field is required.")
	} else if !utils.IsValidPath(t.DestDir) {
		verr.Add("destDir", "The destination directory may not leave its base directory.")
	}

	transferType, err := types.ParseTransferType(form.Get("transferType"))
	if err != nil {
		verr.Add("transferType", "A valid transfer type is required.")
	}
	t.TransferType = transferType

	bandwidth, ok := parseBandwidth(form.Get("bandwidthLimit"))
	if !ok {
		verr.Add("bandwidthLimit", "The bandwidth limit must be a whole number of kB/s, 0 for unlimited.")
	}
	t.BandwidthLimit = bandwidth

	scope, ok := parseScope(form.Get("cruiseOrLowering"))
	if !ok {
		verr.Add("cruiseOrLowering", "Must be cruise or lowering.")
	}
	t.CruiseOrLowering = scope

	flags := []flagField{
		{"staleness", &t.Staleness},
		{"useStartDate", &t.UseStartDate},
		{"localDirIsMountPoint", &t.LocalDirIsMountPoint},
		{"removeSourceFiles", &t.RemoveSourceFiles},
		{"skipEmptyDirs", &t.SkipEmptyDirs},
		{"skipEmptyFiles", &t.SkipEmptyFiles},
		{"syncWithRemote", &t.SyncWithRemote},
	}
	if kind == types.KindCruiseData {
		flags = append(flags, flagField{"includeOVDMFiles", &t.IncludeOVDMFiles})
	}
	for _, flag := range flags {
		v, err := parseFlag(form[flag.field])
		if err != nil {
			verr.Add(flag.field, err.Error())
		}
		*flag.dest = v
	}

	switch kind {
	case types.KindCollectionSystem:
		validateCollectionSystem(&t, form, verr)
	case types.KindCruiseData:
		validateCruiseData(&t, form, verr)
	}

	if transferType.Valid() {
		validateConnection(&t, form, verr)
	}

	if err := verr.ErrOrNil(); err != nil {
		return types.Transfer{}, err
	}
	return t, nil
}

func validateCollectionSystem(t *types.Transfer, form Fields, verr *errtypes.ValidationError) {
	t.SourceDir = form.Get("sourceDir")
	if t.SourceDir == "" {
		verr.Add("sourceDir", "The source directory field is required.")
	} else if !utils.IsValidPath(t.SourceDir) {
		verr.Add("sourceDir", "The source directory may not leave its base directory.")
	}

	t.IncludeFilter = form.Get("includeFilter")
	if t.IncludeFilter == "" {
		t.IncludeFilter = constants.DefaultIncludeFilter
	}
	t.ExcludeFilter = form.Get("excludeFilter")
	t.IgnoreFilter = form.Get("ignoreFilter")

	filters := []struct{ field, value string }{
		{"includeFilter", t.IncludeFilter},
		{"excludeFilter", t.ExcludeFilter},
		{"ignoreFilter", t.IgnoreFilter},
	}
	for _, f := range filters {
		if err := checkGlobs(f.value); err != nil {
			verr.Add(f.field, err.Error())
		}
	}
}

func validateCruiseData(t *types.Transfer, form Fields, verr *errtypes.ValidationError) {
	ids, err := parseIDList(form.Get("excludedCollectionSystems"))
	if err != nil {
		verr.Add("excludedCollectionSystems", err.Error())
	}
	t.ExcludedCollectionSystems = ids

	ids, err = parseIDList(form.Get("excludedExtraDirectories"))
	if err != nil {
		verr.Add("excludedExtraDirectories", err.Error())
	}
	t.ExcludedExtraDirectories = ids
}

// validateConnection enforces the required fields of the selected
// connection group. Fields of every other group are left blank.
func validateConnection(t *types.Transfer, form Fields, verr *errtypes.ValidationError) {
	required := func(field, label string) string {
		v := form.Get(field)
		if v == "" {
			verr.Add(field, "The "+label+" field is required.")
		}
		return v
	}
	host := func(field, label string) string {
		v := required(field, label)
		if v != "" && utils.ValidateHostname(v) != nil {
			verr.Add(field, "The "+label+" must be a hostname or IP address.")
		}
		return v
	}

	switch t.TransferType {
	case types.TransferTypeLocalDirectory:
	case types.TransferTypeRsyncServer:
		t.RsyncServer = host("rsyncServer", "rsync server")
		t.RsyncUser = required("rsyncUser", "rsync user")
		if t.RsyncUser == constants.AnonymousRsyncUser {
			t.RsyncPass = form.Get("rsyncPass")
		} else {
			t.RsyncPass = required("rsyncPass", "rsync password")
		}
	case types.TransferTypeSMBShare:
		t.SMBServer = required("smbServer", "SMB server")
		t.SMBUser = required("smbUser", "SMB user")
		t.SMBPass = form.Get("smbPass")
		t.SMBDomain = form.Get("smbDomain")
		if t.SMBDomain == "" {
			t.SMBDomain = constants.DefaultSMBDomain
		}
	case types.TransferTypeSSHServer:
		t.SSHServer = host("sshServer", "SSH server")
		t.SSHUser = required("sshUser", "SSH user")
		useKey, err := parseFlag(form["sshUseKey"])
		if err != nil {
			verr.Add("sshUseKey", err.Error())
		}
		t.SSHUseKey = useKey
		if useKey {
			t.SSHPass = ""
		} else {
			t.SSHPass = required("sshPass", "SSH password")
		}
	case types.TransferTypeNFSShare:
		t.NFSServer = required("nfsServer", "NFS server")
	}
}

// parseBandwidth accepts a non-negative integer. Empty means unlimited.
func parseBandwidth(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func parseScope(s string) (types.CruiseOrLowering, bool) {
	switch strings.ToLower(s) {
	case "", "0", "cruise":
		return types.ScopeCruise, true
	case "1", "lowering":
		return types.ScopeLowering, true
	}
	return types.ScopeCruise, false
}
