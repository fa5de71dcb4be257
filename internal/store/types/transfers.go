package types

import (
	"fmt"
	"strconv"
	"strings"
)

type TransferKind string

const (
	KindCollectionSystem TransferKind = "collection_system"
	KindCruiseData       TransferKind = "cruise_data"
)

func (k TransferKind) Valid() bool {
	return k == KindCollectionSystem || k == KindCruiseData
}

// TransferType selects which connection field group of a Transfer is in use.
type TransferType int

const (
	TransferTypeUnknown TransferType = iota
	TransferTypeLocalDirectory
	TransferTypeRsyncServer
	TransferTypeSMBShare
	TransferTypeSSHServer
	TransferTypeNFSShare
)

var transferTypeNames = map[TransferType]string{
	TransferTypeLocalDirectory: "Local Directory",
	TransferTypeRsyncServer:    "Rsync Server",
	TransferTypeSMBShare:       "SMB Share",
	TransferTypeSSHServer:      "SSH Server",
	TransferTypeNFSShare:       "NFS Share",
}

func (t TransferType) String() string {
	if name, ok := transferTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

func (t TransferType) Valid() bool {
	_, ok := transferTypeNames[t]
	return ok
}

// ParseTransferType accepts either the numeric id ("3") or the display
// name, case and whitespace insensitive ("SMB Share", "smbshare").
func ParseTransferType(s string) (TransferType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		t := TransferType(n)
		if !t.Valid() {
			return TransferTypeUnknown, fmt.Errorf("unknown transfer type %d", n)
		}
		return t, nil
	}

	norm := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	for t, name := range transferTypeNames {
		if strings.ToLower(strings.ReplaceAll(name, " ", "")) == norm {
			return t, nil
		}
	}
	return TransferTypeUnknown, fmt.Errorf("unknown transfer type %q", s)
}

type Status int

const (
	StatusRunning  Status = 1
	StatusIdle     Status = 2
	StatusError    Status = 3
	StatusDisabled Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusIdle:
		return "Idle"
	case StatusError:
		return "Error"
	case StatusDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

type CruiseOrLowering int

const (
	ScopeCruise   CruiseOrLowering = 0
	ScopeLowering CruiseOrLowering = 1
)

// Transfer is a Collection System Transfer or a Cruise Data Transfer.
// Fields that only apply to one kind are left zero on the other.
type Transfer struct {
	ID       int64        `json:"id"`
	Kind     TransferKind `json:"kind"`
	Name     string       `json:"name"`
	LongName string       `json:"longName"`

	TransferType TransferType `json:"transferType"`
	SourceDir    string       `json:"sourceDir,omitempty"`
	DestDir      string       `json:"destDir"`

	RsyncServer string `json:"rsyncServer"`
	RsyncUser   string `json:"rsyncUser"`
	RsyncPass   string `json:"rsyncPass"`

	SMBServer string `json:"smbServer"`
	SMBUser   string `json:"smbUser"`
	SMBPass   string `json:"smbPass"`
	SMBDomain string `json:"smbDomain"`

	SSHServer string `json:"sshServer"`
	SSHUser   string `json:"sshUser"`
	SSHUseKey bool   `json:"sshUseKey"`
	SSHPass   string `json:"sshPass"`

	NFSServer string `json:"nfsServer"`

	IncludeFilter string `json:"includeFilter,omitempty"`
	ExcludeFilter string `json:"excludeFilter,omitempty"`
	IgnoreFilter  string `json:"ignoreFilter,omitempty"`

	Staleness            bool `json:"staleness"`
	UseStartDate         bool `json:"useStartDate"`
	LocalDirIsMountPoint bool `json:"localDirIsMountPoint"`
	BandwidthLimit       int  `json:"bandwidthLimit"`
	RemoveSourceFiles    bool `json:"removeSourceFiles"`
	SkipEmptyDirs        bool `json:"skipEmptyDirs"`
	SkipEmptyFiles       bool `json:"skipEmptyFiles"`
	SyncWithRemote       bool `json:"syncWithRemote"`

	IncludeOVDMFiles          bool    `json:"includeOVDMFiles,omitempty"`
	ExcludedCollectionSystems []int64 `json:"excludedCollectionSystems,omitempty"`
	ExcludedExtraDirectories  []int64 `json:"excludedExtraDirectories,omitempty"`

	CruiseOrLowering CruiseOrLowering `json:"cruiseOrLowering"`

	Status   Status `json:"status"`
	Enable   bool   `json:"enable"`
	PID      int    `json:"pid"`
	Required bool   `json:"required"`
}

// TransferPatch is a partial update of the lifecycle fields of a Transfer.
// Nil fields are left untouched.
type TransferPatch struct {
	Status *Status
	Enable *bool
	PID    *int
}

func (p TransferPatch) Empty() bool {
	return p.Status == nil && p.Enable == nil && p.PID == nil
}

// Apply returns a copy of t with the patch applied.
func (p TransferPatch) Apply(t Transfer) Transfer {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Enable != nil {
		t.Enable = *p.Enable
	}
	if p.PID != nil {
		t.PID = *p.PID
	}
	return t
}

type TransferFilter struct {
	Kind     TransferKind
	IDs      []int64
	Enabled  *bool
	Statuses []Status
}
