package database

import (
	"github.com/openvdm/openvdm-web/internal/errtypes"
)

var (
	ErrTransferNotFound       = errtypes.NotFound("transfer not found")
	ErrExtraDirectoryNotFound = errtypes.NotFound("extra directory not found")
	ErrShipToShoreNotFound    = errtypes.NotFound("ship-to-shore transfer not found")
	ErrLinkNotFound           = errtypes.NotFound("link not found")
	ErrCoreVarNotFound        = errtypes.NotFound("core variable not found")
)
