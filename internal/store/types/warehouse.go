package types

// Names of the rows of the core_vars table.
const (
	VarShipboardDataWarehouseIP        = "shipboardDataWarehouseIP"
	VarShipboardDataWarehouseUsername  = "shipboardDataWarehouseUsername"
	VarShipboardDataWarehousePublicDir = "shipboardDataWarehousePublicDataDir"
	VarShipboardDataWarehouseStatus    = "shipboardDataWarehouseStatus"
	VarShoresideDataWarehouseStatus    = "shoresideDataWarehouseStatus"
	VarCruiseDataBaseDir               = "cruiseDataBaseDir"
	VarLoweringDataBaseDir             = "loweringDataBaseDir"
	VarCruiseID                        = "cruiseID"
	VarCruiseStartDate                 = "cruiseStartDate"
	VarCruiseEndDate                   = "cruiseEndDate"
	VarLoweringID                      = "loweringID"
	VarLoweringStartDate               = "loweringStartDate"
	VarLoweringEndDate                 = "loweringEndDate"
	VarSystemStatus                    = "systemStatus"
	VarShipToShoreBandwidthLimit       = "shipToShoreBandwidthLimit"
	VarShowLoweringComponents          = "showLoweringComponents"
)

// WarehouseFlag is the persisted health of a data warehouse, set by the
// warehouse test jobs.
type WarehouseFlag string

const (
	WarehouseOK    WarehouseFlag = "ok"
	WarehouseError WarehouseFlag = "error"
)

type SystemStatus string

const (
	SystemOn  SystemStatus = "On"
	SystemOff SystemStatus = "Off"
)

// Warehouse is the site-wide context every job payload carries.
type Warehouse struct {
	ShipboardDataWarehouseIP        string        `json:"shipboardDataWarehouseIP"`
	ShipboardDataWarehouseUsername  string        `json:"shipboardDataWarehouseUsername"`
	ShipboardDataWarehousePublicDir string        `json:"shipboardDataWarehousePublicDataDir"`
	ShipboardDataWarehouseStatus    WarehouseFlag `json:"shipboardDataWarehouseStatus"`
	ShoresideDataWarehouseStatus    WarehouseFlag `json:"shoresideDataWarehouseStatus"`
	CruiseDataBaseDir               string        `json:"cruiseDataBaseDir"`
	LoweringDataBaseDir             string        `json:"loweringDataBaseDir"`
	CruiseID                        string        `json:"cruiseID"`
	CruiseStartDate                 string        `json:"cruiseStartDate"`
	CruiseEndDate                   string        `json:"cruiseEndDate"`
	LoweringID                      string        `json:"loweringID"`
	LoweringStartDate               string        `json:"loweringStartDate"`
	LoweringEndDate                 string        `json:"loweringEndDate"`
	SystemStatus                    SystemStatus  `json:"systemStatus"`
	ShipToShoreBandwidthLimit       int           `json:"shipToShoreBandwidthLimit"`
	ShowLoweringComponents          bool          `json:"showLoweringComponents"`
}
