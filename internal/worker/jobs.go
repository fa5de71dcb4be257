package worker

// Job names understood by the worker pool.
const (
	JobTestCollectionSystemTransfer = "testCollectionSystemTransfer"
	JobTestCruiseDataTransfer       = "testCruiseDataTransfer"
	JobRunCollectionSystemTransfer  = "runCollectionSystemTransfer"
	JobRunCruiseDataTransfer        = "runCruiseDataTransfer"
	JobStop                         = "stopJob"
	JobRebuildCruiseDirectory       = "rebuildCruiseDirectory"
	JobRebuildLoweringDirectory     = "rebuildLoweringDirectory"
	JobRebuildMD5Summary            = "rebuildMD5Summary"
	JobRebuildDataDashboard         = "rebuildDataDashboard"
	JobSetupNewCruise               = "setupNewCruise"
	JobFinalizeCurrentCruise        = "finalizeCurrentCruise"
	JobExportOVDMConfig             = "exportOVDMConfig"
	JobTestShipboardDataWarehouse   = "testShipboardDataWarehouse"
)
