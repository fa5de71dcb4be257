package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/openvdm/openvdm-web/internal/store/types"
)

func (database *Database) GetCoreVar(name string) (string, error) {
	var value string
	err := database.readDb.QueryRowContext(database.ctx,
		"SELECT value FROM core_vars WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCoreVarNotFound
	}
	if err != nil {
		return "", fmt.Errorf("GetCoreVar: error fetching %q: %w", name, err)
	}
	return value, nil
}

func (database *Database) SetCoreVar(tx *sql.Tx, name, value string) error {
	return database.withTx("SetCoreVar", tx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(database.ctx, `
            INSERT INTO core_vars (name, value) VALUES (?, ?)
            ON CONFLICT(name) DO UPDATE SET value = excluded.value
        `, name, value)
		if err != nil {
			return fmt.Errorf("SetCoreVar: error writing %q: %w", name, err)
		}
		return nil
	})
}

// GetWarehouse assembles the site-wide warehouse context from core_vars.
// Missing rows read as empty values.
func (database *Database) GetWarehouse() (types.Warehouse, error) {
	rows, err := database.readDb.QueryContext(database.ctx, "SELECT name, value FROM core_vars")
	if err != nil {
		return types.Warehouse{}, fmt.Errorf("GetWarehouse: error querying core vars: %w", err)
	}
	defer rows.Close()

	vars := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return types.Warehouse{}, fmt.Errorf("GetWarehouse: error scanning row: %w", err)
		}
		vars[name] = value
	}
	if err := rows.Err(); err != nil {
		return types.Warehouse{}, fmt.Errorf("GetWarehouse: error iterating rows: %w", err)
	}

	bandwidth, _ := strconv.Atoi(vars[types.VarShipToShoreBandwidthLimit])
	showLowering, _ := strconv.ParseBool(vars[types.VarShowLoweringComponents])

	return types.Warehouse{
		ShipboardDataWarehouseIP:        vars[types.VarShipboardDataWarehouseIP],
		ShipboardDataWarehouseUsername:  vars[types.VarShipboardDataWarehouseUsername],
		ShipboardDataWarehousePublicDir: vars[types.VarShipboardDataWarehousePublicDir],
		ShipboardDataWarehouseStatus:    types.WarehouseFlag(vars[types.VarShipboardDataWarehouseStatus]),
		ShoresideDataWarehouseStatus:    types.WarehouseFlag(vars[types.VarShoresideDataWarehouseStatus]),
		CruiseDataBaseDir:               vars[types.VarCruiseDataBaseDir],
		LoweringDataBaseDir:             vars[types.VarLoweringDataBaseDir],
		CruiseID:                        vars[types.VarCruiseID],
		CruiseStartDate:                 vars[types.VarCruiseStartDate],
		CruiseEndDate:                   vars[types.VarCruiseEndDate],
		LoweringID:                      vars[types.VarLoweringID],
		LoweringStartDate:               vars[types.VarLoweringStartDate],
		LoweringEndDate:                 vars[types.VarLoweringEndDate],
		SystemStatus:                    types.SystemStatus(vars[types.VarSystemStatus]),
		ShipToShoreBandwidthLimit:       bandwidth,
		ShowLoweringComponents:          showLowering,
	}, nil
}
