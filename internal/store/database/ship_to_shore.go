package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
)

const shipToShoreColumns = "id, name, long_name, priority, collection_system, extra_directory, include_filter, enable, required"

func scanShipToShore(row rowScanner) (types.ShipToShoreTransfer, error) {
	var s types.ShipToShoreTransfer
	var enable, required int64
	err := row.Scan(&s.ID, &s.Name, &s.LongName, &s.Priority, &s.CollectionSystem,
		&s.ExtraDirectory, &s.IncludeFilter, &enable, &required)
	if err != nil {
		return types.ShipToShoreTransfer{}, err
	}
	s.Enable = int64ToBool(enable)
	s.Required = int64ToBool(required)
	return s, nil
}

func (database *Database) GetShipToShoreTransfer(id int64) (types.ShipToShoreTransfer, error) {
	row := database.readDb.QueryRowContext(database.ctx,
		"SELECT "+shipToShoreColumns+" FROM ship_to_shore_transfers WHERE id = ?", id)
	s, err := scanShipToShore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ShipToShoreTransfer{}, ErrShipToShoreNotFound
	}
	if err != nil {
		return types.ShipToShoreTransfer{}, fmt.Errorf("GetShipToShoreTransfer: error fetching %d: %w", id, err)
	}
	return s, nil
}

// GetAllShipToShoreTransfers lists entries highest priority first.
func (database *Database) GetAllShipToShoreTransfers() ([]types.ShipToShoreTransfer, error) {
	rows, err := database.readDb.QueryContext(database.ctx,
		"SELECT "+shipToShoreColumns+" FROM ship_to_shore_transfers ORDER BY priority, long_name")
	if err != nil {
		return nil, fmt.Errorf("GetAllShipToShoreTransfers: error querying: %w", err)
	}
	defer rows.Close()

	out := []types.ShipToShoreTransfer{}
	for rows.Next() {
		s, err := scanShipToShore(rows)
		if err != nil {
			return nil, fmt.Errorf("GetAllShipToShoreTransfers: error scanning row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (database *Database) CreateShipToShoreTransfer(tx *sql.Tx, s types.ShipToShoreTransfer) (id int64, err error) {
	err = database.withTx("CreateShipToShoreTransfer", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx, `
            INSERT INTO ship_to_shore_transfers
                (name, long_name, priority, collection_system, extra_directory, include_filter, enable, required)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        `, s.Name, s.LongName, s.Priority, s.CollectionSystem, s.ExtraDirectory, s.IncludeFilter,
			boolToInt64(s.Enable), boolToInt64(s.Required))
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("a ship-to-shore transfer named %q already exists", s.Name))
			}
			return fmt.Errorf("CreateShipToShoreTransfer: error inserting: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (database *Database) UpdateShipToShoreTransfer(tx *sql.Tx, s types.ShipToShoreTransfer) error {
	return database.withTx("UpdateShipToShoreTransfer", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx, `
            UPDATE ship_to_shore_transfers
            SET name = ?, long_name = ?, priority = ?, collection_system = ?, extra_directory = ?,
                include_filter = ?, enable = ?
            WHERE id = ?
        `, s.Name, s.LongName, s.Priority, s.CollectionSystem, s.ExtraDirectory, s.IncludeFilter,
			boolToInt64(s.Enable), s.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("a ship-to-shore transfer named %q already exists", s.Name))
			}
			return fmt.Errorf("UpdateShipToShoreTransfer: error updating %d: %w", s.ID, err)
		}
		return expectOneRow(res, ErrShipToShoreNotFound)
	})
}

func (database *Database) SetShipToShoreTransferEnabled(tx *sql.Tx, id int64, enable bool) error {
	return database.withTx("SetShipToShoreTransferEnabled", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx,
			"UPDATE ship_to_shore_transfers SET enable = ? WHERE id = ?", boolToInt64(enable), id)
		if err != nil {
			return fmt.Errorf("SetShipToShoreTransferEnabled: error updating %d: %w", id, err)
		}
		return expectOneRow(res, ErrShipToShoreNotFound)
	})
}

func (database *Database) DeleteShipToShoreTransfer(tx *sql.Tx, id int64) error {
	return database.withTx("DeleteShipToShoreTransfer", tx, func(tx *sql.Tx) error {
		return deleteUnlessRequired(database, tx, "ship_to_shore_transfers", id,
			ErrShipToShoreNotFound, "required ship-to-shore transfers cannot be deleted")
	})
}
