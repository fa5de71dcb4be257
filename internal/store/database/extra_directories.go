package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
)

const extraDirectoryColumns = "id, name, long_name, dest_dir, cruise_or_lowering, enable, required"

func scanExtraDirectory(row rowScanner) (types.ExtraDirectory, error) {
	var d types.ExtraDirectory
	var enable, required int64
	if err := row.Scan(&d.ID, &d.Name, &d.LongName, &d.DestDir, &d.CruiseOrLowering, &enable, &required); err != nil {
		return types.ExtraDirectory{}, err
	}
	d.Enable = int64ToBool(enable)
	d.Required = int64ToBool(required)
	return d, nil
}

func (database *Database) GetExtraDirectory(id int64) (types.ExtraDirectory, error) {
	row := database.readDb.QueryRowContext(database.ctx,
		"SELECT "+extraDirectoryColumns+" FROM extra_directories WHERE id = ?", id)
	d, err := scanExtraDirectory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ExtraDirectory{}, ErrExtraDirectoryNotFound
	}
	if err != nil {
		return types.ExtraDirectory{}, fmt.Errorf("GetExtraDirectory: error fetching %d: %w", id, err)
	}
	return d, nil
}

func (database *Database) GetAllExtraDirectories() ([]types.ExtraDirectory, error) {
	rows, err := database.readDb.QueryContext(database.ctx,
		"SELECT "+extraDirectoryColumns+" FROM extra_directories ORDER BY required DESC, long_name")
	if err != nil {
		return nil, fmt.Errorf("GetAllExtraDirectories: error querying: %w", err)
	}
	defer rows.Close()

	dirs := []types.ExtraDirectory{}
	for rows.Next() {
		d, err := scanExtraDirectory(rows)
		if err != nil {
			return nil, fmt.Errorf("GetAllExtraDirectories: error scanning row: %w", err)
		}
		dirs = append(dirs, d)
	}
	return dirs, rows.Err()
}

func (database *Database) CreateExtraDirectory(tx *sql.Tx, d types.ExtraDirectory) (id int64, err error) {
	err = database.withTx("CreateExtraDirectory", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx, `
            INSERT INTO extra_directories (name, long_name, dest_dir, cruise_or_lowering, enable, required)
            VALUES (?, ?, ?, ?, ?, ?)
        `, d.Name, d.LongName, d.DestDir, int(d.CruiseOrLowering), boolToInt64(d.Enable), boolToInt64(d.Required))
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("an extra directory named %q already exists", d.Name))
			}
			return fmt.Errorf("CreateExtraDirectory: error inserting: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (database *Database) UpdateExtraDirectory(tx *sql.Tx, d types.ExtraDirectory) error {
	return database.withTx("UpdateExtraDirectory", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx, `
            UPDATE extra_directories
            SET name = ?, long_name = ?, dest_dir = ?, cruise_or_lowering = ?, enable = ?
            WHERE id = ?
        `, d.Name, d.LongName, d.DestDir, int(d.CruiseOrLowering), boolToInt64(d.Enable), d.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("an extra directory named %q already exists", d.Name))
			}
			return fmt.Errorf("UpdateExtraDirectory: error updating %d: %w", d.ID, err)
		}
		return expectOneRow(res, ErrExtraDirectoryNotFound)
	})
}

func (database *Database) SetExtraDirectoryEnabled(tx *sql.Tx, id int64, enable bool) error {
	return database.withTx("SetExtraDirectoryEnabled", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx,
			"UPDATE extra_directories SET enable = ? WHERE id = ?", boolToInt64(enable), id)
		if err != nil {
			return fmt.Errorf("SetExtraDirectoryEnabled: error updating %d: %w", id, err)
		}
		return expectOneRow(res, ErrExtraDirectoryNotFound)
	})
}

func (database *Database) DeleteExtraDirectory(tx *sql.Tx, id int64) error {
	return database.withTx("DeleteExtraDirectory", tx, func(tx *sql.Tx) error {
		return deleteUnlessRequired(database, tx, "extra_directories", id,
			ErrExtraDirectoryNotFound, "required extra directories cannot be deleted")
	})
}

// deleteUnlessRequired removes row id of table, refusing rows flagged
// required. table is always a package constant.
func deleteUnlessRequired(database *Database, tx *sql.Tx, table string, id int64, notFound error, conflict string) error {
	var required int64
	err := tx.QueryRowContext(database.ctx, "SELECT required FROM "+table+" WHERE id = ?", id).Scan(&required)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("delete from %s: error fetching %d: %w", table, id, err)
	}
	if int64ToBool(required) {
		return errtypes.Conflict(conflict)
	}
	if _, err := tx.ExecContext(database.ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete from %s: error deleting %d: %w", table, id, err)
	}
	return nil
}
