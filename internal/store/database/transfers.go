package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
	"github.com/openvdm/openvdm-web/internal/syslog"
)

const transferColumns = `
    id, kind, name, long_name, transfer_type, source_dir, dest_dir,
    rsync_server, rsync_user, rsync_pass,
    smb_server, smb_user, smb_pass, smb_domain,
    ssh_server, ssh_user, ssh_use_key, ssh_pass,
    nfs_server,
    include_filter, exclude_filter, ignore_filter,
    staleness, use_start_date, local_dir_is_mount_point, bandwidth_limit,
    remove_source_files, skip_empty_dirs, skip_empty_files, sync_with_remote,
    include_ovdm_files, excluded_collection_systems, excluded_extra_directories,
    cruise_or_lowering, status, enable, pid, required`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (types.Transfer, error) {
	var t types.Transfer
	var kind string
	var sshUseKey, staleness, useStartDate, mountPoint, removeSource int64
	var skipDirs, skipFiles, syncRemote, includeOVDM, enable, required int64
	var excludedCS, excludedED string

	err := row.Scan(
		&t.ID, &kind, &t.Name, &t.LongName, &t.TransferType, &t.SourceDir, &t.DestDir,
		&t.RsyncServer, &t.RsyncUser, &t.RsyncPass,
		&t.SMBServer, &t.SMBUser, &t.SMBPass, &t.SMBDomain,
		&t.SSHServer, &t.SSHUser, &sshUseKey, &t.SSHPass,
		&t.NFSServer,
		&t.IncludeFilter, &t.ExcludeFilter, &t.IgnoreFilter,
		&staleness, &useStartDate, &mountPoint, &t.BandwidthLimit,
		&removeSource, &skipDirs, &skipFiles, &syncRemote,
		&includeOVDM, &excludedCS, &excludedED,
		&t.CruiseOrLowering, &t.Status, &enable, &t.PID, &required,
	)
	if err != nil {
		return types.Transfer{}, err
	}

	t.Kind = types.TransferKind(kind)
	t.SSHUseKey = int64ToBool(sshUseKey)
	t.Staleness = int64ToBool(staleness)
	t.UseStartDate = int64ToBool(useStartDate)
	t.LocalDirIsMountPoint = int64ToBool(mountPoint)
	t.RemoveSourceFiles = int64ToBool(removeSource)
	t.SkipEmptyDirs = int64ToBool(skipDirs)
	t.SkipEmptyFiles = int64ToBool(skipFiles)
	t.SyncWithRemote = int64ToBool(syncRemote)
	t.IncludeOVDMFiles = int64ToBool(includeOVDM)
	t.ExcludedCollectionSystems = splitIDs(excludedCS)
	t.ExcludedExtraDirectories = splitIDs(excludedED)
	t.Enable = int64ToBool(enable)
	t.Required = int64ToBool(required)

	return t, nil
}

func (database *Database) GetTransfer(id int64) (types.Transfer, error) {
	row := database.readDb.QueryRowContext(database.ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE id = ?", id)

	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Transfer{}, ErrTransferNotFound
	}
	if err != nil {
		return types.Transfer{}, fmt.Errorf("GetTransfer: error fetching transfer %d: %w", id, err)
	}

	return t, nil
}

// GetTransferByName looks up a transfer by its per-kind unique name.
func (database *Database) GetTransferByName(kind types.TransferKind, name string) (types.Transfer, error) {
	row := database.readDb.QueryRowContext(database.ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE kind = ? AND name = ?", string(kind), name)

	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Transfer{}, ErrTransferNotFound
	}
	if err != nil {
		return types.Transfer{}, fmt.Errorf("GetTransferByName: error fetching transfer %q: %w", name, err)
	}

	return t, nil
}

func (database *Database) GetAllTransfers(filter types.TransferFilter) ([]types.Transfer, error) {
	var where []string
	var args []any

	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []types.Transfer{}, nil
		}
		where = append(where, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Enabled != nil {
		where = append(where, "enable = ?")
		args = append(args, boolToInt64(*filter.Enabled))
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, int(s))
		}
	}

	query := "SELECT " + transferColumns + " FROM transfers"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY kind, long_name, id"

	rows, err := database.readDb.QueryContext(database.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetAllTransfers: error querying transfers: %w", err)
	}
	defer rows.Close()

	transfers := []types.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			syslog.L.Error(fmt.Errorf("GetAllTransfers: error scanning row: %w", err)).Write()
			continue
		}
		transfers = append(transfers, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("GetAllTransfers: error iterating transfer rows: %w", err)
	}

	return transfers, nil
}

func (database *Database) CreateTransfer(tx *sql.Tx, t types.Transfer) (id int64, err error) {
	if !t.Kind.Valid() {
		return 0, fmt.Errorf("CreateTransfer: invalid kind %q", t.Kind)
	}
	if t.Name == "" {
		return 0, errors.New("CreateTransfer: name is empty")
	}

	err = database.withTx("CreateTransfer", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx, `
            INSERT INTO transfers (
                kind, name, long_name, transfer_type, source_dir, dest_dir,
                rsync_server, rsync_user, rsync_pass,
                smb_server, smb_user, smb_pass, smb_domain,
                ssh_server, ssh_user, ssh_use_key, ssh_pass,
                nfs_server,
                include_filter, exclude_filter, ignore_filter,
                staleness, use_start_date, local_dir_is_mount_point, bandwidth_limit,
                remove_source_files, skip_empty_dirs, skip_empty_files, sync_with_remote,
                include_ovdm_files, excluded_collection_systems, excluded_extra_directories,
                cruise_or_lowering, status, enable, pid, required
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        `, string(t.Kind), t.Name, t.LongName, int(t.TransferType), t.SourceDir, t.DestDir,
			t.RsyncServer, t.RsyncUser, t.RsyncPass,
			t.SMBServer, t.SMBUser, t.SMBPass, t.SMBDomain,
			t.SSHServer, t.SSHUser, boolToInt64(t.SSHUseKey), t.SSHPass,
			t.NFSServer,
			t.IncludeFilter, t.ExcludeFilter, t.IgnoreFilter,
			boolToInt64(t.Staleness), boolToInt64(t.UseStartDate), boolToInt64(t.LocalDirIsMountPoint), t.BandwidthLimit,
			boolToInt64(t.RemoveSourceFiles), boolToInt64(t.SkipEmptyDirs), boolToInt64(t.SkipEmptyFiles), boolToInt64(t.SyncWithRemote),
			boolToInt64(t.IncludeOVDMFiles), joinIDs(t.ExcludedCollectionSystems), joinIDs(t.ExcludedExtraDirectories),
			int(t.CruiseOrLowering), int(t.Status), boolToInt64(t.Enable), t.PID, boolToInt64(t.Required))
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("a transfer named %q already exists", t.Name))
			}
			return fmt.Errorf("CreateTransfer: error inserting transfer: %w", err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("CreateTransfer: error reading inserted id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UpdateTransfer writes the configuration columns of t. Lifecycle columns
// (status, enable, pid) and the required flag are only changed through
// PatchTransfer.
func (database *Database) UpdateTransfer(tx *sql.Tx, t types.Transfer) error {
	return database.withTx("UpdateTransfer", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx, `
            UPDATE transfers SET
                name = ?, long_name = ?, transfer_type = ?, source_dir = ?, dest_dir = ?,
                rsync_server = ?, rsync_user = ?, rsync_pass = ?,
                smb_server = ?, smb_user = ?, smb_pass = ?, smb_domain = ?,
                ssh_server = ?, ssh_user = ?, ssh_use_key = ?, ssh_pass = ?,
                nfs_server = ?,
                include_filter = ?, exclude_filter = ?, ignore_filter = ?,
                staleness = ?, use_start_date = ?, local_dir_is_mount_point = ?, bandwidth_limit = ?,
                remove_source_files = ?, skip_empty_dirs = ?, skip_empty_files = ?, sync_with_remote = ?,
                include_ovdm_files = ?, excluded_collection_systems = ?, excluded_extra_directories = ?,
                cruise_or_lowering = ?
            WHERE id = ?
        `, t.Name, t.LongName, int(t.TransferType), t.SourceDir, t.DestDir,
			t.RsyncServer, t.RsyncUser, t.RsyncPass,
			t.SMBServer, t.SMBUser, t.SMBPass, t.SMBDomain,
			t.SSHServer, t.SSHUser, boolToInt64(t.SSHUseKey), t.SSHPass,
			t.NFSServer,
			t.IncludeFilter, t.ExcludeFilter, t.IgnoreFilter,
			boolToInt64(t.Staleness), boolToInt64(t.UseStartDate), boolToInt64(t.LocalDirIsMountPoint), t.BandwidthLimit,
			boolToInt64(t.RemoveSourceFiles), boolToInt64(t.SkipEmptyDirs), boolToInt64(t.SkipEmptyFiles), boolToInt64(t.SyncWithRemote),
			boolToInt64(t.IncludeOVDMFiles), joinIDs(t.ExcludedCollectionSystems), joinIDs(t.ExcludedExtraDirectories),
			int(t.CruiseOrLowering), t.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("a transfer named %q already exists", t.Name))
			}
			return fmt.Errorf("UpdateTransfer: error updating transfer %d: %w", t.ID, err)
		}

		return expectOneRow(res, ErrTransferNotFound)
	})
}

func (database *Database) PatchTransfer(tx *sql.Tx, id int64, patch types.TransferPatch) error {
	if patch.Empty() {
		return nil
	}

	var sets []string
	var args []any
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, int(*patch.Status))
	}
	if patch.Enable != nil {
		sets = append(sets, "enable = ?")
		args = append(args, boolToInt64(*patch.Enable))
	}
	if patch.PID != nil {
		sets = append(sets, "pid = ?")
		args = append(args, *patch.PID)
	}
	args = append(args, id)

	return database.withTx("PatchTransfer", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx,
			"UPDATE transfers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return fmt.Errorf("PatchTransfer: error updating transfer %d: %w", id, err)
		}
		return expectOneRow(res, ErrTransferNotFound)
	})
}

func (database *Database) DeleteTransfer(tx *sql.Tx, id int64) error {
	return database.withTx("DeleteTransfer", tx, func(tx *sql.Tx) error {
		var required int64
		err := tx.QueryRowContext(database.ctx, "SELECT required FROM transfers WHERE id = ?", id).Scan(&required)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTransferNotFound
		}
		if err != nil {
			return fmt.Errorf("DeleteTransfer: error fetching transfer %d: %w", id, err)
		}
		if int64ToBool(required) {
			return errtypes.Conflict("required transfers cannot be deleted")
		}

		if _, err := tx.ExecContext(database.ctx, "DELETE FROM transfers WHERE id = ?", id); err != nil {
			return fmt.Errorf("DeleteTransfer: error deleting transfer %d: %w", id, err)
		}
		return nil
	})
}

func expectOneRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
