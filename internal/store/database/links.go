package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/openvdm/openvdm-web/internal/errtypes"
	"github.com/openvdm/openvdm-web/internal/store/types"
)

func scanLink(row rowScanner) (types.Link, error) {
	var l types.Link
	var enable, private int64
	if err := row.Scan(&l.ID, &l.Name, &l.URL, &enable, &private); err != nil {
		return types.Link{}, err
	}
	l.Enable = int64ToBool(enable)
	l.Private = int64ToBool(private)
	return l, nil
}

func (database *Database) GetLink(id int64) (types.Link, error) {
	row := database.readDb.QueryRowContext(database.ctx,
		"SELECT id, name, url, enable, private FROM links WHERE id = ?", id)
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Link{}, ErrLinkNotFound
	}
	if err != nil {
		return types.Link{}, fmt.Errorf("GetLink: error fetching %d: %w", id, err)
	}
	return l, nil
}

func (database *Database) GetAllLinks() ([]types.Link, error) {
	rows, err := database.readDb.QueryContext(database.ctx,
		"SELECT id, name, url, enable, private FROM links ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("GetAllLinks: error querying: %w", err)
	}
	defer rows.Close()

	links := []types.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("GetAllLinks: error scanning row: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (database *Database) CreateLink(tx *sql.Tx, l types.Link) (id int64, err error) {
	err = database.withTx("CreateLink", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx,
			"INSERT INTO links (name, url, enable, private) VALUES (?, ?, ?, ?)",
			l.Name, l.URL, boolToInt64(l.Enable), boolToInt64(l.Private))
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("a link named %q already exists", l.Name))
			}
			return fmt.Errorf("CreateLink: error inserting: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (database *Database) UpdateLink(tx *sql.Tx, l types.Link) error {
	return database.withTx("UpdateLink", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx,
			"UPDATE links SET name = ?, url = ?, enable = ?, private = ? WHERE id = ?",
			l.Name, l.URL, boolToInt64(l.Enable), boolToInt64(l.Private), l.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return errtypes.Conflict(fmt.Sprintf("a link named %q already exists", l.Name))
			}
			return fmt.Errorf("UpdateLink: error updating %d: %w", l.ID, err)
		}
		return expectOneRow(res, ErrLinkNotFound)
	})
}

func (database *Database) SetLinkEnabled(tx *sql.Tx, id int64, enable bool) error {
	return database.withTx("SetLinkEnabled", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx,
			"UPDATE links SET enable = ? WHERE id = ?", boolToInt64(enable), id)
		if err != nil {
			return fmt.Errorf("SetLinkEnabled: error updating %d: %w", id, err)
		}
		return expectOneRow(res, ErrLinkNotFound)
	})
}

func (database *Database) DeleteLink(tx *sql.Tx, id int64) error {
	return database.withTx("DeleteLink", tx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(database.ctx, "DELETE FROM links WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("DeleteLink: error deleting %d: %w", id, err)
		}
		return expectOneRow(res, ErrLinkNotFound)
	})
}
