package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/otorez/bus-reservation/internal/model"
)

// FirmRepo provides CRUD operations for travel firms.
type FirmRepo struct{ DB *sql.DB }

func NewFirmRepo(db *sql.DB) *FirmRepo { return &FirmRepo{DB: db} }

// CreateTx inserts a firm within an existing transaction and returns its
// ID. Firm creation always runs transactionally because the admin flow
// creates the firm-admin account in the same unit of work.
func (r *FirmRepo) CreateTx(ctx context.Context, tx *sql.Tx, name string) (uint64, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO firms (name) VALUES (?)", strings.TrimSpace(name))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a firm by id.
func (r *FirmRepo) GetByID(ctx context.Context, id uint64) (model.Firm, error) {
	var f model.Firm
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM firms WHERE id=? LIMIT 1", id).
		Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Firm{}, ErrNotFound
	}
	return f, err
}

// List returns all firms ordered by name.
func (r *FirmRepo) List(ctx context.Context) ([]model.Firm, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, created_at FROM firms ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Firm
	for rows.Next() {
		var f model.Firm
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes a firm. Trips, coupons and firm-admin users reference
// firms, so a firm with dependents fails with ErrConflict.
func (r *FirmRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM firms WHERE id=?", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
