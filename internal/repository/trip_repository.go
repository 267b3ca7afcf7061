package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/otorez/bus-reservation/internal/model"
)

// TripRepo provides trip catalog persistence. Trips are read-mostly: the
// purchase path only ever reads them, while firm admins create and delete
// them. Departure date/time columns are scanned as plain strings because
// they represent wall-clock values in the business timezone, not instants.
type TripRepo struct{ DB *sql.DB }

func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{DB: db} }

const tripCols = "id, firm_id, from_city, to_city, DATE_FORMAT(depart_date,'%Y-%m-%d'), TIME_FORMAT(depart_time,'%H:%i'), price_cents, seats, bus_layout, created_at"

func scanTrip(scan func(dest ...any) error) (model.Trip, error) {
	var (
		t      model.Trip
		layout string
	)
	err := scan(&t.ID, &t.FirmID, &t.FromCity, &t.ToCity, &t.DepartDate, &t.DepartTime,
		&t.PriceCents, &t.Seats, &layout, &t.CreatedAt)
	if err != nil {
		return model.Trip{}, err
	}
	t.BusLayout = model.ParseBusLayout(layout)
	return t, nil
}

// Create inserts a trip and returns its ID.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO trips (firm_id, from_city, to_city, depart_date, depart_time, price_cents, seats, bus_layout)
		 VALUES (?,?,?,?,?,?,?,?)`,
		t.FirmID, strings.TrimSpace(t.FromCity), strings.TrimSpace(t.ToCity),
		t.DepartDate, t.DepartTime, t.PriceCents, t.Seats, string(t.BusLayout))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a trip by id.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (model.Trip, error) {
	t, err := scanTrip(r.DB.QueryRowContext(ctx,
		"SELECT "+tripCols+" FROM trips WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return model.Trip{}, ErrNotFound
	}
	return t, err
}

// GetByIDTx fetches a trip inside an existing transaction so the purchase
// path prices the seat from the same snapshot it inserts into.
func (r *TripRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Trip, error) {
	t, err := scanTrip(tx.QueryRowContext(ctx,
		"SELECT "+tripCols+" FROM trips WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return model.Trip{}, ErrNotFound
	}
	return t, err
}

// SearchFilter narrows the trip listing. Zero values mean "no filter";
// city filters match substrings like the original search screen did.
type SearchFilter struct {
	FromCity string
	ToCity   string
	Date     string // YYYY-MM-DD
	FirmID   uint64
}

// Search returns trips matching the filter ordered by departure.
func (r *TripRepo) Search(ctx context.Context, f SearchFilter) ([]model.Trip, error) {
	query := "SELECT " + tripCols + " FROM trips WHERE 1=1"
	args := make([]any, 0, 4)
	if f.FromCity != "" {
		query += " AND from_city LIKE ?"
		args = append(args, "%"+f.FromCity+"%")
	}
	if f.ToCity != "" {
		query += " AND to_city LIKE ?"
		args = append(args, "%"+f.ToCity+"%")
	}
	if f.Date != "" {
		query += " AND depart_date = ?"
		args = append(args, f.Date)
	}
	if f.FirmID != 0 {
		query += " AND firm_id = ?"
		args = append(args, f.FirmID)
	}
	query += " ORDER BY depart_date, depart_time"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete removes a trip owned by firmID. The firm check keeps one firm
// admin from deleting another firm's trip. Trips with sold tickets fail
// with ErrConflict via the foreign key.
func (r *TripRepo) Delete(ctx context.Context, id, firmID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM trips WHERE id=? AND firm_id=?", id, firmID)
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
