package repository

import (
	"context"
	"database/sql"

	"github.com/otorez/bus-reservation/internal/model"
)

// TicketRepo provides ticket persistence. The availability check and the
// insert both run inside the purchase transaction; the uniq_active_seat
// key is the final defense when two transactions race past the check for
// the same seat: the loser's insert fails with a duplicate-key error
// that surfaces as ErrSeatTaken.
type TicketRepo struct{ DB *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{DB: db} }

const ticketCols = "id, user_id, trip_id, seat_number, status, paid_cents, coupon_id, created_at"

func scanTicket(scan func(dest ...any) error) (model.Ticket, error) {
	var (
		t        model.Ticket
		couponID sql.NullInt64
	)
	err := scan(&t.ID, &t.UserID, &t.TripID, &t.SeatNumber, &t.Status, &t.PaidCents, &couponID, &t.CreatedAt)
	if err != nil {
		return model.Ticket{}, err
	}
	if couponID.Valid {
		id := uint64(couponID.Int64)
		t.CouponID = &id
	}
	return t, nil
}

// SeatTakenTx reports whether an active ticket holds the seat, read within
// the purchase transaction.
func (r *TicketRepo) SeatTakenTx(ctx context.Context, tx *sql.Tx, tripID uint64, seatNumber uint32) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE trip_id=? AND seat_number=? AND status='active'",
		tripID, seatNumber).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateTx inserts an active ticket within tx and populates the generated
// ID. A duplicate on the active-seat key means a concurrent purchase
// committed the same seat first.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO tickets (user_id, trip_id, seat_number, status, paid_cents, coupon_id) VALUES (?,?,?,'active',?,?)",
		t.UserID, t.TripID, t.SeatNumber, t.PaidCents, t.CouponID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrSeatTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.TicketActive
	return nil
}

// CancelTx flips an active ticket to cancelled within tx. The status
// condition makes the flip race-free: a concurrent cancellation of the
// same ticket matches zero rows and reports ErrTicketCancelled.
func (r *TicketRepo) CancelTx(ctx context.Context, tx *sql.Tx, ticketID uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE tickets SET status='cancelled' WHERE id=? AND status='active'", ticketID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTicketCancelled
	}
	return nil
}

// GetByID fetches a ticket by id.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	t, err := scanTicket(r.DB.QueryRowContext(ctx,
		"SELECT "+ticketCols+" FROM tickets WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return model.Ticket{}, ErrNotFound
	}
	return t, err
}

// GetByIDTx fetches a ticket inside an existing transaction; cancellation
// re-reads the row under the same unit of work that flips it.
func (r *TicketRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Ticket, error) {
	t, err := scanTicket(tx.QueryRowContext(ctx,
		"SELECT "+ticketCols+" FROM tickets WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return model.Ticket{}, ErrNotFound
	}
	return t, err
}

// ListByUser returns the user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ticketCols+" FROM tickets WHERE user_id=? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// OccupiedSeats returns the seat numbers held by active tickets on a trip,
// ascending. Feeds the public seat map.
func (r *TicketRepo) OccupiedSeats(ctx context.Context, tripID uint64) ([]uint32, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT seat_number FROM tickets WHERE trip_id=? AND status='active' ORDER BY seat_number", tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint32
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
