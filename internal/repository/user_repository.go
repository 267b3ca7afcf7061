package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/otorez/bus-reservation/internal/model"
	"github.com/otorez/bus-reservation/internal/utils"
)

// UserRepo provides account persistence and the credit ledger. Balance
// mutations are single conditional statements so two concurrent requests
// can never interleave between a read and a write: a debit only succeeds
// when the balance still covers the amount at execution time.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id, username, password_hash, role, firm_id, credit_cents, created_at, updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u      model.User
		role   string
		firmID sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &firmID, &u.CreditCents, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role, _ = model.ParseRole(role)
	if firmID.Valid {
		id := uint64(firmID.Int64)
		u.FirmID = &id
	}
	return u, nil
}

// Create inserts a user and returns its ID. The password is hashed here so
// plain secrets never reach SQL. firmID must be non-nil iff role is
// FIRM_ADMIN; callers validate that pairing.
func (r *UserRepo) Create(ctx context.Context, username, password string, role model.Role, firmID *uint64, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, firm_id) VALUES (?,?,?,?)",
		username, hash, string(role), firmID)
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

// CreateTx is Create inside an existing transaction. Used when the admin
// creates a firm together with its firm-admin account atomically.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, username, password string, role model.Role, firmID *uint64, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, firm_id) VALUES (?,?,?,?)",
		username, hash, string(role), firmID)
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

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// List returns all users ordered by id. Admin screens only.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var (
			u      model.User
			role   string
			firmID sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &firmID, &u.CreditCents, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role, _ = model.ParseRole(role)
		if firmID.Valid {
			id := uint64(firmID.Int64)
			u.FirmID = &id
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// UpdateRole changes a user's role and firm affiliation. Passing a nil
// firmID clears the affiliation.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role, firmID *uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=?, firm_id=? WHERE id=?", string(role), firmID, id)
	if err != nil {
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

// Delete removes a user. Tickets keep a foreign key to users, so deleting
// an account with purchase history fails with ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
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

// DebitTx subtracts amount from the user's balance within tx. The WHERE
// clause re-checks the balance at execution time; zero affected rows means
// another writer drained the balance first and the debit is rejected
// without touching the row.
func (r *UserRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credit_cents = credit_cents - ? WHERE id = ? AND credit_cents >= ?",
		amountCents, userID, amountCents)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientCredit
	}
	return nil
}

// CreditTx adds amount to the user's balance within tx. Refunds always
// succeed; amount positivity is the caller's responsibility.
func (r *UserRepo) CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, amountCents int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credit_cents = credit_cents + ? WHERE id = ?", amountCents, userID)
	if err != nil {
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

// Credit is the non-transactional increment used for top-ups.
func (r *UserRepo) Credit(ctx context.Context, userID uint64, amountCents int64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET credit_cents = credit_cents + ? WHERE id = ?", amountCents, userID)
	if err != nil {
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
