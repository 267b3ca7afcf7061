package model

import "time"

// Role is the closed set of account roles. Authorization decisions switch
// exhaustively on this type rather than comparing raw strings.
type Role string

const (
	RoleAdmin     Role = "ADMIN"      // platform operator
	RoleFirmAdmin Role = "FIRM_ADMIN" // manages one firm's trips and coupons
	RoleCustomer  Role = "CUSTOMER"   // buys tickets
)

// ParseRole normalizes a raw role string. The boolean is false for values
// outside the known set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleFirmAdmin, RoleCustomer:
		return Role(s), true
	}
	return "", false
}

// User mirrors the `users` table. FirmID is set only for FIRM_ADMIN
// accounts. CreditCents is the prepaid balance in kurus and is mutated
// exclusively by the purchase and cancellation transactions plus top-ups.
//
// Fields:
//  ID           – primary key identifier.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Role         – account role (ADMIN, FIRM_ADMIN, CUSTOMER).
//  FirmID       – owning firm for firm admins (nullable).
//  CreditCents  – prepaid balance, never negative.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	FirmID       *uint64   // users.firm_id (nullable)
	CreditCents  int64     // users.credit_cents
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
