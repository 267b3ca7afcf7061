package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// RefundPolicy selects which amount a cancellation credits back.
type RefundPolicy string

const (
	// RefundOriginalPrice refunds the trip's listed price regardless of any
	// coupon discount at purchase. This matches the historical behavior.
	RefundOriginalPrice RefundPolicy = "original_price"
	// RefundAmountPaid refunds exactly what the buyer was debited.
	RefundAmountPaid RefundPolicy = "amount_paid"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, and a time.Location for business-time comparisons.
type Config struct {
	Env            string         // application environment (e.g. "dev", "prod")
	Port           string         // HTTP port to listen on
	DBUser         string         // database username
	DBPass         string         // database password (optional)
	DBHost         string         // database host address
	DBPort         string         // database port number
	DBName         string         // database name
	JWTSecret      string         // secret used to sign JWTs
	AccessTTLMin   int            // access token time-to-live in minutes
	RefreshTTLDays int            // refresh token time-to-live in days
	BcryptCost     int            // bcrypt cost for password hashing
	BusinessTZ     *time.Location // timezone for expiry and cutoff rules
	Refund         RefundPolicy   // cancellation refund policy
	TopupMaxCents  int64          // maximum single credit top-up in kurus
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		BusinessTZ:     loadLocation(getenv("BUSINESS_TZ", "Europe/Istanbul")),
		Refund:         loadRefundPolicy(getenv("REFUND_POLICY", string(RefundOriginalPrice))),
		TopupMaxCents:  int64(atoi(getenv("TOPUP_MAX_CENTS", "1000000"))),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid BUSINESS_TZ %q: %v", name, err)
	}
	return loc
}

func loadRefundPolicy(s string) RefundPolicy {
	switch RefundPolicy(s) {
	case RefundOriginalPrice, RefundAmountPaid:
		return RefundPolicy(s)
	}
	log.Fatalf("invalid REFUND_POLICY %q (want original_price or amount_paid)", s)
	return ""
}
