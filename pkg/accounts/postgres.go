package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

// ErrEmailTaken is returned when an account already uses the email address.
var ErrEmailTaken = errors.New("accounts: email already registered")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	cost  int
	clock func() time.Time
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) PostgresOption {
	return func(p *PostgresStore) {
		p.cost = cost
	}
}

// WithPostgresClock sets the clock used for created_at.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(p *PostgresStore) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgresStore constructs a PostgreSQL-backed account creator.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	p := &PostgresStore{
		db:    db,
		cost:  bcrypt.DefaultCost,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// EnsureSchema creates the accounts table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// CreateAccount hashes the password and inserts the account.
func (p *PostgresStore) CreateAccount(ctx context.Context, form registration.FormState) (registration.Receipt, error) {
	hash, err := hashPassword(form.Password, p.cost)
	if err != nil {
		return registration.Receipt{}, err
	}

	receipt := registration.Receipt{
		AccountID: uuid.New(),
		CreatedAt: p.clock().UTC(),
	}
	prefs := form.CommunicationPreferences

	query := `
		INSERT INTO agent_accounts (
			id, first_name, last_name, email, phone, state, city, brokerage,
			license_number, experience, transaction_volume, mls_id, nar_id,
			specializations, website, timezone, password_hash,
			email_notifications, sms_notifications, marketing_emails, weekly_reports,
			consent_to_communications, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23
		)
	`
	_, err = p.db.ExecContext(ctx, query,
		receipt.AccountID,
		strings.TrimSpace(form.FirstName),
		strings.TrimSpace(form.LastName),
		strings.TrimSpace(form.Email),
		strings.TrimSpace(form.Phone),
		form.State,
		strings.TrimSpace(form.City),
		form.BrokerageName(),
		strings.TrimSpace(form.LicenseNumber),
		form.Experience,
		form.TransactionVolume,
		strings.TrimSpace(form.MLSID),
		strings.TrimSpace(form.NARID),
		pq.Array(form.Specializations.Values()),
		strings.TrimSpace(form.Website),
		form.Timezone,
		hash,
		prefs.EmailNotifications,
		prefs.SMSNotifications,
		prefs.MarketingEmails,
		prefs.WeeklyReports,
		form.ConsentToCommunications,
		receipt.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return registration.Receipt{}, ErrEmailTaken
		}
		return registration.Receipt{}, fmt.Errorf("insert account: %w", err)
	}
	return receipt, nil
}

func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("accounts: password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
