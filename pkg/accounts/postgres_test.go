package accounts

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("Abc123!@", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Abc123!@", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Abc123!@")))

	_, err = hashPassword("", bcrypt.MinCost)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("exec: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23502"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}

// recordingConnector is a database/sql connector whose Exec calls are
// recorded and answered with execErr.
type recordingConnector struct {
	execErr error
	execs   [][]driver.NamedValue
}

func (c *recordingConnector) Connect(context.Context) (driver.Conn, error) { return &recordingConn{c}, nil }
func (c *recordingConnector) Driver() driver.Driver                       { return nil }

type recordingConn struct{ c *recordingConnector }

func (rc *recordingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (rc *recordingConn) Close() error              { return nil }
func (rc *recordingConn) Begin() (driver.Tx, error) { return nil, errors.New("tx not supported") }

func (rc *recordingConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (rc *recordingConn) ExecContext(_ context.Context, _ string, args []driver.NamedValue) (driver.Result, error) {
	rc.c.execs = append(rc.c.execs, args)
	if rc.c.execErr != nil {
		return nil, rc.c.execErr
	}
	return driver.RowsAffected(1), nil
}

func recordingStore(t *testing.T, execErr error) (*PostgresStore, *recordingConnector) {
	t.Helper()
	conn := &recordingConnector{execErr: execErr}
	db := sql.OpenDB(conn)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, WithBcryptCost(bcrypt.MinCost)), conn
}

func signupForm() registration.FormState {
	form := registration.NewFormState()
	form.FirstName = " Jane "
	form.LastName = "Doe"
	form.Email = "jane@realty.com"
	form.Phone = "555-0100"
	form.State = "CA"
	form.City = "San Diego"
	form.Brokerage = registration.BrokerageOther
	form.OtherBrokerage = "Smith Realty"
	form.LicenseNumber = "01234567"
	form.Experience = "3-5"
	form.Specializations = registration.NewSpecializationSet("luxury", "land")
	form.Password = "Abc123!@"
	form.ConfirmPassword = "Abc123!@"
	form.Timezone = "America/Los_Angeles"
	return form
}

func TestPostgresStore_CreateAccountArguments(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, conn := recordingStore(t, nil)
	store.clock = func() time.Time { return created }

	receipt, err := store.CreateAccount(context.Background(), signupForm())
	require.NoError(t, err)
	require.Len(t, conn.execs, 1)

	args := conn.execs[0]
	require.Len(t, args, 23)
	assert.Equal(t, receipt.AccountID, args[0].Value)
	assert.Equal(t, "Jane", args[1].Value)
	assert.Equal(t, "Smith Realty", args[7].Value)
	assert.Equal(t, created, args[22].Value)
	assert.Equal(t, created, receipt.CreatedAt)

	hash, ok := args[16].Value.(string)
	require.True(t, ok)
	assert.NotEqual(t, "Abc123!@", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Abc123!@")))
	for _, arg := range args {
		assert.NotEqual(t, "Abc123!@", arg.Value, "plaintext password stored at $%d", arg.Ordinal)
	}
}

func TestPostgresStore_DuplicateEmail(t *testing.T) {
	store, _ := recordingStore(t, &pq.Error{Code: "23505", Constraint: "agent_accounts_email_key"})

	_, err := store.CreateAccount(context.Background(), signupForm())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestPostgresStore_InsertFailure(t *testing.T) {
	store, _ := recordingStore(t, &pq.Error{Code: "53300"})

	_, err := store.CreateAccount(context.Background(), signupForm())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailTaken)
	assert.ErrorContains(t, err, "insert account")
}

func TestPostgresStore_EmptyPassword(t *testing.T) {
	store, conn := recordingStore(t, nil)
	form := signupForm()
	form.Password = ""

	_, err := store.CreateAccount(context.Background(), form)
	assert.Error(t, err)
	assert.Empty(t, conn.execs)
}
