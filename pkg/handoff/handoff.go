// Package handoff passes a newly created account to the dashboard. The
// success modal's two actions redirect with a short-lived signed token that
// the dashboard verifies.
package handoff

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gabrielmiguelok/agentsignup/pkg/registration"
)

const issuerName = "agentsignup"

var (
	// ErrInvalidToken is returned for malformed or tampered tokens.
	ErrInvalidToken = errors.New("handoff: invalid token")

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("handoff: token has expired")
)

// Destination is one of the success modal's terminal actions.
type Destination int

const (
	// GetStarted opens the dashboard with the onboarding tour.
	GetStarted Destination = iota
	// SkipTour opens the dashboard directly.
	SkipTour
)

// Claims are carried by a hand-off token.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies hand-off tokens.
type Issuer struct {
	signingKey    []byte
	ttl           time.Duration
	dashboardPath string
	now           func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock sets the clock used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer creates an issuer signing with HS256.
func NewIssuer(signingKey string, ttl time.Duration, dashboardPath string, opts ...Option) *Issuer {
	i := &Issuer{
		signingKey:    []byte(signingKey),
		ttl:           ttl,
		dashboardPath: dashboardPath,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// DashboardPath returns the dashboard destination path.
func (i *Issuer) DashboardPath() string {
	return i.dashboardPath
}

// Issue signs a token for the created account.
func (i *Issuer) Issue(receipt registration.Receipt, email string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: receipt.AccountID.String(),
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   receipt.AccountID.String(),
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign handoff token: %w", err)
	}
	return signed, nil
}

// RedirectURL builds the dashboard URL for dest.
func (i *Issuer) RedirectURL(receipt registration.Receipt, email string, dest Destination) (string, error) {
	token, err := i.Issue(receipt, email)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("token", token)
	if dest == GetStarted {
		q.Set("tour", "1")
	}
	return i.dashboardPath + "?" + q.Encode(), nil
}

// Verify parses and validates a token.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.AccountID); err != nil {
		return nil, fmt.Errorf("%w: account id", ErrInvalidToken)
	}
	return claims, nil
}
