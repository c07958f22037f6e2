// Package auth issues and verifies bearer credentials and decides whether a
// request may run a protected operation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/guttosm/tickerql/config"
)

// DefaultTokenTTL applies when neither the caller nor the configuration picks a lifetime.
const DefaultTokenTTL = 30 * time.Minute

// Reasons a credential is rejected. Callers of Verify only see Result.Valid;
// the reason is kept for logs.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
)

// Result is the outcome of verifying a credential.
type Result struct {
	Subject string
	Valid   bool
	Reason  error
}

// Verifier checks a presented token.
type Verifier interface {
	Verify(token string) Result
}

// CredentialService mints and checks HS256-signed JWTs carrying a subject and an expiry.
// It keeps no state besides its configuration.
type CredentialService struct {
	secret     []byte
	defaultTTL time.Duration
	method     jwt.SigningMethod
	parser     *jwt.Parser
	now        func() time.Time
}

// Option customizes a CredentialService.
type Option func(*CredentialService)

// WithClock replaces time.Now, used for both expiry computation and checks.
func WithClock(now func() time.Time) Option {
	return func(s *CredentialService) { s.now = now }
}

// NewCredentialService builds the service from the auth section of the configuration.
//
// Parameters:
//   - cfg (config.AuthConfig): signing secret and default token lifetime.
//   - opts: optional overrides (e.g., WithClock in tests).
//
// Returns:
//   - *CredentialService: ready to Issue and Verify tokens.
func NewCredentialService(cfg config.AuthConfig, opts ...Option) *CredentialService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &CredentialService{
		secret:     []byte(cfg.JWTSecret),
		defaultTTL: ttl,
		method:     jwt.SigningMethodHS256,
		now:        time.Now,
	}
	// Expiry is checked against s.now rather than the library clock.
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a token for subject that expires ttl from now.
// A non-positive ttl falls back to the configured default.
func (s *CredentialService) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify decodes token and checks its signature and expiry.
//
// It never fails loudly: malformed input, a signature mismatch, an unexpected
// algorithm, a missing subject or an elapsed expiry all give Valid=false.
func (s *CredentialService) Verify(token string) Result {
	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Result{Reason: fmt.Errorf("%w: %v", ErrInvalidSignature, err)}
		}
		return Result{Reason: fmt.Errorf("%w: %v", ErrMalformedToken, err)}
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Result{Reason: fmt.Errorf("%w: missing sub or exp claim", ErrMalformedToken)}
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		return Result{Reason: ErrTokenExpired}
	}

	return Result{Subject: claims.Subject, Valid: true}
}
