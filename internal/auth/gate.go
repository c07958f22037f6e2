package auth

import (
	"net/http"
	"strings"

	"github.com/guttosm/tickerql/internal/logger"
)

// Gate decides whether a request may run a protected operation.
// Implementations must not block: they run before any store access.
type Gate interface {
	Check(r *http.Request) bool
}

// BearerGate admits any request carrying a valid, unexpired bearer credential.
// There are no roles: one valid token unlocks every protected operation.
type BearerGate struct {
	verifier Verifier
}

// NewBearerGate returns a gate that verifies tokens with v.
func NewBearerGate(v Verifier) *BearerGate {
	return &BearerGate{verifier: v}
}

// Check reads "Authorization: Bearer <token>" and verifies the token.
func (g *BearerGate) Check(r *http.Request) bool {
	if r == nil {
		return false
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		logger.L().Debug().Msg("authorization header missing")
		return false
	}

	// Only the first space separates scheme and token; extra spaces stay in
	// the token and fail verification.
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		logger.L().Debug().Msg("authorization header malformed")
		return false
	}
	if !strings.EqualFold(scheme, "Bearer") || token == "" {
		logger.L().Debug().Str("scheme", scheme).Msg("unsupported authorization scheme")
		return false
	}

	res := g.verifier.Verify(token)
	if !res.Valid {
		logger.L().Debug().Err(res.Reason).Msg("credential rejected")
		return false
	}
	return true
}
