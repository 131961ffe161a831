package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the verified content of a credential minted by an
// AuthProvider (spec.md §4.7): subject, roles, and the standard issued-at /
// expiry timestamps.
type TokenClaims struct {
	Subject string
	Roles   []string
	IssuedAt time.Time
	Expiry   time.Time
}

// HasRole reports whether claims carries role.
func (c TokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider mints and verifies the bearer credential carried in a
// request's params.token (spec.md §4.7 — credentials travel inside the
// JSON-RPC params, not an HTTP header, since stdio sessions have none).
type AuthProvider interface {
	// GenerateToken mints a credential for subject holding roles.
	GenerateToken(subject string, roles []string, ttl time.Duration) (string, error)
	// ValidateToken reports whether token is well-formed and unexpired,
	// without surfacing why it failed.
	ValidateToken(token string) bool
	// VerifyToken parses token and returns its claims, or a *TokenExpiredError
	// / *AuthorizationError describing why it's unusable.
	VerifyToken(token string) (TokenClaims, error)
}

// jwtAuthProvider is the default AuthProvider, backed by
// golang-jwt/jwt/v5 HMAC-signed bearer tokens, with expiry checked against
// an injected Clock rather than wall-clock time so tests are deterministic
// (Design Notes §9).
type jwtAuthProvider struct {
	secret []byte
	clock  Clock
}

// NewJWTAuthProvider creates a provider that signs and verifies HS256
// tokens with secret, checking exp against clock.
func NewJWTAuthProvider(secret []byte, clock Clock) AuthProvider {
	return &jwtAuthProvider{secret: secret, clock: clock}
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

func (p *jwtAuthProvider) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Method.Alg())
	}
	return p.secret, nil
}

func (p *jwtAuthProvider) GenerateToken(subject string, roles []string, ttl time.Duration) (string, error) {
	now := p.clock.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

func (p *jwtAuthProvider) ValidateToken(token string) bool {
	_, err := p.VerifyToken(token)
	return err == nil
}

// VerifyToken parses and signature-checks token, then compares its exp
// against p.clock (not time.Now — spec.md §9's injected-clock requirement
// applies here as much as it does to request deadlines) so an
// already-expired token is reported as *TokenExpiredError even if
// jwt.ParseWithClaims's own wall-clock check would have let it through.
func (p *jwtAuthProvider) VerifyToken(token string) (TokenClaims, error) {
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, p.keyFunc,
		jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return TokenClaims{}, NewAuthorizationError(fmt.Sprintf("Invalid token: %v", err))
	}

	out := TokenClaims{Subject: claims.Subject, Roles: claims.Roles}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.Expiry = claims.ExpiresAt.Time
		if out.Expiry.Before(p.clock.Now()) {
			return TokenClaims{}, &TokenExpiredError{Subject: claims.Subject}
		}
	}
	return out, nil
}

// authParams is the shape every gated method's params are decoded against
// to pull the token out before the wrapped handler ever sees it.
type authParams struct {
	Token string `json:"token"`
}

// AuthGate is the Auth Gate (spec.md §4.7): a composable wrapper that
// requires params.token to verify, and to carry at least one role in
// requiredRoles, before the wrapped handler runs. The token is stripped
// from params before the handler sees them.
type AuthGate struct {
	provider AuthProvider
}

// NewAuthGate creates a gate backed by provider.
func NewAuthGate(provider AuthProvider) *AuthGate {
	return &AuthGate{provider: provider}
}

// Gate wraps handler so it only runs once params.token verifies and its
// claimed roles intersect requiredRoles (an empty requiredRoles accepts any
// valid token). Failures surface as AuthorizationError / TokenExpiredError,
// both wire-coded -32401 (spec.md §6).
func (g *AuthGate) Gate(requiredRoles []string, handler RequestHandler) RequestHandler {
	return func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p authParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		if p.Token == "" {
			return nil, NewAuthorizationError("No authorization token provided")
		}

		claims, err := g.provider.VerifyToken(p.Token)
		if err != nil {
			return nil, err
		}

		if len(requiredRoles) > 0 && !rolesIntersect(claims.Roles, requiredRoles) {
			return nil, NewAuthorizationError("Insufficient permissions")
		}

		return handler(ctx, stripToken(params))
	}
}

func rolesIntersect(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// stripToken returns params with the "token" field removed, so a gated
// handler never sees the credential alongside its own arguments.
func stripToken(params ParamsValue) ParamsValue {
	raw := params.Raw()
	if len(raw) == 0 {
		return params
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return params
	}
	delete(obj, "token")
	stripped, err := json.Marshal(obj)
	if err != nil {
		return params
	}
	return RawParamsValue(stripped)
}
