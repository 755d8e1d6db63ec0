package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mediconnect/mediconnect/internal/platform/apperr"
)

const (
	ModeToken  = "token"
	ModeHeader = "header"

	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Authentication failures. All render as 401 with distinct codes.
var (
	ErrNoCredential      = apperr.Unauthenticated("missing_credentials", "authentication required")
	ErrInvalidCredential = apperr.Unauthenticated("invalid_credentials", "credentials are invalid")
	ErrCredentialExpired = apperr.Unauthenticated("token_expired", "token has expired")
)

// Identity is a verified user for whom a credential is granted at login.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// Grant tells a client how to authenticate subsequent requests.
type Grant struct {
	Mode      string            `json:"mode"`
	Token     string            `json:"token,omitempty"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// Authenticator turns request credentials into a Principal. Exactly one
// implementation is active per deployment.
type Authenticator interface {
	Mode() string
	// Authenticate returns ErrNoCredential when the request carries no
	// credential at all and ErrInvalidCredential or ErrCredentialExpired when
	// it carries a bad one. It never falls back to a default principal.
	Authenticate(r *http.Request) (Principal, error)
	Grant(ctx context.Context, id Identity) (*Grant, error)
	// Challenge is the WWW-Authenticate value sent with a 401, if any.
	Challenge() string
}

// TokenAuthenticator accepts "Authorization: Bearer <jwt>".
type TokenAuthenticator struct {
	issuer  *TokenIssuer
	revoked RevocationList
}

func NewTokenAuthenticator(issuer *TokenIssuer, revoked RevocationList) *TokenAuthenticator {
	return &TokenAuthenticator{issuer: issuer, revoked: revoked}
}

func (a *TokenAuthenticator) Mode() string      { return ModeToken }
func (a *TokenAuthenticator) Challenge() string { return `Bearer realm="mediconnect"` }

func (a *TokenAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Principal{}, ErrNoCredential
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return Principal{}, ErrInvalidCredential
	}

	claims, err := a.issuer.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Principal{}, ErrCredentialExpired
		}
		return Principal{}, ErrInvalidCredential
	}

	userID, err := claims.UserID()
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}

	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return Principal{}, apperr.Internal(fmt.Errorf("revocation lookup: %w", err))
		}
		if revoked {
			return Principal{}, ErrInvalidCredential
		}
	}

	p := Principal{
		UserID:  userID,
		Role:    role,
		Email:   claims.Email,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p, nil
}

func (a *TokenAuthenticator) Grant(_ context.Context, id Identity) (*Grant, error) {
	token, expiresAt, err := a.issuer.Issue(id.UserID, id.Email, id.Role)
	if err != nil {
		return nil, err
	}
	return &Grant{Mode: ModeToken, Token: token, ExpiresAt: &expiresAt}, nil
}

// HeaderAuthenticator trusts X-User-Id and X-User-Role as sent.
//
// These headers carry no integrity protection. The mode is only sound behind
// an ingress that authenticates users itself and strips both headers from
// untrusted clients before forwarding. Exposed directly, any client can claim
// any identity.
type HeaderAuthenticator struct{}

func NewHeaderAuthenticator() *HeaderAuthenticator { return &HeaderAuthenticator{} }

func (a *HeaderAuthenticator) Mode() string      { return ModeHeader }
func (a *HeaderAuthenticator) Challenge() string { return "" }

func (a *HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	rawID, idOK := headerValue(r.Header, HeaderUserID)
	rawRole, roleOK := headerValue(r.Header, HeaderUserRole)
	if !idOK || !roleOK {
		return Principal{}, ErrNoCredential
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || userID < 0 {
		return Principal{}, ErrInvalidCredential
	}
	if strings.TrimSpace(rawRole) == "" {
		return Principal{}, ErrInvalidCredential
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return Principal{}, ErrInvalidCredential
	}

	return Principal{UserID: userID, Role: role}, nil
}

func (a *HeaderAuthenticator) Grant(_ context.Context, id Identity) (*Grant, error) {
	return &Grant{
		Mode: ModeHeader,
		Headers: map[string]string{
			HeaderUserID:   strconv.FormatInt(id.UserID, 10),
			HeaderUserRole: id.Role.String(),
		},
	}, nil
}

// headerValue distinguishes an absent header from an empty one.
func headerValue(h http.Header, key string) (string, bool) {
	vals, ok := h[http.CanonicalHeaderKey(key)]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
