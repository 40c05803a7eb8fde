package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleTherapist = "therapist"
	RoleAdmin     = "admin"
)

var errUnauthenticated = errors.New("missing or invalid credentials")

// Principal is the authenticated caller. Every practitioner route acts on
// Principal.TherapistID's calendar.
type Principal struct {
	TherapistID uuid.UUID
	Role        string
}

type Authenticator interface {
	Authenticate(r *http.Request) (*Principal, error)
}

// Claims are the JWT claims issued by the identity service. Subject is the therapist id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type jwtAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret []byte) Authenticator {
	return &jwtAuthenticator{secret: secret}
}

func (a *jwtAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, errUnauthenticated
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnauthenticated, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errUnauthenticated
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a therapist id", errUnauthenticated)
	}
	role := claims.Role
	if role == "" {
		role = RoleTherapist
	}
	return &Principal{TherapistID: id, Role: role}, nil
}

type devAuthenticator struct{}

// NewDevAuthenticator trusts the X-Therapist-Id and X-Role headers. Never use it in prod.
func NewDevAuthenticator() Authenticator {
	return devAuthenticator{}
}

func (devAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	id, err := uuid.Parse(r.Header.Get("X-Therapist-Id"))
	if err != nil {
		return nil, errUnauthenticated
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = RoleTherapist
	}
	return &Principal{TherapistID: id, Role: role}, nil
}

// AuthMiddleware rejects unauthenticated requests and stores the Principal in the context.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := auth.Authenticate(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", errUnauthenticated.Error(), nil)
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only principals holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFrom(r.Context())
			if p != nil {
				for _, role := range roles {
					if p.Role == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", "this action requires a privileged role", nil)
		})
	}
}

func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
