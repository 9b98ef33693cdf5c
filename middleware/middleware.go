package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"tripgenie/globals"
	"tripgenie/models"
	"tripgenie/utils"
)

// JWT claims
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies bearer tokens signed with Secret.
type Auth struct {
	Secret []byte
}

func NewAuth(secret []byte) *Auth {
	return &Auth{Secret: secret}
}

// Sign issues a token for acc valid for ttl.
func (a *Auth) Sign(acc models.Account, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: acc.Username,
		UserID:   acc.ID,
		Role:     acc.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// ValidateJWT parses a raw token (without the "Bearer " prefix).
func (a *Auth) ValidateJWT(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("invalid token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("unauthorized: invalid token")
	}
	return claims, nil
}

// bearer pulls the token from the Authorization header. Browsers cannot set
// headers on a websocket upgrade so those may pass it as ?token=.
func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return h[7:]
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

func withClaims(r *http.Request, claims *Claims, role models.Role) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, globals.UsernameKey, claims.Username)
	ctx = context.WithValue(ctx, globals.RoleKey, role)
	return r.WithContext(ctx)
}

func (a *Auth) authenticate(r *http.Request) (*http.Request, int, string) {
	tokenString := bearer(r)
	if tokenString == "" {
		return nil, http.StatusUnauthorized, "Missing token"
	}
	claims, err := a.ValidateJWT(tokenString)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid token"
	}
	role, ok := models.ParseRole(claims.Role)
	if !ok || role == models.Guest || claims.UserID == "" {
		return nil, http.StatusUnauthorized, "Invalid token"
	}
	return withClaims(r, claims, role), 0, ""
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		authed, status, msg := a.authenticate(r)
		if authed == nil {
			utils.RespondWithError(w, status, msg)
			return
		}
		next(w, authed, ps)
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present
// and proceeds as a guest otherwise.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if authed, _, _ := a.authenticate(r); authed != nil {
			r = authed
		}
		next(w, r, ps)
	}
}

// RequireRole admits only callers authenticated as role. The guest prefix
// admits everyone and strips any identity so guests see guest views.
func (a *Auth) RequireRole(role models.Role, next httprouter.Handle) httprouter.Handle {
	if role == models.Guest {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			ctx := context.WithValue(r.Context(), globals.RoleKey, models.Guest)
			next(w, r.WithContext(ctx), ps)
		}
	}
	return a.Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if utils.GetRoleFromRequest(r) != role {
			utils.RespondWithError(w, http.StatusForbidden, fmt.Sprintf("this route is for %s accounts", role))
			return
		}
		next(w, r, ps)
	})
}

// Middleware wraps a handle.
type Middleware func(httprouter.Handle) httprouter.Handle

// Chain applies mws so that the first one runs first.
func Chain(mws ...Middleware) Middleware {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
