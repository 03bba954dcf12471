package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"flightbook/internal/domain"
	"flightbook/internal/domain/models"
	"flightbook/internal/repositories"
	"flightbook/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

// Claims are informational apart from the subject; the role is always
// re-read from storage.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type AuthService struct {
	Users  repositories.UserStore
	Secret []byte
	TTL    time.Duration
	Log    utils.Logger
	Now    utils.Clock
}

func (s AuthService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return defaultTokenTTL
}

// IssueToken signs an HS256 token for u.
func (s AuthService) IssueToken(u models.User) (string, time.Time, error) {
	now := nowFrom(s.Now)
	exp := now.Add(s.ttl())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: domain.ParseRole(u.Role).String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, domain.InternalError{Msg: "could not sign token", Err: err}
	}
	return signed, exp, nil
}

func (s AuthService) Login(ctx context.Context, login, password string) (LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return LoginResult{}, domain.ValidationError{Msg: "login and password are required"}
	}
	u, err := s.Users.GetByLogin(ctx, login)
	if errors.Is(err, repositories.ErrNotFound) {
		return LoginResult{}, domain.AuthError{Msg: "invalid login or password"}
	}
	if err != nil {
		return LoginResult{}, storeError("user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, domain.AuthError{Msg: "invalid login or password"}
	}
	if disabled(u) {
		return LoginResult{}, domain.AuthError{Msg: "account disabled"}
	}
	token, exp, err := s.IssueToken(u)
	if err != nil {
		return LoginResult{}, err
	}
	logOrNop(s.Log).LogEvent(requestID(ctx), "auth", "login", "user "+strconv.FormatInt(u.ID, 10)+" logged in")
	return LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// Authenticate verifies a bearer header and reloads its subject from storage.
func (s AuthService) Authenticate(ctx context.Context, header string) (domain.Identity, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Identity{}, domain.AuthError{Msg: "no credential"}
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return nowFrom(s.Now) }),
	)
	if err != nil {
		return domain.Identity{}, domain.AuthError{Msg: "invalid or expired credential", Err: err}
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return domain.Identity{}, domain.AuthError{Msg: "missing subject"}
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return domain.Identity{}, domain.AuthError{Msg: "missing subject", Err: err}
	}

	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return domain.Identity{}, domain.AuthError{Msg: "user no longer exists"}
	}
	if err != nil {
		return domain.Identity{}, storeError("user", err)
	}
	if disabled(u) {
		return domain.Identity{}, domain.AuthError{Msg: "account disabled"}
	}
	return u.Identity(), nil
}

// RequireRole passes when the loaded identity holds one of roles.
func RequireRole(id domain.Identity, roles ...domain.Role) error {
	for _, r := range roles {
		if id.Role == r && r != domain.RoleUnknown {
			return nil
		}
	}
	return domain.ForbiddenError{Msg: "insufficient role"}
}

func disabled(u models.User) bool {
	switch strings.ToLower(strings.TrimSpace(u.Status)) {
	case "inactive", "disabled", "blocked":
		return true
	}
	return false
}
