package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// appJWTConfig is shared by the REST routes and the catalog stream.
var appJWTConfig = middleware.JWTConfig{
	SigningKey:    []byte(core.Conf.SecretKey),
	SigningMethod: middleware.AlgorithmHS256,
	ContextKey:    contextTokenKey,
	Claims:        new(Claims),
}

// Claims is the payload of an access token.
// OrigIssuedAt is the login time; it is carried over on refresh and bounds how long a session can be extended.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	Email        string `json:"email,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

// GetUserClaims returns fresh claims for usr. origIat, when given, keeps the login time of a refreshed session.
func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
		},
		OrigIssuedAt: now.Unix(),
		FullName:     usr.FullName,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin,
	}
	if len(origIat) > 0 {
		claims.OrigIssuedAt = origIat[0]
	}
	return claims
}

// refreshDeadline is the time after which the session can no longer be refreshed.
func (c Claims) refreshDeadline() time.Time {
	return time.Unix(c.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
}

// GenerateToken signs claims with the application secret.
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(appJWTConfig.SigningMethod), claims)
	signed, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return signed, nil
}

// authenticate checks the credentials of an active user and records the login.
// Unknown emails and wrong passwords fail the same way.
func authenticate(ctx context.Context, email, pwd string, svc user.Service) (*Claims, error) {
	usr, err := svc.GetByEmail(ctx, email)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		return nil, errAuthenticationFailed
	case err != nil:
		return nil, errors.Wrap(err, "finding user by email")
	case usr.CheckPassword(pwd) != nil:
		return nil, errAuthenticationFailed
	case !usr.IsActive:
		return nil, errAccountDeactivated
	}

	if usr, err = svc.SetLastLogin(ctx, usr); err != nil {
		return nil, errors.Wrap(err, "setting last login")
	}
	return GetUserClaims(usr), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	token, _ := ctx.Get(contextTokenKey).(*jwt.Token)
	if token == nil {
		return Claims{}, errUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, errUnauthorized
	}
	return *claims, nil
}

// getContextUser loads the token's user once per request and caches it in the context.
// A token whose user no longer exists is treated as unauthenticated.
func getContextUser(ctx echo.Context, svc user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if errors.Cause(err) == user.ErrNotFound {
		return user.User{}, errUnauthorized
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding token user")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// mustContextUser returns the user set by ctxUserMiddleware.
func mustContextUser(ctx echo.Context) user.User {
	usr, _ := ctx.Get(contextUserKey).(user.User)
	return usr
}

// refreshToken issues a new token for the current session, as long as the user is still active
// and the session is within its refresh window.
func refreshToken(ctx echo.Context, svc user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := getContextUser(ctx, svc)
	if err != nil {
		return "", err
	}
	if !usr.IsActive {
		return "", errAccountDeactivated
	}
	if time.Now().After(claims.refreshDeadline()) {
		return "", errRefreshExpired
	}
	return GenerateToken(GetUserClaims(usr, claims.OrigIssuedAt))
}
