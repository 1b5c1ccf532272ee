package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

const contextTokenKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued by the portal's login flow; this API only verifies them.
type Claims struct {
	jwt.StandardClaims
	Role string `json:"role"`
}

func (c Claims) Caller() core.Caller {
	return core.Caller{ID: c.Subject, Role: core.NormalizeRole(c.Role)}
}

func (c Claims) IsAdmin() bool {
	return core.NormalizeRole(c.Role) == core.RoleAdmin
}

func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func NewClaims(conf *core.Config, callerID, role string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   callerID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role: role,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok && claims.Subject != "" {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
