package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

var (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims are the identity provider's JWT claims.
type Claims struct {
	jwt.StandardClaims
	Name    string   `json:"name"`
	Email   string   `json:"email,omitempty"`
	Picture string   `json:"picture,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

func (c Claims) Identity() user.Identity {
	return user.Identity{
		Subject:   c.Subject,
		Name:      c.Name,
		Email:     c.Email,
		AvatarURL: c.Picture,
		Roles:     c.Roles,
	}
}

// NewClaims returns the claims the identity provider issues for id.
func NewClaims(id user.Identity, issuer string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   id.Subject,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:    id.Name,
		Email:   id.Email,
		Picture: id.AvatarURL,
		Roles:   id.Roles,
	}
}

// GenerateToken signs claims with the identity provider's shared secret.
func GenerateToken(secret string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// authenticator verifies provider-issued tokens and loads the context user.
type authenticator struct {
	issuer string
	secret []byte
	users  *user.Service
}

func newAuthenticator(conf *core.Config, users *user.Service) *authenticator {
	return &authenticator{
		issuer: conf.Auth.Issuer,
		secret: []byte(conf.Auth.IdentitySecret),
		users:  users,
	}
}

func (a *authenticator) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    a.secret,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Required rejects requests without a valid bearer token.
func (a *authenticator) Required() echo.MiddlewareFunc {
	return chain(middleware.JWTWithConfig(a.jwtConfig()), a.identify)
}

// Optional only authenticates requests that carry a token.
func (a *authenticator) Optional() echo.MiddlewareFunc {
	cfg := a.jwtConfig()
	cfg.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return chain(middleware.JWTWithConfig(cfg), a.identify)
}

// Query reads the token from the `token` query param, for websocket handshakes.
func (a *authenticator) Query() echo.MiddlewareFunc {
	cfg := a.jwtConfig()
	cfg.TokenLookup = "query:token"
	return chain(middleware.JWTWithConfig(cfg), a.identify)
}

// identify upserts the user the token vouches for.
func (a *authenticator) identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil { // skipped
			return next(ctx)
		}
		if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
			return errUnauthorized
		}
		usr, err := a.users.EnsureFromIdentity(ctx.Request().Context(), claims.Identity())
		if err != nil {
			switch errors.Cause(err).(type) {
			case validator.ValidationErrors, *core.ValidationError:
				return errUnauthorized
			}
			return errors.Wrap(err, "ensuring user from identity")
		}
		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}

func chain(mws ...echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
