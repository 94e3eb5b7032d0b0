package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cblms/core"
	"github.com/trezcool/cblms/core/user"
)

const (
	contextUserKey = "user"
	bearerScheme   = "Bearer"
)

var (
	errMissingToken = core.NewAuthError("missing or malformed token")
	errInvalidToken = core.NewAuthError("invalid or expired token")
	errUserGone     = core.NewAuthError("user no longer exists")
	errUnauthorized = core.NewAuthError("user not authenticated")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"userId"`
	Role   user.Role `json:"role"`
}

func NewClaims(usr user.User, conf *core.Config) *Claims {
	now := core.NowFunc()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
		},
		UserID: usr.ID,
		Role:   usr.Role,
	}
}

// GenerateToken generates a signed HS256 JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(tokenString, secret string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil || claims.UserID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// authenticate verifies the bearer token and loads the current user into the echo.Context.
// Users deleted after the token was issued are rejected.
func authenticate(secret string, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, ok := strings.Cut(auth, " ")
			if !ok || !strings.EqualFold(scheme, bearerScheme) || strings.TrimSpace(token) == "" {
				return errMissingToken
			}

			claims, err := parseToken(strings.TrimSpace(token), secret)
			if err != nil {
				return err
			}
			usr, err := svc.GetByID(ctx.Request().Context(), claims.UserID)
			if err != nil {
				if core.IsNotFound(err) {
					return errUserGone
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

type authApi struct {
	ServerDeps
}

func registerAuthAPI(g *echo.Group, authn echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{deps}

	ag := g.Group("/auth")
	ag.POST("/login", api.login, rateLimiter(deps.AuthRateLimitStore), validateBody[LoginRequest](deps.Validate))
	ag.GET("/me", api.me, authn)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
}

func (api *authApi) login(ctx echo.Context) error {
	data := getBody[LoginRequest](ctx)
	usr, err := api.UserSvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(NewClaims(usr, api.Conf), api.Conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return respond(ctx, http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, usr)
}
