package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/auth"
)

const (
	tokenContextKey     = "token"
	principalContextKey = "principal"
	tokenAudience       = "presence-api"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Kind auth.Kind `json:"kind"`
}

func (s *Server) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(s.deps.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of a token identifying p.
func (s *Server) NewClaims(p auth.Principal) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.deps.Conf.AppName,
			Subject:   p.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(s.deps.Conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Kind: p.Kind,
	}
}

// GenerateToken generates a signed JWT token string for p.
func (s *Server) GenerateToken(p auth.Principal) (string, error) {
	conf := s.jwtConfig()
	token := jwt.NewWithClaims(jwt.GetSigningMethod(conf.SigningMethod), s.NewClaims(p))

	ss, err := token.SignedString(conf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

// contextPrincipal resolves the token subject to a principal, once per request.
func (s *Server) contextPrincipal(ctx echo.Context) (auth.Principal, error) {
	if p, ok := ctx.Get(principalContextKey).(auth.Principal); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return auth.Principal{}, err
	}
	p, err := s.deps.Gate.Resolve(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return auth.Principal{}, errors.Wrap(err, "resolving principal")
	}
	ctx.Set(principalContextKey, p)
	return p, nil
}

type authAPI struct {
	*Server
}

func registerAuthAPI(s *Server, g *echo.Group, jwtMw echo.MiddlewareFunc) {
	api := authAPI{s}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout, jwtMw, s.allow())
	ag.POST("/change-password", api.changePassword, jwtMw, s.allow())
	ag.GET("/me", api.me, jwtMw, s.allow())
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token     string         `json:"token"`
		ExpiresAt time.Time      `json:"expiresAt"`
		User      auth.Principal `json:"user"`
	}

	ChangePasswordRequest struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

// Handlers

// login issues a token. Inactive principals get one too; every protected route rejects them.
func (api *authAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	p, err := api.deps.Gate.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	token, err := api.GenerateToken(p)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return respond(ctx, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(api.deps.Conf.JWTExpirationDelta).UTC(),
		User:      p,
	})
}

// logout is stateless: the client drops its token.
func (api *authAPI) logout(ctx echo.Context) error {
	return respondMessage(ctx, http.StatusOK, "logged out")
}

func (api *authAPI) me(ctx echo.Context) error {
	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, p)
}

func (api *authAPI) changePassword(ctx echo.Context) error {
	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return err
	}

	var data ChangePasswordRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePasswordRequest")
	}
	if err = api.deps.Validate.Struct(data); err != nil {
		return err
	}

	if p, err = api.deps.Gate.ChangePassword(ctx.Request().Context(), p, data.OldPassword, data.NewPassword); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return respondMessage(ctx, http.StatusOK, "password changed", p)
}
