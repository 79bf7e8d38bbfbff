package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core/staff"
)

type StaffService interface {
	Create(ctx context.Context, ns staff.NewStaff) (staff.Staff, error)
	Authenticate(ctx context.Context, creds staff.Credentials) (staff.Staff, error)
	VerifyPassword(ctx context.Context, id, pwd string) (bool, error)
	GetByID(ctx context.Context, id string) (staff.Staff, error)
}

var _ StaffService = (*staff.Service)(nil)

type staffApi struct {
	svc  StaffService
	auth *authenticator
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc StaffService) {
	api := staffApi{svc: svc, auth: auth}

	// un-authed endpoints
	g.POST("/auth/login", api.login)

	// authed endpoints
	g.POST("/auth/token-refresh", api.refreshToken, jwt)
	g.POST("/verify-password", api.verifyPassword, jwt)
	g.GET("/staff/roles", api.queryRoles, jwt)
	g.POST("/staff", api.create, jwt, roleMiddleware(staff.RoleAdmin))
}

type (
	LoginResponse struct {
		Token string `json:"token"`
	}

	VerifyPasswordResponse struct {
		Verified bool `json:"verified"`
	}
)

func (api *staffApi) login(ctx echo.Context) error {
	var creds staff.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	s, err := api.svc.Authenticate(ctx.Request().Context(), creds)
	if err != nil {
		if errors.Cause(err) == staff.ErrInvalidCredentials {
			return errAuthenticationFailed
		}
		return err
	}
	token, err := GenerateToken(NewClaims(s, api.auth.conf), api.auth.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *staffApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// verifyPassword re-checks the logged-in staff member's password before a sensitive action.
func (api *staffApi) verifyPassword(ctx echo.Context) error {
	var data staff.PasswordCheck
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordCheck")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if data.Password == "" {
		return ctx.JSON(http.StatusOK, VerifyPasswordResponse{Verified: false})
	}

	verified, err := api.svc.VerifyPassword(ctx.Request().Context(), claims.Subject, data.Password)
	if err != nil {
		if errors.Cause(err) == staff.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "verifying password")
	}
	return ctx.JSON(http.StatusOK, VerifyPasswordResponse{Verified: verified})
}

func (api *staffApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, staff.Roles)
}

func (api *staffApi) create(ctx echo.Context) error {
	var data staff.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}
