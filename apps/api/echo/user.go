package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/user"
)

type (
	userApi struct {
		svc *user.Service
	}

	MeResponse struct {
		SignedIn bool        `json:"signed_in"`
		User     *user.User  `json:"user"`
		Roles    []user.Role `json:"roles,omitempty"`
		Staff    bool        `json:"staff"`
	}
)

func registerUserAPI(g *echo.Group, auth *authenticator, svc *user.Service) {
	api := userApi{svc: svc}

	g.GET("/me", api.me, auth.Optional())
	g.GET("/roles", api.queryRoles, auth.Required())
	g.GET("/users", api.directory, auth.Required(), staffMiddleware())
}

// Handlers

// me describes the signed in user, roles spelled out for display. Signed out is not an error here.
func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return ctx.JSON(http.StatusOK, MeResponse{})
	}
	resp := MeResponse{SignedIn: true, User: &usr, Staff: usr.IsStaff()}
	for _, r := range user.Roles {
		for _, held := range usr.Roles {
			if r.Value == held {
				resp.Roles = append(resp.Roles, r)
			}
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

// directory lets staff look people up, e.g. ?search=asha&role=student:&ordering=name.
func (api *userApi) directory(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	query := newListQuery(user.OrderingFields)
	if err := query.bind(ctx, filter); err != nil {
		return err
	}
	filter.IDs = nil

	users, err := api.svc.Query(ctx.Request().Context(), filter, query.Ordering)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}
