package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/user"
)

type userAPI struct {
	*Server
}

func registerUserAPI(s *Server, g *echo.Group) {
	api := userAPI{s}

	g.Use(s.allow(auth.KindAdmin))
	g.GET("", api.query)
	g.POST("", api.create)
	g.DELETE("", api.destroyMultiple)
	g.GET("/roles", api.queryRoles)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

// Handlers

func (api *userAPI) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering, page, err := listParams(ctx)
	if err != nil {
		return err
	}

	users, total, err := api.deps.Users.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return respondPage(ctx, users, page, total)
}

func (api *userAPI) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.deps.Users.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return respond(ctx, http.StatusCreated, usr)
}

func (api *userAPI) retrieve(ctx echo.Context) error {
	usr, err := api.deps.Users.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return respond(ctx, http.StatusOK, usr)
}

func (api *userAPI) update(ctx echo.Context) error {
	c := ctx.Request().Context()
	usr, err := api.deps.Users.GetByID(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr, api.deps.Validate); err != nil {
		return err
	}

	// an admin cannot lock themselves out
	if p, _ := api.contextPrincipal(ctx); p.ID == usr.ID {
		if (data.IsActive != nil && !*data.IsActive) || data.Role != usr.Role {
			return errHTTPForbidden
		}
	}

	if usr, err = api.deps.Users.Update(c, usr.ID, data); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return respond(ctx, http.StatusOK, usr)
}

func (api *userAPI) destroy(ctx echo.Context) error {
	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()
	usr, err := api.deps.Users.GetByID(c, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if _, err = api.deps.Users.Delete(c, p.ID, usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userAPI) destroyMultiple(ctx echo.Context) error {
	p, err := api.contextPrincipal(ctx)
	if err != nil {
		return err
	}
	var query DestroyMultipleRequest
	if err = ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	n, err := api.deps.Users.Delete(ctx.Request().Context(), p.ID, query.IDs...)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return respond(ctx, http.StatusOK, map[string]int{"deleted": n})
}

func (api *userAPI) queryRoles(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, user.Roles)
}
