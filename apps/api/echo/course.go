package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, auth *authenticator, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/courses", auth.Required())
	cg.GET("", api.catalog)
	cg.GET("/suggest", api.suggest)
	cg.POST("", api.create, staffMiddleware())
	cg.GET("/:id", api.retrieve)

	rg := g.Group("/registration", auth.Required())
	rg.GET("", api.registration)
	rg.POST("/:courseID", api.enroll)
	rg.DELETE("/:courseID", api.drop)
}

// Handlers

func (api *courseApi) catalog(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter := new(course.QueryFilter)
	query := newListQuery(course.OrderingFields)
	if err = query.bind(ctx, filter); err != nil {
		return err
	}

	courses, err := api.svc.Catalog(ctx.Request().Context(), usr.ID, filter, query.Ordering)
	if err != nil {
		return errors.Wrap(err, "querying catalog")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) suggest(ctx echo.Context) error {
	courses, err := api.svc.Suggest(ctx.Request().Context(), ctx.QueryParam("q"))
	if err != nil {
		return errors.Wrap(err, "suggesting courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, course.NewAvailableCourse(c))
}

func (api *courseApi) registration(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reg, err := api.svc.Registration(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting registration")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reg, err := api.svc.Enroll(ctx.Request().Context(), usr.ID, ctx.Param("courseID"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *courseApi) drop(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reg, err := api.svc.Drop(ctx.Request().Context(), usr.ID, ctx.Param("courseID"))
	if err != nil {
		return errors.Wrap(err, "dropping course")
	}
	return ctx.JSON(http.StatusOK, reg)
}
