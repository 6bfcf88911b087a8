package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/prefs"
)

type prefsApi struct {
	svc *prefs.Service
}

func registerPrefsAPI(g *echo.Group, auth *authenticator, svc *prefs.Service) {
	api := prefsApi{svc: svc}

	pg := g.Group("/preferences", auth.Required())
	pg.GET("", api.retrieve)
	pg.PUT("", api.update)
}

// Handlers

func (api *prefsApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Get(ctx.Request().Context(), usr.ID))
}

// update replaces the preferences; missing keys take their default.
func (api *prefsApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := prefs.Defaults()
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Preferences")
	}
	p, err := api.svc.Set(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving preferences")
	}
	return ctx.JSON(http.StatusOK, p)
}
