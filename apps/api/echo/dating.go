package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/services/realtime"
)

type datingApi struct {
	svc      *dating.Service
	hub      *realtime.Hub
	logger   core.Logger
	upgrader websocket.Upgrader
}

func registerDatingAPI(
	g *echo.Group,
	auth *authenticator,
	svc *dating.Service,
	hub *realtime.Hub,
	logger core.Logger,
	conf *core.Config,
) {
	api := datingApi{
		svc:    svc,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == conf.Server.FrontendBaseURL || conf.Debug
			},
		},
	}
	limiter := newUserRateLimiter(conf.Dating.SwipesPerMinute, conf.Dating.SwipeBurst)

	dg := g.Group("/dating")
	dg.GET("/ws", api.ws, auth.Query())

	ag := dg.Group("", auth.Required())
	ag.POST("/profiles", api.createProfile)
	ag.GET("/deck/next", api.next)
	ag.POST("/swipes", api.swipe, limiter.middleware())
	ag.GET("/matches", api.matches)
	ag.GET("/matches/:id/messages", api.messages)
	ag.POST("/matches/:id/messages", api.sendMessage)
}

// Handlers

func (api *datingApi) createProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data dating.NewProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProfile")
	}
	p, err := api.svc.CreateProfile(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *datingApi) next(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.NextProfile(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting next profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *datingApi) swipe(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data dating.NewSwipe
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSwipe")
	}
	res, err := api.svc.Swipe(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "swiping")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *datingApi) matches(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	matches, err := api.svc.Matches(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying matches")
	}
	if matches == nil {
		matches = []dating.Match{}
	}
	return ctx.JSON(http.StatusOK, matches)
}

func (api *datingApi) messages(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	msgs, err := api.svc.Messages(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []dating.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *datingApi) sendMessage(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data dating.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	msg, err := api.svc.SendMessage(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

// ws streams match and message events. Clients may also send chat messages on it.
func (api *datingApi) ws(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		api.logger.Warn(fmt.Sprintf("upgrading to websocket: %v", err))
		return nil // the upgrader already replied
	}

	// the request context ends with the handler; replies outlive it
	if err = api.hub.Serve(context.Background(), conn, usr.ID, api.handleInbound); err != nil {
		api.logger.Warn(fmt.Sprintf("serving websocket: %v", err))
	}
	return nil // the connection is hijacked
}

func (api *datingApi) handleInbound(ctx context.Context, userID string, in realtime.Inbound) error {
	if in.Type != realtime.EventMessage {
		return errors.Errorf("unsupported event type %q", in.Type)
	}
	msg, err := api.svc.SendMessage(ctx, userID, in.MatchID, dating.NewMessage{Body: in.Body})
	if err != nil {
		return err
	}
	api.hub.NotifyMessage(userID, msg) // echo to the sender's other tabs
	return nil
}
