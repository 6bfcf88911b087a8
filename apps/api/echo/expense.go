package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/expense"
)

type (
	expenseApi struct {
		svc *expense.Service
	}

	InviteResponse struct {
		Token string `json:"token"`
	}

	JoinRequest struct {
		Token string `json:"token"`
	}

	SettleRequest struct {
		MemberID string `json:"member_id"`
	}
)

func registerExpenseAPI(g *echo.Group, auth *authenticator, svc *expense.Service) {
	api := expenseApi{svc: svc}

	eg := g.Group("/expenses", auth.Required())
	eg.POST("/groups", api.createGroup)
	eg.POST("/join", api.join)

	gg := eg.Group("/groups/:id")
	gg.GET("", api.retrieveGroup)
	gg.GET("/expenses", api.expenses)
	gg.POST("/expenses", api.addExpense)
	gg.PUT("/expenses/:expenseID/settle", api.settle)
	gg.GET("/balances", api.balances)
	gg.GET("/invite", api.invite)
}

// Handlers

func (api *expenseApi) createGroup(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data expense.NewGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	grp, err := api.svc.CreateGroup(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *expenseApi) retrieveGroup(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	grp, err := api.svc.GetGroup(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *expenseApi) expenses(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	expenses, err := api.svc.Expenses(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying expenses")
	}
	if expenses == nil {
		expenses = []expense.Expense{}
	}
	return ctx.JSON(http.StatusOK, expenses)
}

func (api *expenseApi) addExpense(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data expense.NewExpense
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	e, err := api.svc.AddExpense(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding expense")
	}
	return ctx.JSON(http.StatusCreated, e)
}

// settle marks member_id's share as paid back; it defaults to the context user.
func (api *expenseApi) settle(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data SettleRequest
	if ctx.Request().ContentLength > 0 {
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to SettleRequest")
		}
	}
	if data.MemberID == "" {
		data.MemberID = usr.ID
	}
	e, err := api.svc.Settle(ctx.Request().Context(), usr.ID, ctx.Param("id"), ctx.Param("expenseID"), data.MemberID)
	if err != nil {
		return errors.Wrap(err, "settling share")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *expenseApi) balances(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	b, err := api.svc.Balances(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing balances")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *expenseApi) invite(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	token, err := api.svc.InviteToken(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "making invite token")
	}
	return ctx.JSON(http.StatusOK, InviteResponse{Token: token})
}

func (api *expenseApi) join(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data JoinRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	grp, err := api.svc.Join(ctx.Request().Context(), usr.ID, data.Token)
	if err != nil {
		return errors.Wrap(err, "joining group")
	}
	return ctx.JSON(http.StatusOK, grp)
}
