package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core/expense"
)

func Test_expenseApi(t *testing.T) {
	app := setup(t)
	ownerToken := app.getToken(t, student)
	otherToken := app.getToken(t, other)
	facultyToken := app.getToken(t, faculty)

	var grp expense.Group
	rec := app.do(t, http.MethodPost, "/v1/expenses/groups", ownerToken, expense.NewGroup{Name: "  Goa trip "}, &grp)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Goa trip", grp.Name)
	require.Len(t, grp.Members, 1)
	assert.Equal(t, student.Subject, grp.Members[0].UserID)
	groupPath := "/v1/expenses/groups/" + grp.ID

	t.Run("members only", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, groupPath, otherToken, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = app.do(t, http.MethodGet, groupPath+"/invite", otherToken, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invites", func(t *testing.T) {
		var inv InviteResponse
		rec := app.do(t, http.MethodGet, groupPath+"/invite", ownerToken, nil, &inv)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, inv.Token)

		rec = app.do(t, http.MethodPost, "/v1/expenses/join", otherToken, JoinRequest{Token: inv.Token + "x"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		for _, token := range []string{otherToken, facultyToken} {
			rec = app.do(t, http.MethodPost, "/v1/expenses/join", token, JoinRequest{Token: inv.Token}, nil)
			require.Equal(t, http.StatusOK, rec.Code)
		}
		rec = app.do(t, http.MethodPost, "/v1/expenses/join", otherToken, JoinRequest{Token: inv.Token}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		var g expense.Group
		app.do(t, http.MethodGet, groupPath, otherToken, nil, &g)
		assert.Len(t, g.Members, 3)
	})

	var dinner expense.Expense
	t.Run("equal split", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, groupPath+"/expenses", ownerToken, expense.NewExpense{Description: "Dinner", Amount: 300}, &dinner)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, student.Subject, dinner.PayerID)
		require.Len(t, dinner.Splits, 3)
		for _, s := range dinner.Splits {
			assert.Equal(t, int64(100), s.Amount)
			assert.Equal(t, s.MemberID == student.Subject, s.Settled)
		}

		var b expense.GroupBalances
		app.do(t, http.MethodGet, groupPath+"/balances", otherToken, nil, &b)
		assert.Equal(t, map[string]int64{student.Subject: 200, other.Subject: -100, faculty.Subject: -100}, b.Balances)
		assert.ElementsMatch(t, []expense.Settlement{
			{From: faculty.Subject, To: student.Subject, Amount: 100},
			{From: other.Subject, To: student.Subject, Amount: 100},
		}, b.Settlements)
	})

	t.Run("custom split", func(t *testing.T) {
		bad := expense.NewExpense{Description: "Cab", Amount: 100, PayerID: other.Subject, Splits: []expense.NewSplit{
			{MemberID: student.Subject, Amount: 50},
			{MemberID: other.Subject, Amount: 40},
		}}
		rec := app.do(t, http.MethodPost, groupPath+"/expenses", otherToken, bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		bad.Splits[1].Amount = 50
		bad.PayerID = "stranger"
		rec = app.do(t, http.MethodPost, groupPath+"/expenses", otherToken, bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		cab := bad
		cab.PayerID = other.Subject
		rec = app.do(t, http.MethodPost, groupPath+"/expenses", otherToken, cab, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		var b expense.GroupBalances
		app.do(t, http.MethodGet, groupPath+"/balances", ownerToken, nil, &b)
		assert.Equal(t, map[string]int64{student.Subject: 150, other.Subject: -50, faculty.Subject: -100}, b.Balances)

		var expenses []expense.Expense
		app.do(t, http.MethodGet, groupPath+"/expenses", ownerToken, nil, &expenses)
		assert.Len(t, expenses, 2)
	})

	t.Run("settle", func(t *testing.T) {
		path := groupPath + "/expenses/" + dinner.ID + "/settle"

		// only the payer or the member
		rec := app.do(t, http.MethodPut, path, otherToken, SettleRequest{MemberID: faculty.Subject}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var e expense.Expense
		rec = app.do(t, http.MethodPut, path, otherToken, nil, &e)
		require.Equal(t, http.StatusOK, rec.Code)
		for _, s := range e.Splits {
			if s.MemberID == other.Subject {
				assert.True(t, s.Settled)
			}
		}

		rec = app.do(t, http.MethodPut, path, ownerToken, SettleRequest{MemberID: other.Subject}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = app.do(t, http.MethodPut, path, ownerToken, SettleRequest{MemberID: faculty.Subject}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var b expense.GroupBalances
		app.do(t, http.MethodGet, groupPath+"/balances", ownerToken, nil, &b)
		assert.Equal(t, map[string]int64{student.Subject: -50, other.Subject: 50, faculty.Subject: 0}, b.Balances)
		assert.Equal(t, []expense.Settlement{{From: student.Subject, To: other.Subject, Amount: 50}}, b.Settlements)
	})

	t.Run("unknown expense", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, groupPath+"/expenses/nope/settle", ownerToken, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
