package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
)

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	t.Run("signed out", func(t *testing.T) {
		var me MeResponse
		rec := app.do(t, http.MethodGet, "/v1/me", "", nil, &me)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, me.SignedIn)
		assert.Nil(t, me.User)
	})

	t.Run("signed in", func(t *testing.T) {
		var me MeResponse
		rec := app.do(t, http.MethodGet, "/v1/me", app.getToken(t, student), nil, &me)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, me.SignedIn)
		require.NotNil(t, me.User)
		assert.Equal(t, student.Subject, me.User.ID)
		assert.Equal(t, student.Name, me.User.Name)
		assert.Equal(t, student.Email, me.User.Email)
	})

	t.Run("profile follows the provider", func(t *testing.T) {
		renamed := student
		renamed.Name = "Asha R."

		var me MeResponse
		app.do(t, http.MethodGet, "/v1/me", app.getToken(t, renamed), nil, &me)
		require.NotNil(t, me.User)
		assert.Equal(t, student.Subject, me.User.ID)
		assert.Equal(t, "Asha R.", me.User.Name)
	})

	t.Run("bad token", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/me", "not-a-jwt", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_userApi_tokens(t *testing.T) {
	app := setup(t)

	expired, err := GenerateToken(app.conf.Auth.IdentitySecret, NewClaims(student, "", -time.Minute))
	require.NoError(t, err)
	forged, err := GenerateToken("someone-else's-secret", NewClaims(student, "", time.Hour))
	require.NoError(t, err)
	nameless := student
	nameless.Name = ""

	tests := []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/roles",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "expired token",
			method:   http.MethodGet,
			path:     "/v1/roles",
			token:    expired,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "forged token",
			method:   http.MethodGet,
			path:     "/v1/roles",
			token:    forged,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "identity without a name",
			method:   http.MethodGet,
			path:     "/v1/roles",
			token:    app.getToken(t, nameless),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/v1/roles",
			token:    app.getToken(t, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Roles),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_userApi_issuer(t *testing.T) {
	app := setup(t, func(conf *core.Config) { conf.Auth.Issuer = "https://id.kampus.test" })

	good, err := GenerateToken(app.conf.Auth.IdentitySecret, NewClaims(student, "https://id.kampus.test", time.Hour))
	require.NoError(t, err)
	bad, err := GenerateToken(app.conf.Auth.IdentitySecret, NewClaims(student, "https://evil.test", time.Hour))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/v1/roles", good, nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/v1/roles", bad, nil, nil).Code)
}

func Test_home(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Kampus API!", rec.Body.String())
}

func Test_userApi_directory(t *testing.T) {
	app := setup(t)
	studentToken := app.getToken(t, student)
	facultyToken := app.getToken(t, faculty)

	t.Run("students cannot browse", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/users", studentToken, nil, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("search", func(t *testing.T) {
		var users []user.User
		rec := app.do(t, http.MethodGet, "/v1/users?search=asha", facultyToken, nil, &users)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, users, 1)
		assert.Equal(t, student.Subject, users[0].ID)
	})

	t.Run("ordered by name", func(t *testing.T) {
		var users []user.User
		rec := app.do(t, http.MethodGet, "/v1/users?ordering=-name", facultyToken, nil, &users)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, users, 2)
		assert.Equal(t, faculty.Subject, users[0].ID)

		rec = app.do(t, http.MethodGet, "/v1/users?ordering=password", facultyToken, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
