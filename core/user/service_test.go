package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/storage/database/inmem"
)

func newService(t *testing.T) *user.Service {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return user.NewService(inmemdb.NewUserRepository(inmemdb.Open()), validate)
}

func mockNow(t *testing.T, now time.Time) {
	orig := user.NowFunc
	user.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { user.NowFunc = orig })
}

func TestService_EnsureFromIdentity(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	first := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	id := user.Identity{Subject: "stu-1", Name: "Asha Rao", Email: "asha@kampus.test", Roles: []string{user.RoleStudent}}

	mockNow(t, first)
	usr, err := svc.EnsureFromIdentity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, usr.CreatedAt)
	assert.True(t, usr.IsStudent())

	// the provider's profile wins, the creation date is kept
	later := first.Add(48 * time.Hour)
	mockNow(t, later)
	id.Name = "Asha R."
	id.Roles = []string{user.RoleStudent, user.RoleAdmin}
	usr, err = svc.EnsureFromIdentity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Asha R.", usr.Name)
	assert.Equal(t, first, usr.CreatedAt)
	assert.Equal(t, later, usr.LastSeen)

	got, err := svc.GetByID(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, usr, got)

	t.Run("invalid identity", func(t *testing.T) {
		_, err := svc.EnsureFromIdentity(ctx, user.Identity{Subject: "stu-2", Name: " ", Email: "nope"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 2)
	})
}

func TestService_GetByIDs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.EnsureFromIdentity(ctx, user.Identity{Subject: id, Name: id})
		require.NoError(t, err)
	}

	found, err := svc.GetByIDs(ctx, "a", "c", "zz")
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Contains(t, found, "a")
	assert.Contains(t, found, "c")

	found, err = svc.GetByIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = svc.GetByID(ctx, "zz")
	assert.Equal(t, user.ErrNotFound, err)
}
