// Package testutil holds helpers shared by the PostgreSQL integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/storage/database"
)

// DBTestsEnv enables the tests needing a PostgreSQL server.
const DBTestsEnv = "KAMPUS_DB_TESTS"

// PrepareDB migrates a throwaway "<name>_test" database and resets it when the test ends.
// The test is skipped unless DBTestsEnv is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv(DBTestsEnv) == "" || testing.Short() {
		t.Skipf("set %s to run tests against PostgreSQL", DBTestsEnv)
	}
	conf := core.NewTestConfig()
	conf.Database.Name += "_test"
	ctx := context.Background()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		t.Fatalf("creating database: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	if err = database.Migrate(ctx, db.DB); err != nil {
		t.Fatalf("migrating database: %v", err)
	}
	t.Cleanup(func() {
		if err := database.RunMigration(ctx, db.DB, "reset"); err != nil {
			t.Errorf("resetting database: %v", err)
		}
		_ = db.Close()
	})
	return db
}

func CreateUser(t *testing.T, repo user.Repository, id, name, email string, roles ...string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.UpsertUser(context.Background(), user.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
		LastSeen:  now,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
