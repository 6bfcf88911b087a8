// Package database connects to PostgreSQL, provisions the app role and database,
// and runs the embedded goose migrations.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/kampus/core"
	appfs "github.com/trezcool/kampus/fs"
)

const (
	driverName    = "postgres"
	maintenanceDB = "postgres"
	migrationsDir = "migrations"
	pingAttempts  = 30
)

// connURL builds the lib/pq URL of dbName, as the admin role when asked and one is configured.
func connURL(conf core.DatabaseConfig, dbName string, admin bool) string {
	user := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		user = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}

	q := make(url.Values)
	q.Set("sslmode", "require")
	if conf.DisableTLS {
		q.Set("sslmode", "disable")
	}
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   driverName,
		User:     user,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the app database with the configured pool limits. sqlx.DB satisfies core.DB.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, connURL(conf.Database, conf.Database.Name, false))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(conf.Database.MaxOpenConns)
	db.SetMaxIdleConns(conf.Database.MaxIdleConns)
	db.SetConnMaxLifetime(conf.Database.ConnMaxLifetime)
	return db, nil
}

// waitReady pings db until it answers, waiting 100ms longer between each attempt.
func waitReady(ctx context.Context, db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "database ping timeout")
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, query, name)
	return found, err
}

// ensureRole creates the app role, allowed to create its database.
func ensureRole(ctx context.Context, db *sqlx.DB, conf core.DatabaseConfig) error {
	if conf.User == "" || conf.User == conf.AdminUser {
		return nil
	}
	found, err := exists(ctx, db, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.User)
	if err != nil || found {
		return errors.Wrap(err, "checking app role")
	}
	q := "CREATE ROLE " + pq.QuoteIdentifier(conf.User) +
		" LOGIN CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Password)
	_, err = db.ExecContext(ctx, q)
	return errors.Wrap(err, "creating app role")
}

func ensureDatabase(ctx context.Context, db *sqlx.DB, name string) error {
	found, err := exists(ctx, db, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name)
	if err != nil || found {
		return errors.Wrap(err, "checking database")
	}
	_, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	return errors.Wrap(err, "creating database")
}

// CreateIfNotExist provisions the app role as admin, then the app database as that role
// so that it owns it.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	admin, err := sqlx.Open(driverName, connURL(conf.Database, maintenanceDB, true))
	if err != nil {
		return errors.Wrap(err, "opening maintenance database")
	}
	defer func() { _ = admin.Close() }()
	if err = waitReady(ctx, admin); err != nil {
		return err
	}
	if err = ensureRole(ctx, admin, conf.Database); err != nil {
		return err
	}

	app, err := sqlx.Open(driverName, connURL(conf.Database, maintenanceDB, false))
	if err != nil {
		return errors.Wrap(err, "opening maintenance database")
	}
	defer func() { _ = app.Close() }()
	return ensureDatabase(ctx, app, conf.Database.Name)
}

func init() {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(driverName); err != nil {
		panic(err)
	}
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	return RunMigration(ctx, db, "up")
}

// RunMigration runs a goose command (up, down, status, redo, version...) on the embedded migrations.
func RunMigration(ctx context.Context, db *sql.DB, command string, args ...string) error {
	if err := goose.RunContext(ctx, command, db, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migration %q", command)
	}
	return nil
}
