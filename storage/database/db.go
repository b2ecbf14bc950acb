// Package database opens the Postgres connection, creates the database and runs the migrations.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/genzugar/backend/core"
	appfs "github.com/genzugar/backend/fs"
)

const (
	pingAttempts = 30
	pingStep     = 100 * time.Millisecond
)

// dsn returns the connection URL of dbName, as the admin role when asAdmin is set and one is configured.
func dsn(conf *core.Config, dbName string, asAdmin bool) string {
	dbc := conf.Database
	role := url.UserPassword(dbc.User, dbc.Password)
	if asAdmin && dbc.AdminUser != "" {
		role = url.UserPassword(dbc.AdminUser, dbc.AdminPassword)
	}

	q := url.Values{"timezone": {"utc"}, "sslmode": {"require"}}
	if dbc.DisableTLS {
		q.Set("sslmode", "disable")
	}
	u := url.URL{Scheme: "postgres", User: role, Host: dbc.Address(), Path: dbName, RawQuery: q.Encode()}
	return u.String()
}

// connect opens dbName and waits for the server to accept connections, backing off a bit more after
// each failed attempt.
func connect(ctx context.Context, conf *core.Config, dbName string, asAdmin bool) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn(conf, dbName, asAdmin))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	for attempt := 1; ; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		if attempt == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempt) * pingStep):
		}
	}
	_ = db.Close()
	return nil, errors.Wrapf(err, "database not ready after %d attempts", pingAttempts)
}

// ensure runs create unless exists reports a row for name.
func ensure(ctx context.Context, db *sql.DB, exists, create, name string) error {
	var found bool
	if err := db.QueryRowContext(ctx, exists, name).Scan(&found); err != nil {
		return errors.Wrapf(err, "looking up %s", name)
	}
	if found {
		return nil
	}
	_, err := db.ExecContext(ctx, create)
	return errors.Wrapf(err, "creating %s", name)
}

// CreateIfNotExist creates the application role (with the admin role) and then the application database
// (as the application role), skipping whichever already exists.
func CreateIfNotExist(conf *core.Config) error {
	ctx := context.Background()
	dbc := conf.Database

	if dbc.User != "" {
		admin, err := connect(ctx, conf, "postgres", true)
		if err != nil {
			return err
		}
		defer func() { _ = admin.Close() }()

		err = ensure(ctx, admin,
			"SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)",
			"CREATE USER "+pq.QuoteIdentifier(dbc.User)+" CREATEDB ENCRYPTED PASSWORD "+pq.QuoteLiteral(dbc.Password),
			dbc.User)
		if err != nil {
			return err
		}
	}

	app, err := connect(ctx, conf, "postgres", false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	return ensure(ctx, app,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)",
		"CREATE DATABASE "+pq.QuoteIdentifier(dbc.Name),
		dbc.Name)
}

// Open connects to the application database and waits for it to be ready.
func Open(conf *core.Config) (*sql.DB, error) {
	return connect(context.Background(), conf, conf.Database.Name, false)
}

func init() {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		panic(err)
	}
}

// Migrate applies every pending migration.
func Migrate(db *sql.DB) error {
	return RunMigration(context.Background(), db, "up")
}

// RunMigration runs a goose command (up, down, status, redo, version...) on the embedded migrations.
func RunMigration(ctx context.Context, db *sql.DB, command string, args ...string) error {
	if err := goose.RunContext(ctx, command, db, appfs.MigrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migration %q", command)
	}
	return nil
}
