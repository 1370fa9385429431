package db_client

import (
	"database/sql"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const applicationName = "roomrelay"

type Options struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

// DSN renders opts as a postgres:// URL. Credentials are escaped.
func DSN(opts Options) string {
	q := url.Values{}
	q.Set("application_name", applicationName)
	if opts.SSLMode != "" {
		q.Set("sslmode", opts.SSLMode)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(opts.User, opts.Password),
		Host:     net.JoinHostPort(opts.Host, opts.Port),
		Path:     "/" + opts.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func Open(opts Options) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(DSN(opts))
	if err != nil {
		return nil, err
	}

	db := stdlib.OpenDB(*connCfg)
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	db.SetConnMaxIdleTime(time.Minute)
	return db, db.Ping()
}
