// Package trino executes statements against a Trino coordinator through the
// official Go driver. Every call opens its own connection and closes it
// before returning; there is no pooling and no state between calls.
package trino

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/trinodb/trino-go-client/trino"
)

// Params holds the connection parameters resolved once at startup.
type Params struct {
	Host     string
	Port     int
	User     string
	Password string // optional; enables basic auth
	UseTLS   bool
	Catalog  string
	Schema   string
}

// Client builds statements' connections from a fixed DSN.
type Client struct {
	dsn          string
	queryTimeout time.Duration

	// openDB is swapped in tests to serve a mocked *sql.DB.
	openDB func() (*sql.DB, error)
}

// NewClient validates the parameters and precomputes the driver DSN.
func NewClient(p Params, queryTimeout time.Duration) (*Client, error) {
	scheme := "http"
	if p.UseTLS {
		scheme = "https"
	}

	userInfo := url.User(p.User)
	if p.Password != "" {
		userInfo = url.UserPassword(p.User, p.Password)
	}

	cfg := trino.Config{
		ServerURI: fmt.Sprintf("%s://%s@%s:%d", scheme, userInfo.String(), p.Host, p.Port),
		Source:    "trino-mcp-server",
		Catalog:   p.Catalog,
		Schema:    p.Schema,
	}

	dsn, err := cfg.FormatDSN()
	if err != nil {
		return nil, fmt.Errorf("building trino DSN: %w", err)
	}

	c := &Client{dsn: dsn, queryTimeout: queryTimeout}
	c.openDB = func() (*sql.DB, error) {
		return sql.Open("trino", c.dsn)
	}
	return c, nil
}
