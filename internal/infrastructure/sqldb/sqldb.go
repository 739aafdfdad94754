// Package sqldb implements the database ports over database/sql with the
// MySQL and PostgreSQL drivers.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

const connectTimeout = 10 * time.Second

// Connector opens one dedicated session per Connect call.
type Connector struct{}

var _ ports.DatabaseConnector = Connector{}

// Connect opens a session. Statements run by the returned client share
// that session, so session settings such as SET ROLE persist.
func (Connector) Connect(ctx context.Context, login ports.DatabaseLogin) (ports.DatabaseClient, error) {
	driver, dsn := "mysql", MySQLDSN(login)
	if login.Engine == reconcile.EnginePostgreSQL {
		driver, dsn = "postgres", PostgresDSN(login)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", describe(login), err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", describe(login), err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", describe(login), err)
	}
	return &client{db: db, conn: conn, login: login}, nil
}

func describe(login ports.DatabaseLogin) string {
	where := login.Socket
	if where == "" {
		where = net.JoinHostPort(login.Host, strconv.Itoa(defaultPort(login)))
	}
	return fmt.Sprintf("%s as %s via %s", login.Engine, login.User, where)
}

func defaultPort(login ports.DatabaseLogin) int {
	switch {
	case login.Port != 0:
		return login.Port
	case login.Engine == reconcile.EnginePostgreSQL:
		return 5432
	default:
		return 3306
	}
}

// MySQLDSN builds a go-sql-driver/mysql DSN. Multiple statements are
// allowed so schema files can run in one call.
func MySQLDSN(login ports.DatabaseLogin) string {
	cfg := mysql.NewConfig()
	cfg.User = login.User
	cfg.Passwd = login.Password
	cfg.DBName = login.Database
	cfg.MultiStatements = true
	cfg.Timeout = connectTimeout
	if login.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = login.Socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(login.Host, strconv.Itoa(defaultPort(login)))
	}
	return cfg.FormatDSN()
}

// PostgresDSN builds a lib/pq key/value connection string. A socket is
// given as the directory holding it.
func PostgresDSN(login ports.DatabaseLogin) string {
	database := login.Database
	if database == "" {
		database = "postgres"
	}
	host := login.Host
	if login.Socket != "" {
		host = login.Socket
	}
	pairs := [][2]string{
		{"host", host},
		{"port", strconv.Itoa(defaultPort(login))},
		{"user", login.User},
		{"dbname", database},
		{"connect_timeout", strconv.Itoa(int(connectTimeout.Seconds()))},
	}
	if login.Password != "" {
		pairs = append(pairs, [2]string{"password", login.Password})
	}
	if login.Socket != "" || login.Host == "localhost" || login.Host == "127.0.0.1" {
		pairs = append(pairs, [2]string{"sslmode", "disable"})
	} else {
		pairs = append(pairs, [2]string{"sslmode", "prefer"})
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+"="+quoteValue(p[1]))
	}
	return strings.Join(parts, " ")
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

type client struct {
	db    *sql.DB
	conn  *sql.Conn
	login ports.DatabaseLogin
}

func (c *client) Execute(ctx context.Context, statement string) error {
	if _, err := c.conn.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("execute %s: %w", summarize(statement), err)
	}
	return nil
}

func (c *client) Query(ctx context.Context, query string, args ...any) ([][]string, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", summarize(query), err)
	}
	defer rows.Close()
	return collect(rows)
}

func (c *client) TableExists(ctx context.Context, database, table string) (bool, error) {
	if c.login.Engine == reconcile.EnginePostgreSQL {
		return c.postgresTableExists(ctx, database, table)
	}
	rows, err := c.Query(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
		database, table)
	if err != nil {
		return false, err
	}
	return len(rows) == 1 && rows[0][0] != "0", nil
}

// postgresTableExists looks inside database, which may not be the one this
// session is connected to. A missing database means a missing table.
func (c *client) postgresTableExists(ctx context.Context, database, table string) (bool, error) {
	current, err := c.Query(ctx, "SELECT current_database()")
	if err != nil {
		return false, err
	}
	if len(current) == 1 && current[0][0] == database {
		rows, err := c.Query(ctx, "SELECT to_regclass($1) IS NOT NULL", pq.QuoteIdentifier(table))
		if err != nil {
			return false, err
		}
		return len(rows) == 1 && rows[0][0] == "true", nil
	}

	found, err := c.Query(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", database)
	if err != nil {
		return false, err
	}
	if len(found) == 0 {
		return false, nil
	}

	login := c.login
	login.Database = database
	other, err := Connector{}.Connect(ctx, login)
	if err != nil {
		return false, err
	}
	defer other.Close()
	return other.TableExists(ctx, database, table)
}

func (c *client) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

func collect(rows *sql.Rows) ([][]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = v.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// summarize shortens statements for error messages and never includes
// anything after IDENTIFIED BY or PASSWORD.
func summarize(statement string) string {
	s := strings.Join(strings.Fields(statement), " ")
	upper := strings.ToUpper(s)
	for _, marker := range []string{" IDENTIFIED BY ", " PASSWORD "} {
		if i := strings.Index(upper, marker); i >= 0 {
			s = s[:i+len(marker)] + "***"
			upper = strings.ToUpper(s)
		}
	}
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return strconv.Quote(s)
}
