package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// dialect holds the engine-specific provisioning SQL.
type dialect interface {
	defaults() AdminLogin
	schemaDir() string
	provision(ctx context.Context, client ports.DatabaseClient, db reconcile.Database) error
	importSchema(ctx context.Context, client ports.DatabaseClient, db reconcile.Database, schema string) error
}

func dialectFor(engine reconcile.DatabaseEngine) dialect {
	if engine == reconcile.EnginePostgreSQL {
		return postgresDialect{}
	}
	return mysqlDialect{}
}

type mysqlDialect struct{}

func (mysqlDialect) defaults() AdminLogin {
	return AdminLogin{User: "root", Socket: "/run/mysqld/mysqld.sock"}
}

func (mysqlDialect) schemaDir() string { return "mysql" }

func mysqlIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// mysqlString quotes s by doubling single quotes. Backslashes are refused by
// provision so the literal reads the same with or without NO_BACKSLASH_ESCAPES.
func mysqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (mysqlDialect) provision(ctx context.Context, client ports.DatabaseClient, db reconcile.Database) error {
	if strings.Contains(db.User, `\`) || strings.Contains(db.Password, `\`) {
		return fmt.Errorf("mysql credentials must not contain a backslash")
	}
	host := "%"
	if db.IsLocal() {
		host = "localhost"
	}
	account := mysqlString(db.User) + "@" + mysqlString(host)
	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4 COLLATE utf8mb4_bin", mysqlIdent(db.Name)),
		fmt.Sprintf("CREATE USER IF NOT EXISTS %s IDENTIFIED BY %s", account, mysqlString(db.Password)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO %s", mysqlIdent(db.Name), account),
		"FLUSH PRIVILEGES",
	}
	for _, stmt := range statements {
		if err := client.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// importSchema relaxes binary log trust only for the duration of the import;
// the proxy schema creates triggers.
func (mysqlDialect) importSchema(ctx context.Context, client ports.DatabaseClient, _ reconcile.Database, schema string) error {
	if err := client.Execute(ctx, "SET GLOBAL log_bin_trust_function_creators = 1"); err != nil {
		return err
	}
	importErr := client.Execute(ctx, schema)
	if err := client.Execute(ctx, "SET GLOBAL log_bin_trust_function_creators = 0"); err != nil && importErr == nil {
		return err
	}
	return importErr
}

type postgresDialect struct{}

func (postgresDialect) defaults() AdminLogin {
	return AdminLogin{User: "postgres", Socket: "/var/run/postgresql"}
}

func (postgresDialect) schemaDir() string { return "postgresql" }

func (postgresDialect) provision(ctx context.Context, client ports.DatabaseClient, db reconcile.Database) error {
	roles, err := client.Query(ctx, "SELECT 1 FROM pg_roles WHERE rolname = $1", db.User)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		stmt := fmt.Sprintf("CREATE ROLE %s LOGIN PASSWORD %s", pq.QuoteIdentifier(db.User), pq.QuoteLiteral(db.Password))
		if err := client.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	dbs, err := client.Query(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", db.Name)
	if err != nil {
		return err
	}
	if len(dbs) == 0 {
		stmt := fmt.Sprintf("CREATE DATABASE %s OWNER %s ENCODING 'UTF8' TEMPLATE template0",
			pq.QuoteIdentifier(db.Name), pq.QuoteIdentifier(db.User))
		if err := client.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// importSchema runs as the proxy role so it owns every table.
func (postgresDialect) importSchema(ctx context.Context, client ports.DatabaseClient, db reconcile.Database, schema string) error {
	if err := client.Execute(ctx, "SET ROLE "+pq.QuoteIdentifier(db.User)); err != nil {
		return err
	}
	importErr := client.Execute(ctx, schema)
	if err := client.Execute(ctx, "RESET ROLE"); err != nil && importErr == nil {
		return err
	}
	return importErr
}
