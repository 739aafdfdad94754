package steps

import (
	"context"
	"fmt"
	"path"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type databaseStep struct {
	connector ports.DatabaseConnector
	files     ports.FileStore
	settings  Settings
}

func (s *databaseStep) Name() string { return Database }

func (s *databaseStep) Fatal(reconcile.DesiredState) bool { return true }

// adminLogin returns the privileged login, on the named database when
// database is not empty.
func (s *databaseStep) adminLogin(db reconcile.Database, database string) ports.DatabaseLogin {
	admin := s.settings.Admin
	defaults := dialectFor(db.Engine).defaults()
	if admin.User == "" {
		admin.User = defaults.User
	}
	login := ports.DatabaseLogin{
		Engine:   db.Engine,
		User:     admin.User,
		Password: admin.Password,
		Database: database,
	}
	if db.IsLocal() {
		login.Socket = admin.Socket
		if login.Socket == "" {
			login.Socket = defaults.Socket
		}
		return login
	}
	login.Host = db.Host
	login.Port = db.Port
	return login
}

func (s *databaseStep) SchemaPath(engine reconcile.DatabaseEngine) string {
	return path.Join(s.settings.SchemaDir, dialectFor(engine).schemaDir(), "proxy.sql")
}

func (s *databaseStep) markerPresent(ctx context.Context, db reconcile.Database) (bool, error) {
	client, err := s.connector.Connect(ctx, s.adminLogin(db, ""))
	if err != nil {
		return false, err
	}
	defer client.Close()
	return client.TableExists(ctx, db.Name, s.settings.MarkerTable)
}

func (s *databaseStep) Evaluate(ctx context.Context, desired reconcile.DesiredState) (*reconcile.Evaluation, error) {
	db := desired.Database
	present, err := s.markerPresent(ctx, db)
	if err != nil {
		return nil, zerrors.NewCollaboratorError(Database, "database", err)
	}
	if present {
		return &reconcile.Evaluation{
			Satisfied: true,
			Message:   fmt.Sprintf("schema present in %s (%s exists)", db.Name, s.settings.MarkerTable),
		}, nil
	}
	return &reconcile.Evaluation{
		Message: fmt.Sprintf("%s.%s missing", db.Name, s.settings.MarkerTable),
		Diff:    fmt.Sprintf("Would create database %s, user %s and import %s\n", db.Name, db.User, s.SchemaPath(db.Engine)),
	}, nil
}

func (s *databaseStep) Apply(ctx context.Context, desired reconcile.DesiredState, _ *reconcile.Evaluation) reconcile.StepResult {
	db := desired.Database
	d := dialectFor(db.Engine)
	fail := func(err error) reconcile.StepResult {
		return reconcile.Failed(Database, zerrors.NewCollaboratorError(Database, "database", err))
	}

	admin, err := s.connector.Connect(ctx, s.adminLogin(db, ""))
	if err != nil {
		return fail(err)
	}
	defer admin.Close()
	if err := d.provision(ctx, admin, db); err != nil {
		return fail(fmt.Errorf("provision %s: %w", db.Name, err))
	}

	// Re-check right before importing: a second import corrupts the schema.
	present, err := admin.TableExists(ctx, db.Name, s.settings.MarkerTable)
	if err != nil {
		return fail(err)
	}
	if present {
		return reconcile.Applied(Database, fmt.Sprintf("database %s and user %s ensured, schema already present", db.Name, db.User))
	}

	schemaPath := s.SchemaPath(db.Engine)
	schema, exists, err := s.files.ReadFile(ctx, schemaPath)
	if err != nil {
		return reconcile.Failed(Database, zerrors.NewCollaboratorError(Database, "filesystem", err))
	}
	if !exists {
		return reconcile.Failed(Database, zerrors.NewCollaboratorError(Database, "filesystem",
			fmt.Errorf("schema %s not found; is zabbix-sql-scripts installed?", schemaPath)))
	}

	target, err := s.connector.Connect(ctx, s.adminLogin(db, db.Name))
	if err != nil {
		return fail(err)
	}
	defer target.Close()
	if err := d.importSchema(ctx, target, db, string(schema)); err != nil {
		return fail(fmt.Errorf("import %s: %w", schemaPath, err))
	}
	return reconcile.Applied(Database, fmt.Sprintf("database %s provisioned, schema imported", db.Name))
}
