package ports

import (
	"context"
	"os"
	"time"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
)

// PackageManager installs and inspects system packages.
type PackageManager interface {
	UpdateIndex(ctx context.Context) error
	Install(ctx context.Context, names ...string) error
	// InstalledVersion returns the installed version of a package and false
	// when it is not installed.
	InstalledVersion(ctx context.Context, name string) (string, bool, error)
}

// RepositoryRegistrar manages the upstream package source.
type RepositoryRegistrar interface {
	// FetchAvailableVersions returns published major.minor versions in
	// ascending order.
	FetchAvailableVersions(ctx context.Context) ([]string, error)
	// RegisteredVersion returns the major.minor of the registered source and
	// false when none is registered.
	RegisteredVersion(ctx context.Context) (string, bool, error)
	RegisterRepository(ctx context.Context, version string) error
}

// DatabaseLogin identifies a database session.
type DatabaseLogin struct {
	Engine   reconcile.DatabaseEngine
	Host     string
	Port     int
	Socket   string
	User     string
	Password string
	Database string
}

// DatabaseConnector opens database sessions.
type DatabaseConnector interface {
	Connect(ctx context.Context, login DatabaseLogin) (DatabaseClient, error)
}

// DatabaseClient runs SQL against one session.
type DatabaseClient interface {
	// Execute runs one or more statements that return no rows.
	Execute(ctx context.Context, sql string) error
	// Query returns every row as strings; NULL becomes "".
	Query(ctx context.Context, sql string, args ...any) ([][]string, error)
	TableExists(ctx context.Context, database, table string) (bool, error)
	Close() error
}

// ServiceManager controls a system service.
type ServiceManager interface {
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	EnableOnBoot(ctx context.Context, name string) error
	IsActive(ctx context.Context, name string) (bool, error)
	IsEnabled(ctx context.Context, name string) (bool, error)
	// ActiveSince returns when the service last entered the active state;
	// the zero time means it is not running.
	ActiveSince(ctx context.Context, name string) (time.Time, error)
}

// StaticAddress is a static IPv4 configuration for one interface.
type StaticAddress struct {
	Interface   string
	Address     string
	Prefix      int
	Gateway     string
	Nameservers []string
	MTU         int
}

// NetworkConfigurator applies interface configuration.
type NetworkConfigurator interface {
	ApplyStaticConfig(ctx context.Context, cfg StaticAddress) error
	// CurrentAddress returns the first IPv4 address and prefix of an
	// interface and false when it has none.
	CurrentAddress(ctx context.Context, iface string) (string, int, bool, error)
}

// HostnameConfigurator reads and sets the system hostname.
type HostnameConfigurator interface {
	CurrentHostname(ctx context.Context) (string, error)
	SetHostname(ctx context.Context, name string) error
}

// Resources describes host capacity relevant to the installation.
type Resources struct {
	TotalMemoryBytes uint64
	FreeDiskBytes    uint64
}

// HostInspector reads host capacity.
type HostInspector interface {
	Resources(ctx context.Context, path string) (Resources, error)
}

// PortProbe checks local TCP listeners.
type PortProbe interface {
	Listening(ctx context.Context, port int) (bool, error)
}

// DirectoryState describes an existing directory.
type DirectoryState struct {
	Exists bool
	Mode   os.FileMode
	Owner  string
	Group  string
}

// DirectoryManager inspects and converges runtime directories.
type DirectoryManager interface {
	Inspect(ctx context.Context, path string) (DirectoryState, error)
	// Ensure creates the directory when missing and always applies owner,
	// group and mode.
	Ensure(ctx context.Context, path, owner, group string, mode os.FileMode) error
}

// FileStore reads and replaces whole files.
type FileStore interface {
	// ReadFile returns the content and false when the file does not exist.
	ReadFile(ctx context.Context, path string) ([]byte, bool, error)
	// WriteFile replaces the file atomically, keeping the owner of an
	// existing file.
	WriteFile(ctx context.Context, path string, data []byte, mode os.FileMode) error
	// ModTime returns the last modification time and false when missing.
	ModTime(ctx context.Context, path string) (time.Time, bool, error)
	// Chown sets the owner and group of an existing file. Empty names are
	// left unchanged.
	Chown(ctx context.Context, path, owner, group string) error
}

// ConfigHistory records each rendered configuration.
type ConfigHistory interface {
	Record(ctx context.Context, name string, content []byte, message string) error
}

// Prompter asks the operator yes/no questions. Non-interactive
// implementations return a configured answer.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}
