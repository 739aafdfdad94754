// Package portstest provides an in-memory host implementing every
// collaborator port, for tests that drive whole reconciliation runs.
package portstest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// Service is the fake state of one system service.
type Service struct {
	Active  bool
	Enabled bool
	Since   time.Time
	// StayInactive makes starts succeed without the service becoming active.
	StayInactive bool
}

// File is a fake file.
type File struct {
	Data    []byte
	Mode    os.FileMode
	ModTime time.Time
	Owner   string
	Group   string
}

// System is a fake Debian host. Zero maps are allocated by NewSystem.
type System struct {
	mu    sync.Mutex
	clock time.Time

	Calls []string
	// Fail makes the named operation return the error. Operation names match
	// the entries recorded in Calls.
	Fail map[string]error

	Packages     map[string]string
	// PackageFiles are written to Files when the package is installed.
	PackageFiles map[string]map[string][]byte
	Versions     []string
	RepoVersion  string

	Tables     map[string]map[string]bool
	Statements []string
	QueryFunc  func(sql string, args []any) [][]string

	Services       map[string]*Service
	Interfaces     map[string]string
	Hostname       string
	Files          map[string]File
	Dirs           map[string]ports.DirectoryState
	HostResources  ports.Resources
	ListeningPorts map[int]bool
	History        []string

	Answers       []bool
	DefaultAnswer bool
	Questions     []string
}

var (
	_ ports.PackageManager       = (*System)(nil)
	_ ports.RepositoryRegistrar  = (*System)(nil)
	_ ports.DatabaseConnector    = (*System)(nil)
	_ ports.ServiceManager       = (*System)(nil)
	_ ports.NetworkConfigurator  = (*System)(nil)
	_ ports.HostnameConfigurator = (*System)(nil)
	_ ports.HostInspector        = (*System)(nil)
	_ ports.PortProbe            = (*System)(nil)
	_ ports.DirectoryManager     = (*System)(nil)
	_ ports.FileStore            = (*System)(nil)
	_ ports.ConfigHistory        = (*System)(nil)
	_ ports.Prompter             = (*System)(nil)
)

// NewSystem returns a clean host with plenty of resources and nothing
// Zabbix-related installed.
func NewSystem() *System {
	return &System{
		clock:          time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC),
		Fail:           map[string]error{},
		Packages:       map[string]string{},
		PackageFiles:   DefaultPackageFiles(),
		Versions:       []string{"5.0", "6.0", "6.4", "7.0", "7.2"},
		Tables:         map[string]map[string]bool{},
		Services:       map[string]*Service{},
		Interfaces:     map[string]string{"eth0": "10.0.2.15/24"},
		Hostname:       "debian",
		Files:          map[string]File{},
		Dirs:           map[string]ports.DirectoryState{},
		HostResources:  ports.Resources{TotalMemoryBytes: 8 << 30, FreeDiskBytes: 50 << 30},
		ListeningPorts: map[int]bool{},
	}
}

// DefaultPackageFiles returns a minimal rendition of the files shipped by
// the upstream proxy packages.
func DefaultPackageFiles() map[string]map[string][]byte {
	packaged := []byte("# This is a configuration file for Zabbix proxy daemon\nServer=127.0.0.1\nHostname=Zabbix proxy\nDBName=zabbix_proxy\nDBUser=zabbix\n")
	return map[string]map[string][]byte{
		"zabbix-proxy-mysql": {"/etc/zabbix/zabbix_proxy.conf": packaged},
		"zabbix-proxy-pgsql": {"/etc/zabbix/zabbix_proxy.conf": packaged},
		"zabbix-sql-scripts": {
			"/usr/share/zabbix-sql-scripts/mysql/proxy.sql":      []byte("CREATE TABLE `users` (\n\t`userid` bigint unsigned NOT NULL\n);\nCREATE TABLE `dbversion` (\n\t`dbversionid` bigint unsigned NOT NULL\n);\n"),
			"/usr/share/zabbix-sql-scripts/postgresql/proxy.sql": []byte("CREATE TABLE users (\n\tuserid bigint NOT NULL\n);\nCREATE TABLE dbversion (\n\tdbversionid bigint NOT NULL\n);\n"),
		},
	}
}

// Now returns the fake clock without advancing it.
func (s *System) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// ResetCalls forgets recorded calls, statements and questions.
func (s *System) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = nil
	s.Questions = nil
}

// CallCount returns how often op was recorded.
func (s *System) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if c == op {
			n++
		}
	}
	return n
}

// StatementCount returns how many executed statements contain substr.
func (s *System) StatementCount(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, stmt := range s.Statements {
		if strings.Contains(stmt, substr) {
			n++
		}
	}
	return n
}

// record logs op, advances the clock and returns the configured failure.
func (s *System) record(op string) error {
	s.Calls = append(s.Calls, op)
	s.clock = s.clock.Add(time.Second)
	return s.Fail[op]
}

// PackageManager

func (s *System) UpdateIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("update-index")
}

func (s *System) Install(ctx context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("install"); err != nil {
		return err
	}
	for _, name := range names {
		version := "1.0-1"
		if strings.HasPrefix(name, "zabbix-") {
			if s.RepoVersion == "" {
				return fmt.Errorf("E: Unable to locate package %s", name)
			}
			version = "1:" + s.RepoVersion + ".5-1+debian12"
		}
		s.Packages[name] = version
		for path, data := range s.PackageFiles[name] {
			if _, exists := s.Files[path]; !exists {
				s.Files[path] = File{Data: append([]byte(nil), data...), Mode: 0o640, ModTime: s.clock}
			}
		}
	}
	return nil
}

func (s *System) InstalledVersion(ctx context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("installed-version"); err != nil {
		return "", false, err
	}
	v, ok := s.Packages[name]
	return v, ok, nil
}

// RepositoryRegistrar

func (s *System) FetchAvailableVersions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("fetch-versions"); err != nil {
		return nil, err
	}
	return append([]string(nil), s.Versions...), nil
}

func (s *System) RegisteredVersion(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("registered-version"); err != nil {
		return "", false, err
	}
	return s.RepoVersion, s.RepoVersion != "", nil
}

func (s *System) RegisterRepository(ctx context.Context, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("register-repository"); err != nil {
		return err
	}
	s.RepoVersion = version
	s.Packages["zabbix-release"] = "1:" + version + "-2+debian12"
	return nil
}

// DatabaseConnector

func (s *System) Connect(ctx context.Context, login ports.DatabaseLogin) (ports.DatabaseClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("connect"); err != nil {
		return nil, err
	}
	return &database{sys: s, login: login}, nil
}

type database struct {
	sys   *System
	login ports.DatabaseLogin
}

func (d *database) Execute(ctx context.Context, sql string) error {
	d.sys.mu.Lock()
	defer d.sys.mu.Unlock()
	if err := d.sys.record("execute"); err != nil {
		return err
	}
	d.sys.Statements = append(d.sys.Statements, sql)
	if strings.Contains(sql, "CREATE TABLE") {
		for _, table := range createdTables(sql) {
			if d.sys.Tables[d.login.Database] == nil {
				d.sys.Tables[d.login.Database] = map[string]bool{}
			}
			d.sys.Tables[d.login.Database][table] = true
		}
	}
	return nil
}

func (d *database) Query(ctx context.Context, sql string, args ...any) ([][]string, error) {
	d.sys.mu.Lock()
	defer d.sys.mu.Unlock()
	if err := d.sys.record("query"); err != nil {
		return nil, err
	}
	if d.sys.QueryFunc != nil {
		return d.sys.QueryFunc(sql, args), nil
	}
	return nil, nil
}

func (d *database) TableExists(ctx context.Context, db, table string) (bool, error) {
	d.sys.mu.Lock()
	defer d.sys.mu.Unlock()
	if err := d.sys.record("table-exists"); err != nil {
		return false, err
	}
	return d.sys.Tables[db][table], nil
}

func (d *database) Close() error { return nil }

func createdTables(sql string) []string {
	var tables []string
	for _, line := range strings.Split(sql, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && strings.EqualFold(fields[0], "CREATE") && strings.EqualFold(fields[1], "TABLE") {
			tables = append(tables, strings.Trim(fields[2], "`\"("))
		}
	}
	return tables
}

// ServiceManager

func (s *System) service(name string) *Service {
	svc, ok := s.Services[name]
	if !ok {
		svc = &Service{}
		s.Services[name] = svc
	}
	return svc
}

func (s *System) Start(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("start"); err != nil {
		return err
	}
	s.activate(s.service(name))
	return nil
}

func (s *System) Stop(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("stop"); err != nil {
		return err
	}
	svc := s.service(name)
	svc.Active = false
	svc.Since = time.Time{}
	return nil
}

func (s *System) Restart(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("restart"); err != nil {
		return err
	}
	s.activate(s.service(name))
	return nil
}

func (s *System) activate(svc *Service) {
	if svc.StayInactive {
		svc.Active = false
		return
	}
	svc.Active = true
	svc.Since = s.clock
}

func (s *System) EnableOnBoot(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("enable"); err != nil {
		return err
	}
	s.service(name).Enabled = true
	return nil
}

func (s *System) IsActive(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("is-active"); err != nil {
		return false, err
	}
	svc, ok := s.Services[name]
	return ok && svc.Active, nil
}

func (s *System) IsEnabled(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("is-enabled"); err != nil {
		return false, err
	}
	svc, ok := s.Services[name]
	return ok && svc.Enabled, nil
}

func (s *System) ActiveSince(ctx context.Context, name string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("active-since"); err != nil {
		return time.Time{}, err
	}
	svc, ok := s.Services[name]
	if !ok || !svc.Active {
		return time.Time{}, nil
	}
	return svc.Since, nil
}

// NetworkConfigurator

func (s *System) ApplyStaticConfig(ctx context.Context, cfg ports.StaticAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("apply-network"); err != nil {
		return err
	}
	s.Interfaces[cfg.Interface] = fmt.Sprintf("%s/%d", cfg.Address, cfg.Prefix)
	return nil
}

func (s *System) CurrentAddress(ctx context.Context, iface string) (string, int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("current-address"); err != nil {
		return "", 0, false, err
	}
	cidr, ok := s.Interfaces[iface]
	if !ok {
		return "", 0, false, nil
	}
	addr, prefix, _ := strings.Cut(cidr, "/")
	n, _ := strconv.Atoi(prefix)
	return addr, n, true, nil
}

// HostnameConfigurator

func (s *System) CurrentHostname(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("current-hostname"); err != nil {
		return "", err
	}
	return s.Hostname, nil
}

func (s *System) SetHostname(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("set-hostname"); err != nil {
		return err
	}
	s.Hostname = name
	return nil
}

// HostInspector

func (s *System) Resources(ctx context.Context, path string) (ports.Resources, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("resources"); err != nil {
		return ports.Resources{}, err
	}
	return s.HostResources, nil
}

// PortProbe

func (s *System) Listening(ctx context.Context, port int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("listening"); err != nil {
		return false, err
	}
	return s.ListeningPorts[port], nil
}

// DirectoryManager

func (s *System) Inspect(ctx context.Context, path string) (ports.DirectoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("inspect-dir"); err != nil {
		return ports.DirectoryState{}, err
	}
	return s.Dirs[path], nil
}

func (s *System) Ensure(ctx context.Context, path, owner, group string, mode os.FileMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ensure-dir"); err != nil {
		return err
	}
	s.Dirs[path] = ports.DirectoryState{Exists: true, Mode: mode, Owner: owner, Group: group}
	return nil
}

// FileStore

func (s *System) ReadFile(ctx context.Context, path string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("read-file"); err != nil {
		return nil, false, err
	}
	f, ok := s.Files[path]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), f.Data...), true, nil
}

func (s *System) WriteFile(ctx context.Context, path string, data []byte, mode os.FileMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("write-file"); err != nil {
		return err
	}
	prev := s.Files[path]
	s.Files[path] = File{Data: append([]byte(nil), data...), Mode: mode, ModTime: s.clock, Owner: prev.Owner, Group: prev.Group}
	return nil
}

func (s *System) Chown(ctx context.Context, path, owner, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("chown-file"); err != nil {
		return err
	}
	f, ok := s.Files[path]
	if !ok {
		return &fs.PathError{Op: "chown", Path: path, Err: fs.ErrNotExist}
	}
	if owner != "" {
		f.Owner = owner
	}
	if group != "" {
		f.Group = group
	}
	s.Files[path] = f
	return nil
}

func (s *System) ModTime(ctx context.Context, path string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("mod-time"); err != nil {
		return time.Time{}, false, err
	}
	f, ok := s.Files[path]
	if !ok {
		return time.Time{}, false, nil
	}
	return f.ModTime, true, nil
}

// ConfigHistory

func (s *System) Record(ctx context.Context, name string, content []byte, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("history"); err != nil {
		return err
	}
	s.History = append(s.History, message)
	return nil
}

// Prompter

func (s *System) Confirm(ctx context.Context, question string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Questions = append(s.Questions, question)
	if len(s.Answers) > 0 {
		answer := s.Answers[0]
		s.Answers = s.Answers[1:]
		return answer, nil
	}
	return s.DefaultAnswer, nil
}
