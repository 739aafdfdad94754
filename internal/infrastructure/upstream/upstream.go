// Package upstream registers the official Zabbix package repository.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/hashicorp/go-version"
	"gopkg.in/ini.v1"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/command"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/validation"
)

// DefaultBaseURL is the root of the official repository tree.
const DefaultBaseURL = "https://repo.zabbix.com/zabbix"

const releasePackage = "zabbix-release"

// Releases from 7.2 on live under an extra "release" path segment.
var releaseSubtreeSince = version.Must(version.NewVersion("7.2"))

var versionLink = regexp.MustCompile(`href="(\d+\.\d+)/?"`)

// Options configures a Registrar.
type Options struct {
	BaseURL       string
	OSReleasePath string
	DownloadDir   string
	Timeout       time.Duration
	RetryMax      int
	Logger        ports.Logger
}

// Registrar implements the repository port against repo.zabbix.com.
type Registrar struct {
	client    *retryablehttp.Client
	runner    command.Runner
	packages  ports.PackageManager
	baseURL   string
	osRelease string
	download  string
}

var _ ports.RepositoryRegistrar = (*Registrar)(nil)

// New builds a Registrar. packages is used to read the installed
// zabbix-release version.
func New(runner command.Runner, packages ports.PackageManager, opts Options) *Registrar {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	if opts.RetryMax > 0 {
		client.RetryMax = opts.RetryMax
	}
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 60 * time.Second
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = leveled{opts.Logger}
	}

	r := &Registrar{
		client:    client,
		runner:    runner,
		packages:  packages,
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		osRelease: opts.OSReleasePath,
		download:  opts.DownloadDir,
	}
	if r.baseURL == "" {
		r.baseURL = DefaultBaseURL
	}
	if r.osRelease == "" {
		r.osRelease = "/etc/os-release"
	}
	if r.download == "" {
		r.download = os.TempDir()
	}
	return r
}

// FetchAvailableVersions lists the release directories of the repository.
func (r *Registrar) FetchAvailableVersions(ctx context.Context) ([]string, error) {
	body, err := r.get(ctx, r.baseURL+"/")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	page, err := io.ReadAll(io.LimitReader(body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read version index: %w", err)
	}

	var found []string
	for _, match := range versionLink.FindAllStringSubmatch(string(page), -1) {
		found = append(found, match[1])
	}
	versions := validation.SortVersions(found)
	if len(versions) == 0 {
		return nil, fmt.Errorf("no versions found at %s", r.baseURL)
	}
	return versions, nil
}

// RegisteredVersion reads the version of the installed zabbix-release
// package.
func (r *Registrar) RegisteredVersion(ctx context.Context) (string, bool, error) {
	installed, ok, err := r.packages.InstalledVersion(ctx, releasePackage)
	if err != nil || !ok {
		return "", false, err
	}
	return reconcile.ReleaseOf(installed), true, nil
}

// RegisterRepository downloads the release package for this distribution
// and installs it with dpkg.
func (r *Registrar) RegisterRepository(ctx context.Context, v string) error {
	distro, err := ReadDistribution(r.osRelease)
	if err != nil {
		return err
	}
	url, err := r.ReleaseURL(v, distro)
	if err != nil {
		return err
	}

	body, err := r.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	target := filepath.Join(r.download, filepath.Base(url))
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer os.Remove(target)
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if _, err := r.runner.Run(ctx, "dpkg", "-i", target); err != nil {
		return fmt.Errorf("install %s: %w", filepath.Base(url), err)
	}
	return nil
}

// ReleaseURL returns the zabbix-release package URL for a version and
// distribution.
func (r *Registrar) ReleaseURL(v string, distro Distribution) (string, error) {
	parsed, err := version.NewVersion(v)
	if err != nil {
		return "", fmt.Errorf("parse version %q: %w", v, err)
	}
	tree := fmt.Sprintf("%s/%s/%s", r.baseURL, v, distro.ID)
	if parsed.GreaterThanOrEqual(releaseSubtreeSince) {
		tree = fmt.Sprintf("%s/%s/release/%s", r.baseURL, v, distro.ID)
	}
	file := fmt.Sprintf("zabbix-release_latest_%s+%s%s_all.deb", v, distro.ID, distro.VersionID)
	return tree + "/pool/main/z/zabbix-release/" + file, nil
}

func (r *Registrar) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}

// Distribution identifies the host operating system release.
type Distribution struct {
	ID        string
	VersionID string
}

// ReadDistribution parses an os-release file.
func ReadDistribution(path string) (Distribution, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true, SkipUnrecognizableLines: true}, path)
	if err != nil {
		return Distribution{}, fmt.Errorf("read %s: %w", path, err)
	}
	section := cfg.Section(ini.DefaultSection)
	d := Distribution{
		ID:        strings.ToLower(section.Key("ID").String()),
		VersionID: section.Key("VERSION_ID").String(),
	}
	switch d.ID {
	case "debian", "ubuntu", "raspbian":
	default:
		return Distribution{}, fmt.Errorf("unsupported distribution %q in %s", d.ID, path)
	}
	if d.VersionID == "" {
		return Distribution{}, fmt.Errorf("%s has no VERSION_ID", path)
	}
	return d, nil
}

// leveled adapts the installer logger to retryablehttp.
type leveled struct {
	logger ports.Logger
}

func (l leveled) Error(msg string, kv ...any) { l.logger.Error(nil, msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.logger.Debug(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.logger.Debug(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.logger.Warn(msg, kv...) }
