// Package netplan implements the network port by writing a netplan
// document and applying it.
package netplan

import (
	"context"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/command"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// DefaultPath sorts after the installer-generated 50-cloud-init.yaml so
// its settings win.
const DefaultPath = "/etc/netplan/60-zbxproxy.yaml"

// netplan refuses world-readable documents.
const fileMode os.FileMode = 0o600

type document struct {
	Network network `yaml:"network"`
}

type network struct {
	Version   int                 `yaml:"version"`
	Renderer  string              `yaml:"renderer,omitempty"`
	Ethernets map[string]ethernet `yaml:"ethernets"`
}

type ethernet struct {
	DHCP4       bool        `yaml:"dhcp4"`
	Addresses   []string    `yaml:"addresses"`
	Routes      []route     `yaml:"routes,omitempty"`
	Nameservers *nameserver `yaml:"nameservers,omitempty"`
	MTU         int         `yaml:"mtu,omitempty"`
}

type route struct {
	To  string `yaml:"to"`
	Via string `yaml:"via"`
}

type nameserver struct {
	Addresses []string `yaml:"addresses"`
}

// Render produces the netplan document for cfg.
func Render(cfg ports.StaticAddress) ([]byte, error) {
	eth := ethernet{
		Addresses: []string{fmt.Sprintf("%s/%d", cfg.Address, cfg.Prefix)},
		MTU:       cfg.MTU,
	}
	if cfg.Gateway != "" {
		eth.Routes = []route{{To: "default", Via: cfg.Gateway}}
	}
	if len(cfg.Nameservers) > 0 {
		eth.Nameservers = &nameserver{Addresses: cfg.Nameservers}
	}
	doc := document{Network: network{
		Version:   2,
		Renderer:  "networkd",
		Ethernets: map[string]ethernet{cfg.Interface: eth},
	}}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render netplan: %w", err)
	}
	return out, nil
}

// AddrsFunc lists the addresses of a named interface.
type AddrsFunc func(name string) ([]net.Addr, error)

// InterfaceAddrs reads addresses from the kernel.
func InterfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}

// Configurator writes the document through a FileStore and runs
// netplan apply.
type Configurator struct {
	files  ports.FileStore
	runner command.Runner
	path   string
	addrs  AddrsFunc
}

var _ ports.NetworkConfigurator = (*Configurator)(nil)

// New returns a Configurator. Empty path and nil addrs select the defaults.
func New(files ports.FileStore, runner command.Runner, path string, addrs AddrsFunc) *Configurator {
	if path == "" {
		path = DefaultPath
	}
	if addrs == nil {
		addrs = InterfaceAddrs
	}
	return &Configurator{files: files, runner: runner, path: path, addrs: addrs}
}

func (c *Configurator) ApplyStaticConfig(ctx context.Context, cfg ports.StaticAddress) error {
	content, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := c.files.WriteFile(ctx, c.path, content, fileMode); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	if _, err := c.runner.Run(ctx, "netplan", "apply"); err != nil {
		return fmt.Errorf("netplan apply: %w", err)
	}
	return nil
}

func (c *Configurator) CurrentAddress(_ context.Context, iface string) (string, int, bool, error) {
	addrs, err := c.addrs(iface)
	if err != nil {
		return "", 0, false, fmt.Errorf("interface %s: %w", iface, err)
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		if ones == 0 && len(ipnet.Mask) == net.IPv6len {
			ones, _ = net.IPMask(ipnet.Mask[12:]).Size()
		}
		return ip.String(), ones, true, nil
	}
	return "", 0, false, nil
}
