package inventory

import (
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v3/net"
	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// DefaultConfigDir is where inventory and pin-map files are looked up.
const DefaultConfigDir = "config"

var interfaces = psnet.Interfaces

// LocalIP returns the address of the named network interface. An IPv4
// address is preferred when the interface has several.
func LocalIP(ifName string) (string, error) {
	ifaces, err := interfaces()
	if err != nil {
		return "", errors.Wrapf(nvmetest.ErrNetworkUnavailable, "%s: %s", ifName, err)
	}

	for _, iface := range ifaces {
		if iface.Name != ifName {
			continue
		}

		var v6 string

		for _, a := range iface.Addrs {
			ip, _, err := net.ParseCIDR(a.Addr)
			if err != nil {
				ip = net.ParseIP(a.Addr)
			}

			if ip == nil || ip.IsLinkLocalUnicast() {
				continue
			}

			if ip.To4() != nil {
				return ip.String(), nil
			}

			if v6 == "" {
				v6 = ip.String()
			}
		}

		if v6 != "" {
			return v6, nil
		}

		break
	}

	return "", errors.Wrapf(nvmetest.ErrNetworkUnavailable, "%s", ifName)
}

// Config is the resolved harness configuration.
type Config struct {
	Context nvmetest.TransportContext
	LocalIP string
	// Device is the matching inventory record, nil when none matched.
	Device *Device
}

// RemoteOS returns the OS family of the system under test, or UnknownOS when
// no inventory record matched.
func (c *Config) RemoteOS() nvmetest.OSType {
	if c.Device == nil {
		return nvmetest.UnknownOS
	}

	return c.Device.Remote.OperatingSystem.OS()
}

// Path joins a config file name with dir, or DefaultConfigDir when dir is
// empty. Absolute names are returned as is.
func Path(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	if dir == "" {
		dir = DefaultConfigDir
	}

	return filepath.Join(dir, name)
}

func workingDir() string {
	if pwd := os.Getenv("PWD"); pwd != "" {
		return pwd
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Warnf("cannot determine working directory: %s", err)
		return ""
	}

	return wd
}

// Resolve loads the inventory at path and picks the first record whose local
// IP is the address of ifName. When the interface has no address or nothing
// matches, the returned Config only carries the mode and local directory.
func Resolve(mode nvmetest.Mode, ifName, path string) (*Config, error) {
	devices, err := Load(path)
	if err != nil {
		log.Errorf("inventory: %s", err)
		return nil, err
	}

	cfg := &Config{
		Context: nvmetest.TransportContext{Mode: mode, LocalDir: workingDir()},
	}

	ip, err := LocalIP(ifName)
	if err != nil {
		log.Warnf("inventory: %s", err)
	}

	cfg.LocalIP = ip

	for i := range devices {
		d := &devices[i]
		if ip == "" || strings.TrimSpace(d.Local.OperatingSystem.IP) != ip {
			continue
		}

		r := d.Remote.OperatingSystem
		cfg.Device = d
		cfg.Context.Account = r.Account
		cfg.Context.Password = r.Password
		cfg.Context.RemoteIP = r.IP
		cfg.Context.RemoteDir = r.Script.Path
		cfg.Context.Port = r.Port

		log.WithFields(log.Fields{"local": ip, "remote": r.IP}).Debug("inventory record matched")

		return cfg, nil
	}

	log.WithField("local", ip).Info("no inventory record for this host: local mode only")

	return cfg, nil
}
