package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"

	"machinerun.io/nvmetest"
)

const appMap = "testdata/app_map.json"

func fakeInterfaces(name string, addrs ...string) func() (psnet.InterfaceStatList, error) {
	return func() (psnet.InterfaceStatList, error) {
		iface := psnet.InterfaceStat{Name: name}
		for _, a := range addrs {
			iface.Addrs = append(iface.Addrs, psnet.InterfaceAddr{Addr: a})
		}

		return psnet.InterfaceStatList{{Name: "lo", Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}}, iface}, nil
	}
}

func withInterfaces(t *testing.T, f func() (psnet.InterfaceStatList, error)) {
	saved := interfaces
	interfaces = f

	t.Cleanup(func() { interfaces = saved })
}

func TestLoad(t *testing.T) {
	devices, err := Load(appMap)
	assert.NoError(t, err)
	assert.Len(t, devices, 3)

	ctl := devices[0].Remote.Hardware.NVMeController
	assert.Equal(t, "1B4B", ctl.PCIe.VID)
	assert.Equal(t, "B1", ctl.PCIe.Rev)
	assert.Equal(t, []string{"RAID0", "RAID1", "RAID10", "JBOD"}, ctl.RAIDModes)
	assert.Equal(t, `C:\nvmetest`, devices[0].Remote.OperatingSystem.Script.Path)
	assert.Equal(t, nvmetest.Windows, devices[0].Remote.OperatingSystem.OS())
	assert.Equal(t, nvmetest.Linux, devices[1].Remote.OperatingSystem.OS())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("testdata/does-not-exist.json")
	assert.True(t, errors.Is(err, nvmetest.ErrConfigNotFound))

	bad := filepath.Join(t.TempDir(), "bad.json")
	assert.NoError(t, os.WriteFile(bad, []byte(`{"Local": `), 0600))

	_, err = Load(bad)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, nvmetest.ErrConfigNotFound))
}

func TestLocalIP(t *testing.T) {
	Convey("local ip lookup", t, func() {
		Convey("prefers ipv4", func() {
			withInterfaces(t, fakeInterfaces("eth0", "fe80::1/64", "2001:db8::5/64", "192.168.10.21/24"))

			ip, err := LocalIP("eth0")
			So(err, ShouldBeNil)
			So(ip, ShouldEqual, "192.168.10.21")
		})

		Convey("falls back to a global ipv6 address", func() {
			withInterfaces(t, fakeInterfaces("eth0", "fe80::1/64", "2001:db8::5/64"))

			ip, err := LocalIP("eth0")
			So(err, ShouldBeNil)
			So(ip, ShouldEqual, "2001:db8::5")
		})

		Convey("an interface without address is unavailable", func() {
			withInterfaces(t, fakeInterfaces("eth0"))

			_, err := LocalIP("eth0")
			So(errors.Is(err, nvmetest.ErrNetworkUnavailable), ShouldBeTrue)
		})

		Convey("a missing interface is unavailable", func() {
			withInterfaces(t, fakeInterfaces("eth0", "192.168.10.21/24"))

			_, err := LocalIP("wlan0")
			So(errors.Is(err, nvmetest.ErrNetworkUnavailable), ShouldBeTrue)
		})
	})
}

//nolint:funlen
func TestResolve(t *testing.T) {
	Convey("resolving the transport context", t, func() {
		t.Setenv("PWD", "/home/pi/nvmetest")

		Convey("the matching record fills in the remote side", func() {
			withInterfaces(t, fakeInterfaces("eth0", "192.168.10.21/24"))

			cfg, err := Resolve(nvmetest.Remote, "eth0", appMap)
			So(err, ShouldBeNil)
			So(cfg.Device, ShouldNotBeNil)
			So(cfg.LocalIP, ShouldEqual, "192.168.10.21")
			So(cfg.RemoteOS(), ShouldEqual, nvmetest.Windows)
			So(cfg.Context, ShouldResemble, nvmetest.TransportContext{
				Mode:      nvmetest.Remote,
				Account:   "Administrator",
				Password:  "Passw0rd",
				LocalDir:  "/home/pi/nvmetest",
				RemoteDir: `C:\nvmetest`,
				RemoteIP:  "192.168.10.121",
			})
		})

		Convey("the first matching record wins", func() {
			withInterfaces(t, fakeInterfaces("eth0", "192.168.10.22/24"))

			cfg, err := Resolve(nvmetest.Remote, "eth0", appMap)
			So(err, ShouldBeNil)
			So(cfg.Context.RemoteIP, ShouldEqual, "192.168.10.122")
			So(cfg.Context.Port, ShouldEqual, 2222)
			So(cfg.RemoteOS(), ShouldEqual, nvmetest.Linux)
		})

		Convey("no match leaves the remote side unset", func() {
			withInterfaces(t, fakeInterfaces("eth0", "10.0.0.9/8"))

			cfg, err := Resolve(nvmetest.Local, "eth0", appMap)
			So(err, ShouldBeNil)
			So(cfg.Device, ShouldBeNil)
			So(cfg.RemoteOS(), ShouldEqual, nvmetest.UnknownOS)
			So(cfg.Context, ShouldResemble, nvmetest.TransportContext{
				Mode:     nvmetest.Local,
				LocalDir: "/home/pi/nvmetest",
			})
		})

		Convey("an interface without address is not fatal", func() {
			withInterfaces(t, fakeInterfaces("eth0"))

			cfg, err := Resolve(nvmetest.Local, "eth0", appMap)
			So(err, ShouldBeNil)
			So(cfg.LocalIP, ShouldEqual, "")
			So(cfg.Device, ShouldBeNil)
		})

		Convey("a missing inventory is fatal", func() {
			_, err := Resolve(nvmetest.Local, "eth0", "testdata/missing.json")
			So(errors.Is(err, nvmetest.ErrConfigNotFound), ShouldBeTrue)
		})
	})
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("config", "app_map.json"), Path("", "app_map.json"))
	assert.Equal(t, filepath.Join("/etc/nvmetest", "app_map.json"), Path("/etc/nvmetest", "app_map.json"))
	assert.Equal(t, "/tmp/x.json", Path("config", "/tmp/x.json"))
}

func TestPinMap(t *testing.T) {
	pm, err := LoadPinMap("testdata/pins.json")
	assert.NoError(t, err)

	pin, err := pm.Pin("power_button")
	assert.NoError(t, err)
	assert.Equal(t, 17, pin)

	_, err = pm.Pin("fan")
	assert.Error(t, err)

	_, err = LoadPinMap("testdata/nope.json")
	assert.True(t, errors.Is(err, nvmetest.ErrConfigNotFound))
}
