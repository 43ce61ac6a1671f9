package console

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"machinerun.io/nvmetest"
	"machinerun.io/nvmetest/mockos"
)

const screenList = `There are screens on:
	12345.ttyUSB0	(10/19/2026 10:01:02 AM)	(Detached)
	12399.uart-debug	(Attached)
	12400.ttyUSB1	(Dead ???)
3 Sockets in /run/screen/S-pi.
`

const noScreens = "No Sockets found in /run/screen/S-pi.\n\n"

//nolint:funlen
func TestConsole(t *testing.T) {
	Convey("screen sessions", t, func() {
		Convey("sessions are parsed with their state", func() {
			sessions, err := ParseScreenList(nvmetest.NormalizeOutput([]byte(screenList)))
			So(err, ShouldBeNil)
			So(sessions, ShouldResemble, []Session{
				{PID: 12345, Name: "ttyUSB0", State: "Detached"},
				{PID: 12399, Name: "uart-debug", State: "Attached"},
				{PID: 12400, Name: "ttyUSB1", State: "Dead ???"},
			})
		})

		Convey("no sessions is an empty list", func() {
			sessions, err := ParseScreenList(nvmetest.NormalizeOutput([]byte(noScreens)))
			So(err, ShouldBeNil)
			So(sessions, ShouldBeEmpty)
		})

		Convey("closing a port quits its session", func() {
			r := mockos.New(nvmetest.Linux).
				Add("screen -ls", screenList).
				Add("screen -S 12345.ttyUSB0 -X quit", "")

			pid, err := CloseSession(r, "/dev/ttyUSB0")
			So(err, ShouldBeNil)
			So(pid, ShouldEqual, 12345)
			So(r.Calls, ShouldResemble, []string{"screen -ls", "screen -S 12345.ttyUSB0 -X quit"})
		})

		Convey("closing a port without session returns -1", func() {
			r := mockos.New(nvmetest.Linux).Add("screen -ls", noScreens)

			pid, err := CloseSession(r, "ttyUSB0")
			So(err, ShouldBeNil)
			So(pid, ShouldEqual, -1)
			So(len(r.Calls), ShouldEqual, 1)
		})

		Convey("open names the session after the port", func() {
			So(OpenCommand("ttyUSB0", 115200, "uart.log"), ShouldEqual,
				"screen -dmS ttyUSB0 -L -Logfile uart.log /dev/ttyUSB0 115200")
			So(OpenCommand("/dev/ttyAMA0", 9600, "/tmp/c.log"), ShouldEqual,
				"screen -dmS ttyAMA0 -L -Logfile /tmp/c.log /dev/ttyAMA0 9600")

			r := mockos.New(nvmetest.Linux).Add("screen -dmS", "")
			So(Open(r, "ttyUSB0", 115200, "uart.log"), ShouldBeNil)
		})
	})
}
