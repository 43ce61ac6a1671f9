package dispatch

import (
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"machinerun.io/nvmetest"
)

type fakeSpawn struct {
	calls  [][]string
	stdout []byte
	stderr []byte
	rc     int
	err    error
}

func (f *fakeSpawn) spawn(argv []string) ([]byte, []byte, int, error) {
	f.calls = append(f.calls, argv)
	return f.stdout, f.stderr, f.rc, f.err
}

func newTestDispatcher(ctx nvmetest.TransportContext, os nvmetest.OSType, f *fakeSpawn) *Dispatcher {
	d := New(ctx, os)
	d.spawn = f.spawn

	return d
}

var remoteCtx = nvmetest.TransportContext{
	Mode:      nvmetest.Remote,
	Account:   "tester",
	Password:  "s3cret",
	RemoteIP:  "192.168.1.20",
	RemoteDir: "/opt/scripts",
	LocalDir:  "/home/pi/harness",
}

//nolint:funlen
func TestCompose(t *testing.T) {
	Convey("composing commands", t, func() {
		Convey("local linux commands change into the local dir first, joined by ';'", func() {
			ctx := remoteCtx
			ctx.Mode = nvmetest.Local
			d := New(ctx, nvmetest.Linux)

			for _, cmd := range []string{"lscpu", "nvme list", "cat /etc/os-release"} {
				s, err := d.Compose(cmd)
				So(err, ShouldBeNil)
				So(s, ShouldStartWith, "cd /home/pi/harness ; ")
				So(s, ShouldEndWith, cmd)
			}
		})

		Convey("local windows commands use cd /d and '&&'", func() {
			ctx := remoteCtx
			ctx.Mode = nvmetest.Local
			ctx.LocalDir = `C:\harness`
			d := New(ctx, nvmetest.Windows)

			s, err := d.Compose("wmic cpu get NumberOfCores")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, `cd /d "C:\harness" && wmic cpu get NumberOfCores`)
		})

		Convey("remote commands wrap ssh to account@ip with host key checking off", func() {
			for _, os := range []nvmetest.OSType{nvmetest.Linux, nvmetest.Windows} {
				d := New(remoteCtx, os)

				s, err := d.Compose("nvme list")
				So(err, ShouldBeNil)
				So(s, ShouldStartWith, "sshpass -p s3cret ssh ")
				So(s, ShouldContainSubstring, "-o StrictHostKeyChecking=no")
				So(s, ShouldContainSubstring, " tester@192.168.1.20 ")

				inner := s[strings.Index(s, "tester@192.168.1.20 ")+len("tester@192.168.1.20 "):]
				cdIdx := strings.Index(inner, "/opt/scripts")
				cmdIdx := strings.Index(inner, "nvme list")
				So(cdIdx, ShouldBeGreaterThanOrEqualTo, 0)
				So(cmdIdx, ShouldBeGreaterThan, cdIdx)
			}
		})

		Convey("remote linux inner command is quoted for the local shell", func() {
			d := New(remoteCtx, nvmetest.Linux)

			s, err := d.Compose("nvme smart-log /dev/nvme0")
			So(err, ShouldBeNil)
			So(s, ShouldEndWith, "tester@192.168.1.20 'cd /opt/scripts ; nvme smart-log /dev/nvme0'")
		})

		Convey("without a password sshpass is not used", func() {
			ctx := remoteCtx
			ctx.Password = ""
			s, err := New(ctx, nvmetest.Linux).Compose("uname -a")
			So(err, ShouldBeNil)
			So(s, ShouldStartWith, "ssh ")
		})

		Convey("the separator can be overridden", func() {
			ctx := remoteCtx
			ctx.Mode = nvmetest.Local
			ctx.Separator = "&"
			ctx.LocalDir = `D:\t`
			s, err := New(ctx, nvmetest.Windows).Compose("dir")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, `cd /d "D:\t" & dir`)
		})

		Convey("an unknown mode is rejected", func() {
			ctx := remoteCtx
			ctx.Mode = "bogus"
			_, err := New(ctx, nvmetest.Linux).Compose("ls")
			So(errors.Is(err, nvmetest.ErrInvalidMode), ShouldBeTrue)
		})

		Convey("an empty command is rejected", func() {
			_, err := New(remoteCtx, nvmetest.Linux).Compose("  ")
			So(err, ShouldNotBeNil)
		})
	})
}

//nolint:funlen
func TestRunLines(t *testing.T) {
	Convey("running commands", t, func() {
		f := &fakeSpawn{stdout: []byte("Node   SN\r\n\r\n\n/dev/nvme0n1   S4EW\b\n")}

		Convey("invalid mode fails before anything is spawned", func() {
			ctx := remoteCtx
			ctx.Mode = "bogus"
			d := newTestDispatcher(ctx, nvmetest.Linux, f)

			_, err := d.RunLines("nvme list")
			So(errors.Is(err, nvmetest.ErrInvalidMode), ShouldBeTrue)

			_, err = d.RunRaw("nvme list")
			So(errors.Is(err, nvmetest.ErrInvalidMode), ShouldBeTrue)

			So(f.calls, ShouldBeEmpty)
		})

		Convey("output is normalized into contiguous lines", func() {
			d := newTestDispatcher(remoteCtx, nvmetest.Linux, f)

			lm, err := d.RunLines("nvme list")
			So(err, ShouldBeNil)
			So(lm.Map(), ShouldResemble, map[int]string{0: "Node SN", 1: "/dev/nvme0n1 S4EW"})
			So(len(f.calls), ShouldEqual, 1)
		})

		Convey("the same output gives the same LineMap every time", func() {
			d := newTestDispatcher(remoteCtx, nvmetest.Linux, f)

			first, err := d.RunLines("nvme list")
			So(err, ShouldBeNil)
			second, err := d.RunLines("nvme list")
			So(err, ShouldBeNil)
			So(second, ShouldResemble, first)
		})

		Convey("remote commands are started by sh -c", func() {
			d := newTestDispatcher(remoteCtx, nvmetest.Windows, f)

			_, err := d.RunLines("wmic cpu get NumberOfCores")
			So(err, ShouldBeNil)
			So(f.calls[0][:2], ShouldResemble, []string{"sh", "-c"})
			So(f.calls[0][2], ShouldContainSubstring, "ssh ")
		})

		Convey("local windows commands are started by cmd /C", func() {
			ctx := remoteCtx
			ctx.Mode = nvmetest.Local
			d := newTestDispatcher(ctx, nvmetest.Windows, f)

			_, err := d.RunLines("ver")
			So(err, ShouldBeNil)
			So(f.calls[0][:2], ShouldResemble, []string{"cmd", "/C"})
		})

		Convey("raw output keeps alignment", func() {
			d := newTestDispatcher(remoteCtx, nvmetest.Linux, f)

			out, err := d.RunRaw("nvme list")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, string(f.stdout))
		})

		Convey("a non-zero exit still returns output", func() {
			f.rc = 1
			d := newTestDispatcher(remoteCtx, nvmetest.Linux, f)

			lm, err := d.RunLines("nvme list")
			So(err, ShouldBeNil)
			So(lm.Len(), ShouldEqual, 2)
		})

		Convey("an ssh failure is a TransportError", func() {
			f.rc = sshFailureRC
			f.stdout = nil
			f.stderr = []byte("Permission denied, please try again.")
			d := newTestDispatcher(remoteCtx, nvmetest.Linux, f)

			_, err := d.RunLines("nvme list")
			var terr *nvmetest.TransportError
			So(errors.As(err, &terr), ShouldBeTrue)
			So(terr.RC, ShouldEqual, sshFailureRC)
			So(terr.Stderr, ShouldContainSubstring, "Permission denied")
		})

		Convey("a missing tool is a TransportError, not empty output", func() {
			f.stdout = nil
			f.stderr = []byte("sh: 1: mnv_cli: not found")

			for _, rc := range []int{126, 127} {
				f.rc = rc
				ctx := remoteCtx
				ctx.Mode = nvmetest.Local
				d := newTestDispatcher(ctx, nvmetest.Linux, f)

				_, err := d.RunRaw("mnv_cli info -o vd")
				var terr *nvmetest.TransportError
				So(errors.As(err, &terr), ShouldBeTrue)
				So(terr.RC, ShouldEqual, rc)
				So(terr.Stderr, ShouldContainSubstring, "not found")

				_, err = d.RunLines("mnv_cli info -o vd")
				So(errors.As(err, &terr), ShouldBeTrue)
			}
		})

		Convey("cmd.exe's not recognized status is a TransportError", func() {
			f.rc = 9009
			d := newTestDispatcher(remoteCtx, nvmetest.Windows, f)

			_, err := d.RunRaw("mnv_cli.exe info -o vd")
			var terr *nvmetest.TransportError
			So(errors.As(err, &terr), ShouldBeTrue)
			So(terr.RC, ShouldEqual, 9009)
		})

		Convey("a process that cannot start is a TransportError", func() {
			f.err = errors.New("exec: \"sshpass\": executable file not found in $PATH")
			f.rc = noStartRC
			d := newTestDispatcher(remoteCtx, nvmetest.Linux, f)

			_, err := d.RunRaw("nvme list")
			var terr *nvmetest.TransportError
			So(errors.As(err, &terr), ShouldBeTrue)
			So(terr.RC, ShouldEqual, noStartRC)
		})
	})
}

func TestRunCommandWithOutputErrorRc(t *testing.T) {
	Convey("the default spawner", t, func() {
		Convey("captures stdout, stderr and exit code", func() {
			out, stderr, rc, err := runCommandWithOutputErrorRc([]string{"sh", "-c", "echo hi; echo oops >&2; exit 3"})
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, "hi\n")
			So(string(stderr), ShouldEqual, "oops\n")
			So(rc, ShouldEqual, 3)
		})

		Convey("reports a missing binary as an error", func() {
			_, _, rc, err := runCommandWithOutputErrorRc([]string{"/nonexistent/binary-for-test"})
			So(err, ShouldNotBeNil)
			So(rc, ShouldEqual, noStartRC)
		})
	})
}
