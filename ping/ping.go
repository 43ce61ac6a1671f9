// Package ping runs ping against a host from the system under test and
// parses the round trip statistics.
package ping

import (
	"fmt"
	"regexp"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Stats is the summary printed by ping. Times are in milliseconds.
type Stats struct {
	Sent        int     `json:"sent"`
	Received    int     `json:"received"`
	Lost        int     `json:"lost"`
	LossPercent float64 `json:"loss_percent"`
	Minimum     float64 `json:"minimum"`
	Maximum     float64 `json:"maximum"`
	Average     float64 `json:"average"`
}

// Command returns the ping command sending count echo requests to ip.
func Command(os nvmetest.OSType, ip string, count int) (string, error) {
	switch os {
	case nvmetest.Windows:
		return fmt.Sprintf("ping -n %d %s", count, ip), nil
	case nvmetest.Linux:
		return fmt.Sprintf("ping -c %d %s", count, ip), nil
	}

	return "", fmt.Errorf("%w: ping on %s", nvmetest.ErrUnsupported, os)
}

var (
	winPackets = regexp.MustCompile(`Sent = (\d+), Received = (\d+), Lost = (\d+) \((\d+)% loss\)`)
	winTimes   = regexp.MustCompile(`Minimum = (\d+)ms, Maximum = (\d+)ms, Average = (\d+)ms`)

	linuxPackets = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received,.* ([\d.]+)% packet loss`)
	linuxTimes   = regexp.MustCompile(`(?:rtt|round-trip) min/avg/max/(?:mdev|stddev) = ([\d.]+)/([\d.]+)/([\d.]+)/`)
)

// ParseWindows parses the statistics of Windows ping.exe. The round trip
// line is only required when at least one reply was received.
func ParseWindows(lm nvmetest.LineMap) (Stats, error) {
	s := Stats{}

	toks, err := nvmetest.MatchLine(lm, winPackets, "ping packets")
	if err != nil {
		return s, err
	}

	ints := make([]int, 3)
	for i := range ints {
		if ints[i], err = nvmetest.Atoi(toks[i+1], "ping packets"); err != nil {
			return s, err
		}
	}

	s.Sent, s.Received, s.Lost = ints[0], ints[1], ints[2]

	if s.LossPercent, err = nvmetest.Atof(toks[4], "ping loss"); err != nil {
		return s, err
	}

	if s.Received == 0 {
		return s, nil
	}

	toks, err = nvmetest.MatchLine(lm, winTimes, "ping round trip times")
	if err != nil {
		return s, err
	}

	return s, parseTimes(&s, toks[1], toks[2], toks[3])
}

// ParseLinux parses the statistics of iputils or busybox ping.
func ParseLinux(lm nvmetest.LineMap) (Stats, error) {
	s := Stats{}

	toks, err := nvmetest.MatchLine(lm, linuxPackets, "ping packets")
	if err != nil {
		return s, err
	}

	if s.Sent, err = nvmetest.Atoi(toks[1], "ping transmitted"); err != nil {
		return s, err
	}

	if s.Received, err = nvmetest.Atoi(toks[2], "ping received"); err != nil {
		return s, err
	}

	if s.LossPercent, err = nvmetest.Atof(toks[3], "ping loss"); err != nil {
		return s, err
	}

	s.Lost = s.Sent - s.Received

	if s.Received == 0 {
		return s, nil
	}

	toks, err = nvmetest.MatchLine(lm, linuxTimes, "ping round trip times")
	if err != nil {
		return s, err
	}

	// min/avg/max order
	return s, parseTimes(&s, toks[1], toks[3], toks[2])
}

func parseTimes(s *Stats, minimum, maximum, average string) error {
	var err error

	if s.Minimum, err = nvmetest.Atof(minimum, "ping minimum"); err != nil {
		return err
	}

	if s.Maximum, err = nvmetest.Atof(maximum, "ping maximum"); err != nil {
		return err
	}

	s.Average, err = nvmetest.Atof(average, "ping average")

	return err
}

// Query pings ip count times from the system r runs on.
func Query(r nvmetest.Runner, ip string, count int) (Stats, error) {
	cmd, err := Command(r.OS(), ip, count)
	if err != nil {
		return Stats{}, err
	}

	lm, err := r.RunLines(cmd)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	if r.OS() == nvmetest.Windows {
		s, err = ParseWindows(lm)
	} else {
		s, err = ParseLinux(lm)
	}

	if err != nil {
		log.WithField("ip", ip).Errorf("ping: %s", err)
	}

	return s, err
}

// Reachable reports whether ip answered at least one of count pings. Errors
// are logged and reported as unreachable.
func Reachable(r nvmetest.Runner, ip string, count int) bool {
	s, err := Query(r, ip, count)
	if err != nil {
		log.WithField("ip", ip).Debugf("treating as unreachable: %s", err)
		return false
	}

	return s.Received > 0
}
