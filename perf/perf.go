// Package perf builds diskspd and fio command lines, runs them on the system
// under test and parses their throughput reports.
package perf

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Throughput is one direction of a benchmark result. BW is in MiB/s and
// AvgLatency in milliseconds (zero when latency was not collected).
type Throughput struct {
	Bytes      int64   `json:"bytes"`
	IOs        int64   `json:"ios"`
	BW         float64 `json:"bw_mib_s"`
	IOPS       float64 `json:"iops"`
	AvgLatency float64 `json:"avg_latency_ms,omitempty"`
}

// Result is the parsed report of one benchmark run.
type Result struct {
	Read  Throughput `json:"read"`
	Write Throughput `json:"write"`
}

// Total sums both directions.
func (r Result) Total() Throughput {
	return Throughput{
		Bytes: r.Read.Bytes + r.Write.Bytes,
		IOs:   r.Read.IOs + r.Write.IOs,
		BW:    r.Read.BW + r.Write.BW,
		IOPS:  r.Read.IOPS + r.Write.IOPS,
	}
}

// Job is a benchmark invocation.
type Job interface {
	Command() string
	Parse(raw string) (Result, error)
}

// Run runs job through r's pseudo-terminal path and parses the report. A
// non-zero exit status is an error since the report is then incomplete.
func Run(r nvmetest.IORunner, job Job) (Result, error) {
	cmd := job.Command()

	out, rc, err := r.RunIO(cmd)
	if err != nil {
		return Result{}, err
	}

	if rc != 0 {
		err := &nvmetest.TransportError{Cmd: cmd, RC: rc, Err: fmt.Errorf("benchmark exited %d", rc)}
		log.WithField("cmd", cmd).Error(err)

		return Result{}, err
	}

	res, err := job.Parse(out)
	if err != nil {
		log.WithField("cmd", cmd).Errorf("cannot parse report: %s", err)
		return Result{}, err
	}

	log.WithFields(log.Fields{
		"read_bw": res.Read.BW, "read_iops": res.Read.IOPS,
		"write_bw": res.Write.BW, "write_iops": res.Write.IOPS,
	}).Info("benchmark done")

	return res, nil
}
