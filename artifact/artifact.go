// Package artifact collects the log and JSON report a test run leaves behind
// and stores them as one document per run.
package artifact

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

const reportSuffix = ".report.json"

// Record is one run's artifacts.
type Record struct {
	RunID   string                 `bson:"run_id" json:"run_id" yaml:"run_id"`
	Suite   string                 `bson:"suite" json:"suite" yaml:"suite"`
	Created time.Time              `bson:"created" json:"created" yaml:"created"`
	Log     string                 `bson:"log" json:"log" yaml:"log"`
	Report  map[string]interface{} `bson:"report" json:"report" yaml:"report"`
}

// ReportPath returns the report file written next to logPath.
func ReportPath(logPath string) string {
	return strings.TrimSuffix(logPath, filepath.Ext(logPath)) + reportSuffix
}

// NewRecord reads the run log and its JSON report. An empty reportPath means
// ReportPath(logPath).
func NewRecord(suite, logPath, reportPath string) (Record, error) {
	if suite == "" {
		return Record{}, errors.New("suite name is required")
	}

	if reportPath == "" {
		reportPath = ReportPath(logPath)
	}

	logText, err := os.ReadFile(logPath)
	if err != nil {
		return Record{}, errors.Wrapf(nvmetest.ErrConfigNotFound, "log %s: %s", logPath, err)
	}

	content, err := os.ReadFile(reportPath)
	if err != nil {
		return Record{}, errors.Wrapf(nvmetest.ErrConfigNotFound, "report %s: %s", reportPath, err)
	}

	report := map[string]interface{}{}
	if err := json.Unmarshal(content, &report); err != nil {
		return Record{}, errors.Wrapf(err, "failed to parse report %s", reportPath)
	}

	rec := Record{
		RunID:   uuid.NewV4().String(),
		Suite:   suite,
		Created: time.Now().UTC(),
		Log:     string(logText),
		Report:  report,
	}

	log.WithFields(log.Fields{"suite": suite, "run_id": rec.RunID, "log": logPath}).Debug("artifact record built")

	return rec, nil
}

// Store persists records.
type Store interface {
	Insert(ctx context.Context, rec Record) (string, error)
	Close(ctx context.Context) error
}
