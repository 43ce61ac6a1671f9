// Package mnvcli drives the Marvell NVMe RAID controller CLI (mnv_cli) and
// parses its adapter, virtual disk and physical disk reports.
package mnvcli

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"machinerun.io/nvmetest"
)

// Binary returns the mnv_cli executable name for os.
func Binary(os nvmetest.OSType) string {
	if os == nvmetest.Windows {
		return "mnv_cli.exe"
	}

	return "mnv_cli"
}

// InfoCommand returns the command printing information about object, one of
// "hba", "vd" or "pd".
func InfoCommand(os nvmetest.OSType, object string) string {
	return fmt.Sprintf("%s info -o %s", Binary(os), object)
}

// CreateVDCommand returns the command creating a virtual disk named name
// from the given physical disks.
func CreateVDCommand(os nvmetest.OSType, mode RAIDMode, name string, pds []int) string {
	ids := make([]string, len(pds))
	for i, p := range pds {
		ids[i] = fmt.Sprintf("%d", p)
	}

	return fmt.Sprintf("%s vd -a create -r %s -d %s -n %s",
		Binary(os), mode.flag(), strings.Join(ids, ","), name)
}

// DeleteVDCommand returns the command deleting virtual disk id.
func DeleteVDCommand(os nvmetest.OSType, id int) string {
	return fmt.Sprintf("%s vd -a delete -i %d --waiveconfirmation", Binary(os), id)
}

// RebuildCommand returns the command starting a rebuild of vd onto pd.
func RebuildCommand(os nvmetest.OSType, vd, pd int) string {
	return fmt.Sprintf("%s rebuild -a start -i %d -d %d", Binary(os), vd, pd)
}

// RAIDMode is a RAID level as printed by mnv_cli ("RAID1").
type RAIDMode string

const (
	RAID0  RAIDMode = "RAID0"
	RAID1  RAIDMode = "RAID1"
	RAID10 RAIDMode = "RAID10"
	JBOD   RAIDMode = "JBOD"
)

func (m RAIDMode) flag() string {
	if m == JBOD {
		return "jbod"
	}

	return strings.TrimPrefix(string(m), "RAID")
}

func info(r nvmetest.Runner, object string) (string, error) {
	out, err := r.RunRaw(InfoCommand(r.OS(), object))
	if err != nil {
		return "", err
	}

	if strings.Contains(out, "not recognized") || strings.Contains(out, "not found") {
		return "", &nvmetest.TransportError{Cmd: InfoCommand(r.OS(), object), RC: 127, Stderr: strings.TrimSpace(out)}
	}

	return out, nil
}

// QueryHBA reads the adapter information.
func QueryHBA(r nvmetest.Runner) (HBA, error) {
	out, err := info(r, "hba")
	if err != nil {
		return HBA{}, err
	}

	h, err := ParseHBA(out)
	if err != nil {
		log.Errorf("mnv_cli hba: %s", err)
	}

	return h, err
}

// QueryVDs lists the virtual disks.
func QueryVDs(r nvmetest.Runner) ([]VirtualDisk, error) {
	out, err := info(r, "vd")
	if err != nil {
		return nil, err
	}

	vds, err := ParseVDs(out)
	if err != nil {
		log.Errorf("mnv_cli vd: %s", err)
	}

	return vds, err
}

// QueryPDs lists the physical disks.
func QueryPDs(r nvmetest.Runner) ([]PhysicalDisk, error) {
	out, err := info(r, "pd")
	if err != nil {
		return nil, err
	}

	pds, err := ParsePDs(out)
	if err != nil {
		log.Errorf("mnv_cli pd: %s", err)
	}

	return pds, err
}

// CreateVD creates a virtual disk and returns the refreshed VD list.
func CreateVD(r nvmetest.Runner, mode RAIDMode, name string, pds []int) ([]VirtualDisk, error) {
	cmd := CreateVDCommand(r.OS(), mode, name, pds)

	lm, err := r.RunLines(cmd)
	if err != nil {
		return nil, err
	}

	if _, line, failed := lm.Find(errorLine); failed {
		log.WithField("cmd", cmd).Error(line)
		return nil, fmt.Errorf("create %s vd %s: %s", mode, name, line)
	}

	return QueryVDs(r)
}

// DeleteVD deletes virtual disk id.
func DeleteVD(r nvmetest.Runner, id int) error {
	cmd := DeleteVDCommand(r.OS(), id)

	lm, err := r.RunLines(cmd)
	if err != nil {
		return err
	}

	if _, line, failed := lm.Find(errorLine); failed {
		log.WithField("cmd", cmd).Error(line)
		return fmt.Errorf("delete vd %d: %s", id, line)
	}

	return nil
}

// StartRebuild starts rebuilding vd onto physical disk pd.
func StartRebuild(r nvmetest.Runner, vd, pd int) error {
	cmd := RebuildCommand(r.OS(), vd, pd)

	lm, err := r.RunLines(cmd)
	if err != nil {
		return err
	}

	if _, line, failed := lm.Find(errorLine); failed {
		log.WithField("cmd", cmd).Error(line)
		return fmt.Errorf("rebuild vd %d onto pd %d: %s", vd, pd, line)
	}

	return nil
}

// RebuildProgress returns the rebuild progress of vd in percent, and false
// when no rebuild is running.
func RebuildProgress(r nvmetest.Runner, vd int) (float64, bool, error) {
	vds, err := QueryVDs(r)
	if err != nil {
		return 0, false, err
	}

	for _, v := range vds {
		if v.ID != vd {
			continue
		}

		if !v.IsRebuilding() {
			return 0, false, nil
		}

		p, err := ParseRebuild(v.BGAStatus)
		if err != nil {
			return 0, false, err
		}

		return p, true, nil
	}

	return 0, false, fmt.Errorf("vd %d not found", vd)
}
