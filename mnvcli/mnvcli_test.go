package mnvcli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinerun.io/nvmetest"
	"machinerun.io/nvmetest/inventory"
	"machinerun.io/nvmetest/mockos"
)

const hbaInfo = `
Adapter ID:                    0
Product:                       1b4b-2241
Sub Product:                   1b4b-2241
Chip revision:                 B1
slot number:                   0
Firmware version:              1.0.0.1039
Boot loader version:           1.0.0.1014
Max PD supported:              4
Max VD supported:              2
Max PD per VD:                 4
Supported RAID mode:           RAID0 RAID1 RAID10 JBOD
Features:                      Rebuild, Background Initialization,
                               Media Patrol
`

const vdInfo = `
VD ID:               0
Name:                VD0
Status:              Degraded
Importable:          No
RAID mode:           RAID1
size:                1907 GB
PD:                  0 1
BGA status:          Rebuilding 45%
Stripe size:         128K
Sector Size:         512

VD ID:               1
Name:                Scratch
Status:              Functional
RAID mode:           RAID0
size:                512 GB
PD:                  2,3
BGA status:          Not running

Total # of VD:       2
`

const pdInfo = `
PD ID:                 0
Model:                 Samsung SSD 970 EVO Plus 1TB
Serial:                S4EWNX0R123456
Sector Size:           512 bytes
Size:                  931 GB
SSD backend RAID mode: RAID1
SSD backend VD ID:     0
Firmware version:      2B2QEXM7
Status:                Idle

PD ID:                 4
Model:                 WD Blue SN570
Serial:                22153R800123
Sector Size:           512 bytes
Size:                  476 GB
Firmware version:      234110WD
Status:                Idle

Total # of PD:         2
`

func TestParseHBA(t *testing.T) {
	h, err := ParseHBA(hbaInfo)
	require.NoError(t, err)

	assert.Equal(t, PCIe{VID: 0x1b4b, DID: 0x2241, SVID: 0x1b4b, SDID: 0x2241, Rev: "B1"}, h.PCIe)
	assert.Equal(t, "1.0.0.1039", h.Firmware)
	assert.Equal(t, "1.0.0.1014", h.BootLoader)
	assert.Equal(t, 4, h.MaxPD)
	assert.Equal(t, 2, h.MaxVD)
	assert.Equal(t, []RAIDMode{RAID0, RAID1, RAID10, JBOD}, h.RAIDModes)
	assert.Equal(t, []string{"Rebuild", "Background Initialization", "Media Patrol"}, h.Features)

	assert.True(t, h.PCIe.Matches(inventory.PCIe{VID: "1B4B", DID: "2241", SVID: "0x1B4B", SDID: "2241", Rev: "b1"}))
	assert.False(t, h.PCIe.Matches(inventory.PCIe{VID: "1B4B", DID: "2240", SVID: "1B4B", SDID: "2241", Rev: "B1"}))
	assert.False(t, h.PCIe.Matches(inventory.PCIe{VID: "1B4B", DID: "2241", SVID: "1B4B", SDID: "2241", Rev: "A0"}))
}

func TestParseHBAMissing(t *testing.T) {
	var perr *nvmetest.PatternNotMatchedError

	_, err := ParseHBA("Adapter ID: 0\nSub Product: 1b4b-2241\n")
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Product", perr.Field)

	_, err = ParseHBA("Product: 1b4b/2241\n")
	assert.True(t, errors.Is(err, nvmetest.ErrNoMatch))
}

func TestParseVDs(t *testing.T) {
	vds, err := ParseVDs(vdInfo)
	require.NoError(t, err)
	require.Len(t, vds, 2)

	assert.Equal(t, VirtualDisk{
		ID: 0, Name: "VD0", Status: "Degraded", RAIDMode: RAID1,
		SizeBytes: 1907 * 1024 * 1024 * 1024, PDs: []int{0, 1},
		BGAStatus: "Rebuilding 45%", StripeSize: "128K",
	}, vds[0])
	assert.True(t, vds[0].IsDegraded())
	assert.True(t, vds[0].IsRebuilding())

	assert.Equal(t, []int{2, 3}, vds[1].PDs)
	assert.False(t, vds[1].IsDegraded())
	assert.False(t, vds[1].IsRebuilding())

	vds, err = ParseVDs("No virtual disk is found.\n")
	assert.NoError(t, err)
	assert.Empty(t, vds)
}

func TestParsePDs(t *testing.T) {
	pds, err := ParsePDs(pdInfo)
	require.NoError(t, err)
	require.Len(t, pds, 2)

	assert.Equal(t, 0, pds[0].VDID)
	assert.Equal(t, 512, pds[0].SectorSize)
	assert.Equal(t, "S4EWNX0R123456", pds[0].Serial)
	assert.Equal(t, float64(931)*1024*1024*1024, pds[0].SizeBytes)
	assert.Equal(t, -1, pds[1].VDID)
}

func TestParseRebuild(t *testing.T) {
	p, err := ParseRebuild("BGA status: Rebuild in progress 67.5%")
	assert.NoError(t, err)
	assert.Equal(t, 67.5, p)

	_, err = ParseRebuild("BGA status: Not running")
	assert.True(t, errors.Is(err, nvmetest.ErrNoMatch))
}

func TestCommands(t *testing.T) {
	assert.Equal(t, "mnv_cli.exe info -o hba", InfoCommand(nvmetest.Windows, "hba"))
	assert.Equal(t, "mnv_cli info -o vd", InfoCommand(nvmetest.Linux, "vd"))
	assert.Equal(t, "mnv_cli vd -a create -r 1 -d 0,1 -n VD0", CreateVDCommand(nvmetest.Linux, RAID1, "VD0", []int{0, 1}))
	assert.Equal(t, "mnv_cli vd -a create -r jbod -d 2 -n J", CreateVDCommand(nvmetest.Linux, JBOD, "J", []int{2}))
	assert.Equal(t, "mnv_cli.exe vd -a delete -i 1 --waiveconfirmation", DeleteVDCommand(nvmetest.Windows, 1))
	assert.Equal(t, "mnv_cli rebuild -a start -i 0 -d 4", RebuildCommand(nvmetest.Linux, 0, 4))
}

func TestQueries(t *testing.T) {
	r := mockos.New(nvmetest.Windows).
		Add("mnv_cli.exe info -o hba", hbaInfo).
		Add("mnv_cli.exe info -o vd", vdInfo).
		Add("mnv_cli.exe info -o pd", pdInfo).
		Add("mnv_cli.exe rebuild -a start -i 0 -d 4", "Rebuild started.\n").
		Add("mnv_cli.exe vd -a delete -i 3", "Error: VD 3 does not exist.\n")

	h, err := QueryHBA(r)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2241), h.PCIe.DID)

	pds, err := QueryPDs(r)
	require.NoError(t, err)
	assert.Len(t, pds, 2)

	assert.NoError(t, StartRebuild(r, 0, 4))

	p, running, err := RebuildProgress(r, 0)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, 45.0, p)

	_, running, err = RebuildProgress(r, 1)
	assert.NoError(t, err)
	assert.False(t, running)

	_, _, err = RebuildProgress(r, 7)
	assert.Error(t, err)

	assert.Error(t, DeleteVD(r, 3))
}

func TestMissingBinary(t *testing.T) {
	r := mockos.New(nvmetest.Windows).
		Add("mnv_cli.exe info -o hba", "'mnv_cli.exe' is not recognized as an internal or external command,\n")

	_, err := QueryHBA(r)
	var terr *nvmetest.TransportError
	assert.True(t, errors.As(err, &terr))

	// sh prints "not found" on stderr, so only the exit status shows it
	l := mockos.New(nvmetest.Linux,
		mockos.Reply{Cmd: "mnv_cli info -o vd", RC: 127},
		mockos.Reply{Cmd: "mnv_cli info -o pd", RC: 127})

	vds, err := QueryVDs(l)
	assert.True(t, errors.As(err, &terr))
	assert.Empty(t, vds)

	_, err = QueryPDs(l)
	assert.True(t, errors.As(err, &terr))
}
