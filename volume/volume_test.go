package volume

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinerun.io/nvmetest"
	"machinerun.io/nvmetest/mockos"
)

const getPartition = `
PartitionNumber  DriveLetter Offset                                        Size Type
---------------  ----------- ------                                        ---- ----
1                            17408                                       128 MB Reserved
2                E           135266304                                931.39 GB Basic

`

const lsblk = `NAME="nvme0n1" SIZE="1000204886016" TYPE="disk" FSTYPE="" MOUNTPOINT=""
NAME="nvme0n1p1" SIZE="536870912" TYPE="part" FSTYPE="vfat" MOUNTPOINT="/boot/efi"
NAME="nvme0n1p2" SIZE="999666221056" TYPE="part" FSTYPE="ext4" MOUNTPOINT="/"
`

func TestParseWindowsPartitions(t *testing.T) {
	parts, err := ParseWindowsPartitions(getPartition)
	require.NoError(t, err)

	assert.Equal(t, []Partition{
		{Number: 1, Offset: 17408, Size: 128 * 1024 * 1024, Type: "Reserved"},
		{Number: 2, Letter: "E", Offset: 135266304, Size: 931.39 * 1024 * 1024 * 1024, Type: "Basic"},
	}, parts)

	p, ok := ByLetter(parts, "E")
	assert.True(t, ok)
	assert.Equal(t, 2, p.Number)

	_, ok = ByLetter(parts, "F")
	assert.False(t, ok)

	_, err = ParseWindowsPartitions("Get-Partition : No MSFT_Partition objects found\n  with property 'DiskNumber' equal to '9'.\n")
	assert.Error(t, err)
}

func TestParseLsblk(t *testing.T) {
	parts, err := ParseLsblk(lsblk)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Equal(t, Partition{Number: 1, Name: "nvme0n1p1", Size: 536870912, Type: "part",
		FSType: "vfat", MountPoint: "/boot/efi"}, parts[0])
	assert.Equal(t, 2, parts[1].Number)
}

func TestList(t *testing.T) {
	wcmd, err := ListCommand(nvmetest.Windows, "1")
	require.NoError(t, err)

	parts, err := List(mockos.New(nvmetest.Windows).Add(wcmd, getPartition), "1")
	require.NoError(t, err)
	assert.Len(t, parts, 2)

	parts, err = List(mockos.New(nvmetest.Linux).Add("lsblk -b -P -o NAME,SIZE,TYPE,FSTYPE,MOUNTPOINT /dev/nvme0n1", lsblk), "/dev/nvme0n1")
	require.NoError(t, err)
	assert.Len(t, parts, 2)

	_, err = List(mockos.New(nvmetest.UnknownOS), "1")
	assert.True(t, errors.Is(err, nvmetest.ErrUnsupported))
}

func TestDiskpart(t *testing.T) {
	script := DiskpartScript("1", []Spec{
		{SizeMiB: 10240, FS: "ntfs", Label: "DATA", Letter: "E"},
		{FS: "ntfs"},
	})

	assert.Equal(t, []string{
		"select disk 1",
		"clean",
		"convert gpt",
		"create partition primary size=10240",
		"format fs=ntfs quick label=DATA",
		"assign letter=E",
		"create partition primary",
		"format fs=ntfs quick",
		"assign",
	}, script)

	assert.Equal(t, "(echo select disk 1&echo clean) | diskpart", DiskpartCommand(script[:2]))
}

func TestParted(t *testing.T) {
	cmds := PartedCommands("/dev/nvme0n1", []Spec{
		{SizeMiB: 512, FS: "vfat", Label: "EFI"},
		{SizeMiB: 1024},
		{FS: "ext4"},
	})

	assert.Equal(t, []string{
		"parted -s /dev/nvme0n1 mklabel gpt mkpart EFI 1MiB 513MiB mkpart part2 513MiB 1537MiB mkpart part3 1537MiB 100%",
		"mkfs.vfat -L EFI /dev/nvme0n1p1",
		"mkfs.ext4 /dev/nvme0n1p3",
	}, cmds)

	assert.Equal(t, "sda2", PartName("sda", 2))
	assert.Equal(t, "mmcblk0p1", PartName("mmcblk0", 1))
}

func TestCreate(t *testing.T) {
	specs := []Spec{{FS: "ntfs", Letter: "E"}}
	good := mockos.New(nvmetest.Windows).Add(DiskpartCommand(DiskpartScript("1", specs)),
		"Microsoft DiskPart version 10.0.20348.1\n\nDiskPart succeeded in cleaning the disk.\n")
	assert.NoError(t, Create(good, "1", specs))

	bad := mockos.New(nvmetest.Windows).Add(DiskpartCommand(DiskpartScript("1", specs)),
		"DiskPart has encountered an error: The media is write protected.\n")
	assert.Error(t, Create(bad, "1", specs))

	l := mockos.New(nvmetest.Linux).
		Add("parted -s /dev/sdb", "").
		Add("mkfs.ext4 /dev/sdb1", "mke2fs 1.46.5 (30-Dec-2021)\nWriting superblocks and filesystem accounting information: done\n")
	assert.NoError(t, Create(l, "/dev/sdb", []Spec{{FS: "ext4"}}))
	assert.Equal(t, []string{
		"parted -s /dev/sdb mklabel gpt mkpart part1 1MiB 100% 2>&1",
		"mkfs.ext4 /dev/sdb1 2>&1",
	}, l.Calls)

	lbad := mockos.New(nvmetest.Linux).Add("parted", "Error: Could not stat device /dev/sdz - No such file or directory.\n")
	assert.Error(t, Create(lbad, "/dev/sdz", nil))
}
