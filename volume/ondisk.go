package volume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf16"

	"github.com/rekby/gpt"
	"github.com/rekby/mbr"
	uuid "github.com/satori/go.uuid"
)

const (
	sectorSize512 = 512
	sectorSize4k  = 4096
	mebibyte      = 1024 * 1024
)

// ErrNoPartitionTable is returned if there is no partition table.
var ErrNoPartitionTable = errors.New("no partition table found")

// TableType is the partition table format found on a disk.
type TableType string

const (
	TableNone TableType = "none"
	GPT       TableType = "gpt"
	MBR       TableType = "mbr"
)

// Well known GPT partition type GUIDs.
const (
	EFISystem     = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"
	MSReserved    = "E3C9E316-0B5C-4DB8-817D-F92DF00215AE"
	MSBasicData   = "EBD0A0A2-B9E5-4433-87C0-68B6B72699C7"
	LinuxFS       = "0FC63DAF-8483-4772-8E79-3D69D8477DE4"
	LinuxLVM      = "E6D6D379-F507-44C2-A23C-238F2A3DF928"
	LinuxRAIDType = "A19D880F-05FC-4D3B-A006-743F0F84911E"
)

var typeNames = map[string]string{
	EFISystem:     "EFI System",
	MSReserved:    "Reserved",
	MSBasicData:   "Basic",
	LinuxFS:       "Linux-FS",
	LinuxLVM:      "LVM",
	LinuxRAIDType: "RAID",
	"0x07":        "NTFS",
	"0x0C":        "FAT32",
	"0x83":        "Linux",
	"0x8E":        "LVM",
	"0xEE":        "GPT protective",
	"0xEF":        "EFI System",
}

// TypeName returns a short name for a GPT type GUID or MBR type byte.
func TypeName(t string) string {
	if n, ok := typeNames[t]; ok {
		return n
	}

	return "Unknown"
}

// DiskPartition is a partition read from an on-disk partition table. Start
// and Last are byte offsets, Last inclusive.
type DiskPartition struct {
	Number uint   `json:"number"`
	Start  uint64 `json:"start"`
	Last   uint64 `json:"last"`
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Size returns the partition size in bytes.
func (p DiskPartition) Size() uint64 {
	return p.Last - p.Start + 1
}

// Table is a partition table read from a disk or image.
type Table struct {
	Type       TableType       `json:"type"`
	SectorSize uint            `json:"sector_size"`
	Partitions []DiskPartition `json:"partitions"`
}

func readGPTTableSearch(fp io.ReadSeeker, sizes []uint) (gpt.Table, uint, error) {
	const noGptFound = "Bad GPT signature"
	var gptTable gpt.Table
	var err error
	var size uint

	for _, size = range sizes {
		// consider seek failure to be fatal
		if _, err := fp.Seek(int64(size), io.SeekStart); err != nil {
			return gpt.Table{}, size, err
		}

		if gptTable, err = gpt.ReadTable(fp, uint64(size)); err != nil {
			if err.Error() == noGptFound || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				continue
			}

			return gpt.Table{}, size, err
		}

		return gptTable, size, nil
	}

	return gpt.Table{}, size, ErrNoPartitionTable
}

func readMBRTable(fp io.ReadSeeker) ([]DiskPartition, error) {
	parts := []DiskPartition{}

	if _, err := fp.Seek(0, io.SeekStart); err != nil {
		return parts, err
	}

	mbrTable, err := mbr.Read(fp)
	if err == mbr.ErrorBadMbrSign {
		return parts, ErrNoPartitionTable
	} else if err != nil {
		return parts, err
	}

	for i, p := range mbrTable.GetAllPartitions() {
		if p.IsEmpty() {
			continue
		}

		parts = append(parts, DiskPartition{
			Number: uint(i + 1),
			Start:  uint64(p.GetLBAStart()) * sectorSize512,
			Last:   uint64(p.GetLBALast())*sectorSize512 + sectorSize512 - 1,
			Type:   fmt.Sprintf("0x%02X", byte(p.GetType())),
		})
	}

	return parts, nil
}

// readTable looks for a GPT at each of sizes, then for an MBR.
func readTable(fp io.ReadSeeker, sizes []uint) (Table, error) {
	gptTable, ssize, err := readGPTTableSearch(fp, sizes)
	if err == ErrNoPartitionTable {
		parts, err := readMBRTable(fp)
		if err == ErrNoPartitionTable {
			return Table{Type: TableNone, Partitions: parts}, nil
		}

		return Table{Type: MBR, SectorSize: sectorSize512, Partitions: parts}, err
	}

	if err != nil {
		return Table{Type: GPT, SectorSize: ssize}, err
	}

	t := Table{Type: GPT, SectorSize: ssize, Partitions: []DiskPartition{}}
	ssize64 := uint64(ssize)

	for n, p := range gptTable.Partitions {
		if p.IsEmpty() {
			continue
		}

		t.Partitions = append(t.Partitions, DiskPartition{
			Number: uint(n + 1),
			Start:  p.FirstLBA * ssize64,
			Last:   p.LastLBA*ssize64 + ssize64 - 1,
			Type:   gpt.Guid(p.Type).String(),
			ID:     p.Id.String(),
			Name:   p.Name(),
		})
	}

	return t, nil
}

// ReadTable reads the partition table of a local block device or disk
// image. For block devices the logical sector size is asked from the
// kernel; images are probed with 512 and 4096 byte sectors.
func ReadTable(path string) (Table, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer fp.Close()

	sizes := []uint{sectorSize512, sectorSize4k}
	if ss, ok := deviceSectorSize(fp); ok {
		sizes = []uint{ss}
	}

	return readTable(fp, sizes)
}

// ImagePartition is a partition to write into a disk image. Type is a GPT
// type GUID string.
type ImagePartition struct {
	Start uint64
	Last  uint64
	Type  string
	Name  string
}

func getPartName(s string) [72]byte {
	codes := utf16.Encode([]rune(s))
	b := [72]byte{}

	for i, r := range codes {
		if i*2+1 >= len(b) {
			break
		}

		b[i*2] = byte(r)
		b[i*2+1] = byte(r >> 8) //nolint:gomnd
	}

	return b
}

// CreateImage writes a size byte disk image at path with a protective MBR
// and a GPT holding parts. Partitions must start at or after 1MiB and end
// before the backup table.
func CreateImage(path string, size uint64, sectorSize uint, parts []ImagePartition) error {
	maxEnd := ((size - uint64(sectorSize)*33) / mebibyte) * mebibyte

	gparts := make([]gpt.Partition, 0, len(parts))

	for i, p := range parts {
		if p.Start < mebibyte {
			return fmt.Errorf("partition %d start (%d) is too low. Must be >= %d", i+1, p.Start, mebibyte)
		}

		if p.Last >= maxEnd || p.Last <= p.Start {
			return fmt.Errorf("partition %d Last (%d) is out of range (%d, %d)", i+1, p.Last, p.Start, maxEnd)
		}

		ptype, err := gpt.StringToGuid(p.Type)
		if err != nil {
			return fmt.Errorf("partition %d type %q: %s", i+1, p.Type, err)
		}

		gparts = append(gparts, gpt.Partition{
			Type:          gpt.PartType(ptype),
			Id:            gpt.Guid(uuid.NewV4()),
			FirstLBA:      p.Start / uint64(sectorSize),
			LastLBA:       p.Last / uint64(sectorSize),
			Flags:         gpt.Flags{},
			PartNameUTF16: getPartName(p.Name),
			TrailingBytes: []byte{},
		})
	}

	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer fp.Close()

	if err := fp.Truncate(int64(size)); err != nil {
		return err
	}

	gptTable, err := writeNewGPTTable(fp, sectorSize, size)
	if err != nil {
		return err
	}

	copy(gptTable.Partitions, gparts)

	_, err = writeGPTTable(fp, gptTable)

	return err
}

func writeNewGPTTable(fp io.ReadWriteSeeker, sectorSize uint, diskSize uint64) (gpt.Table, error) {
	ntArgs := gpt.NewTableArgs{
		SectorSize: uint64(sectorSize),
		DiskGuid:   gpt.Guid(uuid.NewV4()),
	}
	gptTable := gpt.NewTable(diskSize, &ntArgs)

	if err := writeProtectiveMBR(fp, sectorSize, diskSize); err != nil {
		return gptTable, err
	}

	return writeGPTTable(fp, gptTable)
}

func writeGPTTable(fp io.ReadWriteSeeker, table gpt.Table) (gpt.Table, error) {
	if err := table.Write(fp); err != nil {
		return gpt.Table{}, fmt.Errorf("failed to write table: %s", err)
	}

	if err := table.CreateOtherSideTable().Write(fp); err != nil {
		return gpt.Table{}, fmt.Errorf("failed to write other side table: %s", err)
	}

	if _, err := fp.Seek(int64(table.Header.HeaderStartLBA*table.SectorSize), io.SeekStart); err != nil {
		return gpt.Table{}, err
	}

	return gpt.ReadTable(io.ReadSeeker(fp), table.SectorSize)
}

// writeProtectiveMBR - add a protective MBR spanning the disk, keeping
// whatever is in the first sector outside the partition entries.
func writeProtectiveMBR(fp io.ReadWriteSeeker, sectorSize uint, diskSize uint64) error {
	buf := make([]byte, sectorSize)

	if _, err := fp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if _, err := io.ReadFull(fp, buf); err != nil {
		return err
	}

	m, err := newProtectiveMBR(buf, sectorSize, diskSize)
	if err != nil {
		return err
	}

	if _, err := fp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return m.Write(fp)
}

func newProtectiveMBR(buf []byte, sectorSize uint, diskSize uint64) (mbr.MBR, error) {
	if len(buf) < int(sectorSize) {
		return mbr.MBR{}, fmt.Errorf("buffer too small. Must be sectorSize(%d)", sectorSize)
	}

	// partition entries live at 0x1BE-0x1FD, the signature at 0x1FE.
	for offset, i := 0x1BE, 0; i < 16*4; i++ {
		buf[offset+i] = 0
	}

	buf[0x1FE] = 0x55
	buf[0x1FF] = 0xAA

	myMBR, err := mbr.Read(bytes.NewReader(buf))
	if err != nil {
		return mbr.MBR{}, err
	}

	pt := myMBR.GetPartition(1)
	pt.SetType(mbr.PART_GPT)
	pt.SetLBAStart(1)
	pt.SetLBALen(uint32(diskSize/uint64(sectorSize)) - 2) //nolint:gomnd

	for pnum := 2; pnum <= 4; pnum++ {
		pt := myMBR.GetPartition(pnum)
		pt.SetType(mbr.PART_EMPTY)
		pt.SetLBAStart(0)
		pt.SetLBALen(0)
	}

	return *myMBR, myMBR.Check()
}
