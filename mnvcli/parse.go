package mnvcli

import (
	"regexp"
	"strings"

	"machinerun.io/nvmetest"
	"machinerun.io/nvmetest/inventory"
)

// PCIe is the PCI configuration space identity of the adapter.
type PCIe struct {
	VID  uint16 `json:"vid"`
	DID  uint16 `json:"did"`
	SVID uint16 `json:"svid"`
	SDID uint16 `json:"sdid"`
	Rev  string `json:"rev"`
}

// Matches reports whether p is the identity the inventory expects. Ids in
// the inventory are hex strings with or without 0x.
func (p PCIe) Matches(want inventory.PCIe) bool {
	for _, c := range []struct {
		got  uint16
		want string
	}{{p.VID, want.VID}, {p.DID, want.DID}, {p.SVID, want.SVID}, {p.SDID, want.SDID}} {
		v, err := nvmetest.ParseHex(c.want, "pcie id")
		if err != nil || uint16(v) != c.got {
			return false
		}
	}

	return strings.EqualFold(p.Rev, strings.TrimSpace(want.Rev))
}

// HBA is the adapter report of "mnv_cli info -o hba".
type HBA struct {
	ID         int        `json:"id"`
	PCIe       PCIe       `json:"pcie"`
	Firmware   string     `json:"firmware"`
	BootLoader string     `json:"boot_loader"`
	MaxPD      int        `json:"max_pd"`
	MaxVD      int        `json:"max_vd"`
	RAIDModes  []RAIDMode `json:"raid_modes"`
	Features   []string   `json:"features"`
}

// VirtualDisk is one entry of "mnv_cli info -o vd". SizeBytes uses powers of
// 1024 for the printed unit.
type VirtualDisk struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	RAIDMode   RAIDMode `json:"raid_mode"`
	SizeBytes  float64  `json:"size_bytes"`
	PDs        []int    `json:"pds"`
	BGAStatus  string   `json:"bga_status"`
	StripeSize string   `json:"stripe_size"`
}

// IsDegraded reports a virtual disk running with a missing member.
func (v VirtualDisk) IsDegraded() bool {
	return strings.EqualFold(v.Status, "Degraded")
}

// IsRebuilding reports a rebuild in progress.
func (v VirtualDisk) IsRebuilding() bool {
	return rebuildRe.MatchString(v.BGAStatus) || strings.Contains(strings.ToLower(v.Status), "rebuild")
}

// PhysicalDisk is one entry of "mnv_cli info -o pd".
type PhysicalDisk struct {
	ID         int     `json:"id"`
	Model      string  `json:"model"`
	Serial     string  `json:"serial"`
	Firmware   string  `json:"firmware"`
	SectorSize int     `json:"sector_size"`
	SizeBytes  float64 `json:"size_bytes"`
	Status     string  `json:"status"`
	VDID       int     `json:"vd_id"`
}

var (
	pciePair  = regexp.MustCompile(`^([0-9a-fA-F]{1,4})-([0-9a-fA-F]{1,4})$`)
	leadInt   = regexp.MustCompile(`^(\d+)`)
	rebuildRe = regexp.MustCompile(`(?i)rebuild\w*\D*?(\d+(?:\.\d+)?)\s*%`)
	errorLine = regexp.MustCompile(`(?i)^(error|fail)`)
	totalKey  = regexp.MustCompile(`^Total # of`)
)

func required(kv map[string]string, key, field string) (string, error) {
	v, ok := kv[key]
	if !ok || v == "" {
		return "", &nvmetest.PatternNotMatchedError{Field: field, Pattern: key + ":"}
	}

	return v, nil
}

func hexPair(kv map[string]string, key string) (uint16, uint16, error) {
	v, err := required(kv, key, key)
	if err != nil {
		return 0, 0, err
	}

	toks, err := nvmetest.Match(v, pciePair, key)
	if err != nil {
		return 0, 0, err
	}

	a, err := nvmetest.ParseHex(toks[1], key)
	if err != nil {
		return 0, 0, err
	}

	b, err := nvmetest.ParseHex(toks[2], key)
	if err != nil {
		return 0, 0, err
	}

	return uint16(a), uint16(b), nil
}

func optionalInt(kv map[string]string, key string) int {
	toks := leadInt.FindStringSubmatch(kv[key])
	if toks == nil {
		return 0
	}

	v, _ := nvmetest.Atoi(toks[1], key)

	return v
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// ParseHBA parses the adapter report. Product carries "VID-DID", Sub
// Product "SVID-SDID" and Chip revision the revision id.
func ParseHBA(raw string) (HBA, error) {
	kv := nvmetest.ParseKeyValues(nvmetest.SplitRawLines(raw), ":")
	h := HBA{}

	var err error

	if h.PCIe.VID, h.PCIe.DID, err = hexPair(kv, "Product"); err != nil {
		return h, err
	}

	if h.PCIe.SVID, h.PCIe.SDID, err = hexPair(kv, "Sub Product"); err != nil {
		return h, err
	}

	if h.PCIe.Rev, err = required(kv, "Chip revision", "Chip revision"); err != nil {
		return h, err
	}

	if h.Firmware, err = required(kv, "Firmware version", "Firmware version"); err != nil {
		return h, err
	}

	h.ID = optionalInt(kv, "Adapter ID")
	h.BootLoader = kv["Boot loader version"]
	h.MaxPD = optionalInt(kv, "Max PD supported")
	h.MaxVD = optionalInt(kv, "Max VD supported")

	for _, m := range words(kv["Supported RAID mode"]) {
		h.RAIDModes = append(h.RAIDModes, RAIDMode(strings.ToUpper(m)))
	}

	for _, f := range strings.Split(kv["Features"], ",") {
		if f = strings.TrimSpace(f); f != "" {
			h.Features = append(h.Features, f)
		}
	}

	return h, nil
}

// records splits a multi-entry report into key/value maps, one per entry,
// dropping the trailing "Total # of ..." summary.
func records(raw, idKey string) []map[string]string {
	recs := []map[string]string{}

	for _, block := range nvmetest.SplitBlocks(raw) {
		kv := nvmetest.ParseKeyValues(block, ":")
		if _, ok := kv[idKey]; !ok {
			continue
		}

		for k := range kv {
			if totalKey.MatchString(k) {
				delete(kv, k)
			}
		}

		recs = append(recs, kv)
	}

	return recs
}

// ParseVDs parses the virtual disk report. No virtual disk is an empty list.
func ParseVDs(raw string) ([]VirtualDisk, error) {
	vds := []VirtualDisk{}

	for _, kv := range records(raw, "VD ID") {
		v := VirtualDisk{
			Name:       kv["Name"],
			Status:     kv["Status"],
			RAIDMode:   RAIDMode(strings.ToUpper(kv["RAID mode"])),
			BGAStatus:  kv["BGA status"],
			StripeSize: kv["Stripe size"],
		}

		var err error

		if v.ID, err = nvmetest.Atoi(kv["VD ID"], "VD ID"); err != nil {
			return nil, err
		}

		size, err := required(kv, "size", "VD size")
		if err != nil {
			return nil, err
		}

		if v.SizeBytes, err = nvmetest.ParseSize(size); err != nil {
			return nil, err
		}

		for _, p := range words(kv["PD"]) {
			id, err := nvmetest.Atoi(p, "VD PD")
			if err != nil {
				return nil, err
			}

			v.PDs = append(v.PDs, id)
		}

		vds = append(vds, v)
	}

	return vds, nil
}

// ParsePDs parses the physical disk report.
func ParsePDs(raw string) ([]PhysicalDisk, error) {
	pds := []PhysicalDisk{}

	for _, kv := range records(raw, "PD ID") {
		p := PhysicalDisk{
			Model:      kv["Model"],
			Serial:     kv["Serial"],
			Firmware:   kv["Firmware version"],
			Status:     kv["Status"],
			SectorSize: optionalInt(kv, "Sector Size"),
			VDID:       -1,
		}

		var err error

		if p.ID, err = nvmetest.Atoi(kv["PD ID"], "PD ID"); err != nil {
			return nil, err
		}

		if size, ok := kv["Size"]; ok {
			if p.SizeBytes, err = nvmetest.ParseSize(size); err != nil {
				return nil, err
			}
		}

		if v, ok := kv["SSD backend VD ID"]; ok {
			if p.VDID, err = nvmetest.Atoi(v, "SSD backend VD ID"); err != nil {
				return nil, err
			}
		}

		pds = append(pds, p)
	}

	return pds, nil
}

// ParseRebuild returns the rebuild progress in percent found in a VD report
// or rebuild status output.
func ParseRebuild(raw string) (float64, error) {
	return nvmetest.MatchFloat(raw, rebuildRe, "rebuild progress")
}
