package inventory

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"machinerun.io/nvmetest"
)

// PinMap maps a logical pin group ("power_button") to a physical board pin.
type PinMap map[string]int

// LoadPinMap reads a pin map from path.
func LoadPinMap(path string) (PinMap, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(nvmetest.ErrConfigNotFound, "%s: %s", path, err)
	}

	pm := PinMap{}
	if err := json.Unmarshal(content, &pm); err != nil {
		return nil, errors.Wrapf(err, "failed to parse pin map %s", path)
	}

	return pm, nil
}

// Pin returns the board pin for group.
func (pm PinMap) Pin(group string) (int, error) {
	pin, ok := pm[group]
	if !ok {
		return 0, errors.Errorf("pin group %q not in pin map", group)
	}

	return pin, nil
}
