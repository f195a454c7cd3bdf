package tuya

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
)

type scaleFile struct {
	Scales map[string]Scale `yaml:"scales"`
}

// ParseScales overlays the codes listed in a YAML document on top of the
// default table:
//
//	scales:
//	  add_ele: {field: energy, divisor: 100}
//	  cur_current: {field: current, divisor: 1}
func ParseScales(data []byte) (Scales, error) {
	var f scaleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, common.NewConfigError(fmt.Sprintf("parse scale file: %v", err))
	}

	scales := DefaultScales()
	for code, s := range f.Scales {
		switch s.Field {
		case FieldPower, FieldVoltage, FieldCurrent, FieldEnergy:
		default:
			return nil, common.NewConfigError(fmt.Sprintf("scale %q: unknown field %q", code, s.Field))
		}
		if s.Divisor <= 0 {
			return nil, common.NewConfigError(fmt.Sprintf("scale %q: divisor must be positive", code))
		}
		scales[code] = s
	}
	return scales, nil
}

// LoadScales returns the default table when path is empty.
func LoadScales(path string) (Scales, error) {
	if path == "" {
		return DefaultScales(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewConfigError(fmt.Sprintf("read scale file: %v", err))
	}
	return ParseScales(data)
}
