package tuya

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// StatusItem is one entry of a device status array as the vendor returns it.
type StatusItem struct {
	Code  string `json:"code"`
	Value any    `json:"value"`
}

type Field string

const (
	FieldPower   Field = "power"
	FieldVoltage Field = "voltage"
	FieldCurrent Field = "current"
	FieldEnergy  Field = "energy"
)

// The vendor reports cumulative energy in different units depending on the
// data point: add_ele/energy count 1/1000 kWh (Wh), total_forward_energy
// counts 1/100 kWh. Both are kept visible here and can be overridden with a
// scale file.
const (
	EnergyDivisorAddEle       = 1000.0
	EnergyDivisorTotalForward = 100.0
)

// Canonical names emitted by Reading.StatusItems. None of them is a vendor
// code, so normalizing them again is a no-op.
const (
	CanonicalPower   = "power_W"
	CanonicalVoltage = "voltage_V"
	CanonicalCurrent = "current_mA"
	CanonicalEnergy  = "energy_kWh"
)

type Scale struct {
	Field   Field   `yaml:"field"`
	Divisor float64 `yaml:"divisor"`
}

// Scales maps a vendor status code (case-sensitive) to its canonical field.
type Scales map[string]Scale

func DefaultScales() Scales {
	return Scales{
		"cur_power":            {Field: FieldPower, Divisor: 10},
		"power":                {Field: FieldPower, Divisor: 10},
		"cur_voltage":          {Field: FieldVoltage, Divisor: 10},
		"voltage":              {Field: FieldVoltage, Divisor: 10},
		"cur_current":          {Field: FieldCurrent, Divisor: 1},
		"current":              {Field: FieldCurrent, Divisor: 1},
		"add_ele":              {Field: FieldEnergy, Divisor: EnergyDivisorAddEle},
		"energy":               {Field: FieldEnergy, Divisor: EnergyDivisorAddEle},
		"total_forward_energy": {Field: FieldEnergy, Divisor: EnergyDivisorTotalForward},
	}
}

// Reading is a canonical sample: W, V, mA and kWh.
type Reading struct {
	Power   float64 `json:"power"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Energy  float64 `json:"energy"`
}

// StatusItems renders the reading under its canonical names.
func (r Reading) StatusItems() []StatusItem {
	return []StatusItem{
		{Code: CanonicalPower, Value: r.Power},
		{Code: CanonicalVoltage, Value: r.Voltage},
		{Code: CanonicalCurrent, Value: r.Current},
		{Code: CanonicalEnergy, Value: r.Energy},
	}
}

// Normalize applies the default scale table.
func Normalize(items []StatusItem) Reading {
	return DefaultScales().Normalize(items)
}

// Normalize walks items once; when several codes map to the same field the
// last one wins. Unknown codes are skipped and missing fields stay 0.
func (s Scales) Normalize(items []StatusItem) Reading {
	var r Reading
	for _, item := range items {
		scale, ok := s[item.Code]
		if !ok {
			continue
		}
		v := toFloat(item.Value) / scale.Divisor
		switch scale.Field {
		case FieldPower:
			r.Power = v
		case FieldVoltage:
			r.Voltage = v
		case FieldCurrent:
			r.Current = v
		case FieldEnergy:
			r.Energy = v
		}
	}
	return r
}

// toFloat is permissive: anything that is not a number or a numeric string
// becomes NaN.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
