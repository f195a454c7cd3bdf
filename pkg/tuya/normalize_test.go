package tuya

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
)

func TestNormalizeDefaultsToZero(t *testing.T) {
	assert.Equal(t, Reading{}, Normalize(nil))
	assert.Equal(t, Reading{}, Normalize([]StatusItem{{Code: "switch_1", Value: true}}))

	r := Normalize([]StatusItem{{Code: "cur_power", Value: 250.0}})
	assert.Equal(t, 25.0, r.Power)
	assert.Zero(t, r.Voltage)
	assert.Zero(t, r.Current)
	assert.Zero(t, r.Energy)
}

func TestNormalizeScales(t *testing.T) {
	r := Normalize([]StatusItem{
		{Code: "switch_1", Value: true},
		{Code: "cur_power", Value: 1234.0},
		{Code: "cur_voltage", Value: 2305.0},
		{Code: "cur_current", Value: 456.0},
		{Code: "add_ele", Value: 1500.0},
	})
	assert.Equal(t, Reading{Power: 123.4, Voltage: 230.5, Current: 456, Energy: 1.5}, r)

	r = Normalize([]StatusItem{
		{Code: "power", Value: 100},
		{Code: "voltage", Value: int64(2200)},
		{Code: "current", Value: "12"},
		{Code: "total_forward_energy", Value: 150},
	})
	assert.Equal(t, Reading{Power: 10, Voltage: 220, Current: 12, Energy: 1.5}, r)
}

func TestNormalizeLastSeenWins(t *testing.T) {
	r := Normalize([]StatusItem{
		{Code: "power", Value: 100.0},
		{Code: "cur_power", Value: 200.0},
		{Code: "add_ele", Value: 1000.0},
		{Code: "total_forward_energy", Value: 300.0},
	})
	assert.Equal(t, 20.0, r.Power)
	assert.Equal(t, 3.0, r.Energy)
}

func TestNormalizeCodesAreCaseSensitive(t *testing.T) {
	r := Normalize([]StatusItem{{Code: "Cur_Power", Value: 100.0}})
	assert.Zero(t, r.Power)
}

func TestNormalizeNonNumericIsNaN(t *testing.T) {
	r := Normalize([]StatusItem{
		{Code: "cur_power", Value: "abc"},
		{Code: "cur_voltage", Value: nil},
		{Code: "cur_current", Value: map[string]any{"v": 1}},
	})
	assert.True(t, math.IsNaN(r.Power))
	assert.True(t, math.IsNaN(r.Voltage))
	assert.True(t, math.IsNaN(r.Current))
	assert.Zero(t, r.Energy)
}

func TestNormalizeCanonicalOutputIsStable(t *testing.T) {
	items := []StatusItem{
		{Code: "cur_power", Value: 1234.0},
		{Code: "cur_voltage", Value: 2305.0},
		{Code: "cur_current", Value: 456.0},
		{Code: "add_ele", Value: 1500.0},
	}
	first := Normalize(items)

	again := Normalize(append(append([]StatusItem{}, items...), first.StatusItems()...))
	assert.Equal(t, first, again)

	// canonical names alone carry no vendor codes
	assert.Equal(t, Reading{}, Normalize(first.StatusItems()))
}

func TestParseScalesOverride(t *testing.T) {
	scales, err := ParseScales([]byte(`
scales:
  add_ele:
    field: energy
    divisor: 100
  phase_a_power:
    field: power
    divisor: 1
`))
	require.NoError(t, err)

	assert.Equal(t, Scale{Field: FieldEnergy, Divisor: 100}, scales["add_ele"])
	assert.Equal(t, Scale{Field: FieldEnergy, Divisor: EnergyDivisorTotalForward}, scales["total_forward_energy"])

	r := scales.Normalize([]StatusItem{{Code: "add_ele", Value: 150.0}, {Code: "phase_a_power", Value: 42.0}})
	assert.Equal(t, 1.5, r.Energy)
	assert.Equal(t, 42.0, r.Power)
}

func TestParseScalesRejectsBadEntries(t *testing.T) {
	_, err := ParseScales([]byte("scales:\n  add_ele: {field: joules, divisor: 1}\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfig)

	_, err = ParseScales([]byte("scales:\n  add_ele: {field: energy, divisor: 0}\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfig)

	_, err = ParseScales([]byte("scales: [1, 2"))
	require.Error(t, err)
}

func TestLoadScales(t *testing.T) {
	scales, err := LoadScales("")
	require.NoError(t, err)
	assert.Equal(t, DefaultScales(), scales)

	path := filepath.Join(t.TempDir(), "scales.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scales:\n  energy: {field: energy, divisor: 100}\n"), 0o644))

	scales, err = LoadScales(path)
	require.NoError(t, err)
	assert.Equal(t, 100.0, scales["energy"].Divisor)

	_, err = LoadScales(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, common.ErrConfig)
}
