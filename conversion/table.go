// Package conversion turns raw ADS1115 counts from the ribbon board into
// physical values: thermistor temperatures through a resistance ratio table,
// and heater voltage through the shunt current-sense resistor.
package conversion

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfRange is returned when a resistance ratio is lower than the
	// hottest table entry.
	ErrOutOfRange = errors.New("resistance ratio outside calibrated table")
	// ErrInvalidTable is returned by NewTable for tables that can't be interpolated.
	ErrInvalidTable = errors.New("invalid resistance table")
)

// Point is one calibration entry: thermistor resistance normalised to the
// divider's fixed resistor, and the matching temperature in °C.
type Point struct {
	Ratio       float64
	Temperature float64
}

// Table is an immutable resistance ratio table, ordered from the coldest
// (highest ratio) to the hottest (lowest ratio) entry.
type Table struct {
	points []Point
}

// NewTable copies points into a Table. Ratios have to be strictly decreasing.
func NewTable(points []Point) (*Table, error) {
	if len(points) < 2 {
		return nil, errors.Wrapf(ErrInvalidTable, "need at least two points, got %d", len(points))
	}

	for i := 1; i < len(points); i++ {
		if points[i].Ratio >= points[i-1].Ratio {
			return nil, errors.Wrapf(ErrInvalidTable, "ratio %g at %g°C is not below %g at %g°C",
				points[i].Ratio, points[i].Temperature, points[i-1].Ratio, points[i-1].Temperature)
		}
	}

	tab := &Table{points: make([]Point, len(points))}
	copy(tab.points, points)
	return tab, nil
}

func (tab *Table) Len() int {
	return len(tab.points)
}

// Point returns the i-th entry.
func (tab *Table) Point(i int) Point {
	return tab.points[i]
}

func (tab *Table) MinTemperature() float64 {
	return tab.points[0].Temperature
}

func (tab *Table) MaxTemperature() float64 {
	return tab.points[len(tab.points)-1].Temperature
}

// Temperature interpolates linearly between the two entries bracketing ratio.
// Ratios at or above the coldest entry clamp to the minimum temperature,
// ratios below the hottest entry return ErrOutOfRange.
func (tab *Table) Temperature(ratio float64) (float64, error) {
	upper := -1
	for i, p := range tab.points {
		if p.Ratio < ratio {
			upper = i
			break
		}
	}

	if upper == -1 {
		last := tab.points[len(tab.points)-1]
		if ratio == last.Ratio {
			return last.Temperature, nil
		}
		return 0, errors.Wrapf(ErrOutOfRange, "ratio %g below %g (%g°C)", ratio, last.Ratio, last.Temperature)
	}

	if upper == 0 {
		return tab.points[0].Temperature, nil
	}

	low := tab.points[upper-1]
	high := tab.points[upper]

	return (ratio-low.Ratio)/(high.Ratio-low.Ratio)*(high.Temperature-low.Temperature) + low.Temperature, nil
}

// TemperatureFromRaw converts a differential reading across the thermistor
// divider, taken with the given full scale range, into °C.
func (tab *Table) TemperatureFromRaw(raw int16, fullScale float64) (float64, error) {
	ratio := DividerRatio(RawToVoltage(raw, fullScale))

	temp, err := tab.Temperature(ratio)
	if err != nil {
		return 0, errors.Wrapf(err, "raw reading %d", raw)
	}
	return temp, nil
}

// DefaultTable is the 10k NTC curve of the ribbon probes, -40°C to 125°C in 5°C steps.
var DefaultTable = mustTable([]Point{
	{20.52, -40},
	{15.48, -35},
	{11.79, -30},
	{9.069, -25},
	// geometric mean of the -25 and -15 entries; the board firmware's 9.465
	// sat above the -25 entry
	{7.067, -20},
	{5.507, -15},
	{4.344, -10},
	{3.453, -5},
	{2.764, 0},
	{2.227, 5},
	{1.806, 10},
	{1.474, 15},
	{1.211, 20},
	{1.0, 25},
	{0.8309, 30},
	{0.6941, 35},
	{0.5828, 40},
	{0.4916, 45},
	{0.4165, 50},
	{0.3543, 55},
	{0.3027, 60},
	{0.2595, 65},
	{0.2233, 70},
	{0.1929, 75},
	{0.1672, 80},
	{0.1451, 85},
	{0.1261, 90},
	{0.1097, 95},
	{0.09563, 100},
	{0.08357, 105},
	{0.07317, 110},
	{0.06421, 115},
	{0.05650, 120},
	{0.04986, 125},
})

func mustTable(points []Point) *Table {
	tab, err := NewTable(points)
	if err != nil {
		panic(err)
	}
	return tab
}
