package conversion

const (
	// full scale of a signed 16 bit conversion
	fullScaleCounts = 32768.0

	// ReferenceVoltage drives the thermistor dividers.
	ReferenceVoltage = 2.5
	// DividerResistance is the fixed top resistor of every divider, in ohms.
	DividerResistance = 10e3

	// ShuntResistance sits in series with the heater, in ohms.
	ShuntResistance = 0.1
	// HeaterResistance of the needle heater, in ohms.
	HeaterResistance = 10.0
)

// RawToVoltage scales a two's complement conversion result by the full scale
// range it was taken with.
func RawToVoltage(raw int16, fullScale float64) float64 {
	return float64(raw) / fullScaleCounts * fullScale
}

// DividerRatio inverts the thermistor divider: the thermistor is the bottom
// leg and v is measured across it. The resistance is normalised by the fixed
// resistor to match the table scale.
func DividerRatio(v float64) float64 {
	resistance := (v * DividerResistance) / (ReferenceVoltage - v)
	return resistance / DividerResistance
}

// Shunt holds the heater current-sense values derived from one reading.
type Shunt struct {
	ShuntVoltage  float64 `json:"shunt_voltage"`
	Current       float64 `json:"current"`
	HeaterVoltage float64 `json:"heater_voltage"`
}

// ShuntFromVoltage derives current through the shunt and the voltage across
// the heater it is in series with.
func ShuntFromVoltage(v float64) Shunt {
	current := v / ShuntResistance
	return Shunt{
		ShuntVoltage:  v,
		Current:       current,
		HeaterVoltage: current * HeaterResistance,
	}
}

func ShuntFromRaw(raw int16, fullScale float64) Shunt {
	return ShuntFromVoltage(RawToVoltage(raw, fullScale))
}
