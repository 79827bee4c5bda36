package conversion

import "testing"

func TestRawToVoltage(t *testing.T) {
	assertFloats(t, RawToVoltage(16384, 2.048), 1.024)
	assertFloats(t, RawToVoltage(-16384, 2.048), -1.024)
	assertFloats(t, RawToVoltage(0, 2.048), 0)
	assertFloats(t, RawToVoltage(-32768, 0.256), -0.256)
}

func TestDividerRatio(t *testing.T) {
	assertFloats(t, DividerRatio(1.25), 1)
	assertFloats(t, DividerRatio(0), 0)
	// 2V against 2.5V reference: 40k thermistor
	assertFloats(t, DividerRatio(2), 4)
}

func TestShunt(t *testing.T) {
	sh := ShuntFromVoltage(0.05)
	assertFloats(t, sh.ShuntVoltage, 0.05)
	assertFloats(t, sh.Current, 0.5)
	assertFloats(t, sh.HeaterVoltage, 5.0)

	// 6400 counts at 0.256V full scale is 0.05V
	sh = ShuntFromRaw(6400, 0.256)
	assertFloats(t, sh.Current, 0.5)
	assertFloats(t, sh.HeaterVoltage, 5.0)

	sh = ShuntFromRaw(-6400, 0.256)
	assertFloats(t, sh.HeaterVoltage, -5.0)
}
