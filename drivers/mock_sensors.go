package drivers

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hubertat/sapflow/conversion"
)

const mockSensorDriverName = "mock_sensors"

// MockSensors serves fixed readings, for running without a board.
type MockSensors struct {
	// Temperatures by thermistor index, missing indexes read as 20°C.
	Temperatures  map[int]float64
	HeaterVoltage float64
	// Failing indexes return ErrConversionTimeout.
	Failing []int

	reads int
	ready bool
}

func (ms *MockSensors) Setup(ctx context.Context) error {
	ms.ready = true
	return nil
}

func (ms *MockSensors) Close() error {
	ms.ready = false
	return nil
}

func (ms *MockSensors) IsReady() bool {
	return ms.ready
}

func (ms *MockSensors) Name() string {
	return mockSensorDriverName
}

// Reads counts the readings served so far.
func (ms *MockSensors) Reads() int {
	return ms.reads
}

func (ms *MockSensors) ReadThermistor(ctx context.Context, index int) (float64, error) {
	if !ms.ready {
		return 0, ErrBoardInvalid
	}
	_, err := ThermistorSelection(index)
	if err != nil {
		return 0, err
	}
	for _, failing := range ms.Failing {
		if failing == index {
			return 0, errors.Wrapf(ErrConversionTimeout, "mock thermistor %d", index)
		}
	}

	ms.reads++
	temp, ok := ms.Temperatures[index]
	if !ok {
		temp = 20
	}
	return temp, nil
}

func (ms *MockSensors) ReadShunt(ctx context.Context) (conversion.Shunt, error) {
	if !ms.ready {
		return conversion.Shunt{}, ErrBoardInvalid
	}
	ms.reads++
	current := ms.HeaterVoltage / conversion.HeaterResistance
	return conversion.ShuntFromVoltage(current * conversion.ShuntResistance), nil
}
