package sapflow

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/sapflow/conversion"
	"github.com/hubertat/sapflow/drivers"
)

// heaterCheckingSensors records whether the heater was on while the shunt was read.
type heaterCheckingSensors struct {
	drivers.MockSensors
	heater   drivers.DigitalOutput
	heaterOn bool
	err      error
}

func (hs *heaterCheckingSensors) ReadShunt(ctx context.Context) (conversion.Shunt, error) {
	hs.heaterOn, _ = hs.heater.GetState()
	if hs.err != nil {
		return conversion.Shunt{}, hs.err
	}
	return hs.MockSensors.ReadShunt(ctx)
}

func newTestHeater(t testing.TB) (*Heater, *drivers.MockIoDriver) {
	t.Helper()

	md := &drivers.MockIoDriver{}
	md.Setup([]uint16{4})
	h := &Heater{DriverName: "mock_driver", Pin: 4, PulseDuration: "250ms"}
	h.sleep = func(ctx context.Context, d time.Duration) error {
		if d != 250*time.Millisecond {
			t.Errorf("slept %v want 250ms", d)
		}
		return ctx.Err()
	}

	err := h.Init(md)
	if err != nil {
		t.Fatalf("Init returned err: %v", err)
	}
	return h, md
}

func TestHeaterInit(t *testing.T) {
	md := &drivers.MockIoDriver{}
	h := &Heater{Pin: 4}

	err := h.Init(md)
	if err == nil {
		t.Error("got nil error when Init with not ready driver")
	}

	md.Setup([]uint16{4})
	err = h.Init(md)
	if err != nil {
		t.Fatalf("Init returned err: %v", err)
	}
	if h.pulse != defaultPulseDuration {
		t.Errorf("got pulse %v want default %v", h.pulse, defaultPulseDuration)
	}

	h = &Heater{Pin: 4, PulseDuration: "long"}
	if h.Init(md) == nil {
		t.Error("got nil error for unparsable PulseDuration")
	}

	h = &Heater{Pin: 9}
	if h.Init(md) == nil {
		t.Error("got nil error for pin missing from driver")
	}
}

func TestHeaterPulse(t *testing.T) {
	h, md := newTestHeater(t)
	out, _ := md.GetOutput(4)
	sensors := &heaterCheckingSensors{MockSensors: drivers.MockSensors{HeaterVoltage: 10}, heater: out}
	sensors.Setup(context.Background())

	shunt, err := h.Pulse(context.Background(), sensors)
	if err != nil {
		t.Fatalf("Pulse returned err: %v", err)
	}
	assertBools(t, sensors.heaterOn, true)
	if shunt.HeaterVoltage < 9.999 || shunt.HeaterVoltage > 10.001 {
		t.Errorf("got %f want 10", shunt.HeaterVoltage)
	}

	state, _ := out.GetState()
	assertBools(t, state, false)
}

func TestHeaterPulseOffOnError(t *testing.T) {
	h, md := newTestHeater(t)
	out, _ := md.GetOutput(4)
	readErr := errors.New("bus stuck")
	sensors := &heaterCheckingSensors{heater: out, err: readErr}

	_, err := h.Pulse(context.Background(), sensors)
	if !errors.Is(err, readErr) {
		t.Errorf("got %v want read error", err)
	}

	state, _ := out.GetState()
	assertBools(t, state, false)
}

func TestHeaterPulseCancelled(t *testing.T) {
	h, md := newTestHeater(t)
	out, _ := md.GetOutput(4)
	sensors := &heaterCheckingSensors{heater: out}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Pulse(ctx, sensors)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v want context.Canceled", err)
	}
	state, _ := out.GetState()
	assertBools(t, state, false)
}

func TestHeaterNotInitialised(t *testing.T) {
	h := &Heater{}
	_, err := h.Pulse(context.Background(), &drivers.MockSensors{})
	if err == nil {
		t.Error("got nil error from uninitialised heater")
	}
}
