package sapflow

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hubertat/sapflow/conversion"
	"github.com/hubertat/sapflow/drivers"
)

const defaultPulseDuration = 3 * time.Second

// Heater is the needle heater switched through an output driver. Each
// measurement fires one pulse and samples the shunt while it is on.
type Heater struct {
	DriverName    string
	Pin           uint16
	PulseDuration string

	pulse time.Duration
	out   drivers.DigitalOutput
	sleep func(context.Context, time.Duration) error
}

func (h *Heater) GetDriverName() string {
	return h.DriverName
}

func (h *Heater) Init(driver drivers.OutputDriver) (err error) {
	if !driver.IsReady() {
		return errors.Errorf("heater output driver %s not ready", driver)
	}

	h.pulse = defaultPulseDuration
	if len(h.PulseDuration) > 0 {
		h.pulse, err = time.ParseDuration(h.PulseDuration)
		if err != nil {
			return errors.Wrapf(err, "failed to parse heater PulseDuration %q", h.PulseDuration)
		}
	}

	h.out, err = driver.GetOutput(h.Pin)
	if err != nil {
		return errors.Wrapf(err, "heater output pin %d", h.Pin)
	}

	if h.sleep == nil {
		h.sleep = drivers.SleepContext
	}

	return h.out.Set(false)
}

// Pulse switches the heater on for the pulse duration, reads the shunt at the
// end of it and switches the heater off again, also on failure.
func (h *Heater) Pulse(ctx context.Context, sensors drivers.SensorDriver) (shunt conversion.Shunt, err error) {
	if h.out == nil {
		return shunt, errors.New("heater not initialised")
	}

	err = h.out.Set(true)
	if err != nil {
		return shunt, errors.Wrap(err, "failed to switch heater on")
	}
	defer func() {
		offErr := h.out.Set(false)
		if offErr != nil && err == nil {
			err = errors.Wrap(offErr, "failed to switch heater off")
		}
	}()

	err = h.sleep(ctx, h.pulse)
	if err != nil {
		return
	}

	shunt, err = sensors.ReadShunt(ctx)
	if err != nil {
		err = errors.Wrap(err, "failed to read heater shunt")
	}
	return
}
