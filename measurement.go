package sapflow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/hubertat/sapflow/conversion"
)

// Measurement is the result of one cycle: an optional heater pulse followed by
// a read of every configured probe.
type Measurement struct {
	Time         time.Time          `json:"time"`
	Temperatures map[string]float64 `json:"temperatures"`
	Shunt        *conversion.Shunt  `json:"shunt,omitempty"`
	Errors       []string           `json:"errors,omitempty"`
}

// Measure runs one cycle on the board. The board lock is held for the whole
// cycle, so mux selection and conversion of one probe are never interleaved
// with another caller. Probes that fail are left out of the result and
// reported in the returned error; the others are still read.
func (sf *SapFlow) Measure(ctx context.Context) (m Measurement, err error) {
	if sf.sensors == nil || !sf.sensors.IsReady() {
		return m, errors.New("sensor driver not ready")
	}

	sf.boardLock.Lock()
	defer sf.boardLock.Unlock()

	m = Measurement{Temperatures: make(map[string]float64)}

	if sf.Heater != nil {
		shunt, pulseErr := sf.Heater.Pulse(ctx, sf.sensors)
		if pulseErr == nil {
			m.Shunt = &shunt
		} else {
			err = multierr.Append(err, pulseErr)
		}
	}

	m.Time = time.Now()
	for _, probe := range sf.Probes {
		temp, readErr := sf.sensors.ReadThermistor(ctx, probe.Index)
		if readErr != nil {
			err = multierr.Append(err, errors.Wrapf(readErr, "probe %s", probe.Id))
			continue
		}
		probe.SetValue(temp, m.Time)
		m.Temperatures[probe.Id] = temp
	}

	for _, probe := range sf.Probes {
		hkErr := probe.SyncHk()
		if hkErr != nil {
			sf.getLogger().Debug("homekit sync", "err", hkErr)
		}
	}

	for _, e := range multierr.Errors(err) {
		m.Errors = append(m.Errors, e.Error())
	}

	sf.lastLock.Lock()
	sf.last = m
	sf.lastLock.Unlock()

	return
}

// LastMeasurement returns the latest completed cycle.
func (sf *SapFlow) LastMeasurement() Measurement {
	sf.lastLock.RLock()
	defer sf.lastLock.RUnlock()
	return sf.last
}

// Publish hands m to every sink, collecting their errors.
func (sf *SapFlow) Publish(ctx context.Context, m Measurement) (err error) {
	for _, sink := range sf.sinks {
		sinkErr := sink.Write(ctx, m)
		if sinkErr != nil {
			err = multierr.Append(err, errors.Wrapf(sinkErr, "sink %s", sink.Name()))
		}
	}
	return
}
