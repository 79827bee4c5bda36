package sapflow

import (
	"fmt"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/pkg/errors"

	"github.com/hubertat/sapflow/conversion"
	"github.com/hubertat/sapflow/drivers"
)

const oldDataDuration = 10 * time.Minute

// Probe is one thermistor on a ribbon, addressed by its board index (0..9).
type Probe struct {
	Id    string
	Name  string
	Index int

	value         float64
	lastSync      time.Time
	hkA           *accessory.Thermometer
	hkStatusFault *characteristic.StatusFault
}

func (p *Probe) Validate() error {
	if len(p.Id) == 0 {
		return errors.Errorf("probe with index %d has no Id", p.Index)
	}
	_, err := drivers.ThermistorSelection(p.Index)
	if err != nil {
		return errors.Wrapf(err, "probe %s", p.Id)
	}
	return nil
}

func (p *Probe) InitHk() {
	name := p.Name
	if len(name) == 0 {
		name = p.Id
	}
	info := accessory.Info{
		Name:         name,
		SerialNumber: fmt.Sprintf("ribbon_probe:%d:%s", p.Index, p.Id),
	}
	p.hkA = accessory.NewTemperatureSensor(info)
	p.hkA.TempSensor.CurrentTemperature.SetMinValue(conversion.DefaultTable.MinTemperature())
	p.hkA.TempSensor.CurrentTemperature.SetMaxValue(conversion.DefaultTable.MaxTemperature())
	p.hkStatusFault = characteristic.NewStatusFault()
	p.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)
	p.hkA.TempSensor.AddC(p.hkStatusFault.C)
}

// SyncHk pushes the current value to HomeKit, flagging a fault when it is
// missing or stale.
func (p *Probe) SyncHk() error {
	if p.hkA == nil {
		return nil
	}

	val, err := p.GetValue()
	if err == nil {
		p.hkStatusFault.SetValue(characteristic.StatusFaultNoFault)
		p.hkA.TempSensor.CurrentTemperature.SetValue(val)
		return nil
	}

	p.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)
	return errors.Wrap(err, "failed to sync probe with HomeKit")
}

func (p *Probe) GetHk() *accessory.A {
	if p.hkA == nil {
		return nil
	}
	return p.hkA.A
}

func (p *Probe) GetValue() (value float64, err error) {
	if p.lastSync.IsZero() {
		err = errors.Errorf("cannot get probe %s value, never synced", p.Id)
		return
	}

	if time.Since(p.lastSync) > oldDataDuration {
		err = errors.Errorf("cannot get value of probe %s, data is too old (%v old)", p.Id, time.Since(p.lastSync))
		return
	}

	value = p.value
	return
}

func (p *Probe) SetValue(val float64, at time.Time) {
	p.value = val
	p.lastSync = at
}
