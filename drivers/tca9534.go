package drivers

import (
	"periph.io/x/conn/v3/i2c"
)

const (
	tcaRegOutput byte = 0x01
	tcaRegConfig byte = 0x03
)

// Tca9534 is the 8 bit I/O expander whose P0..P3 drive the analog mux S0..S3.
type Tca9534 struct {
	dev i2c.Dev
}

func NewTca9534(bus i2c.Bus, addr uint16) *Tca9534 {
	return &Tca9534{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// Setup drives every pin low and switches them all to outputs.
func (tca *Tca9534) Setup() error {
	err := tca.SetOutput(0)
	if err != nil {
		return err
	}
	return tca.dev.Tx([]byte{tcaRegConfig, 0x00}, nil)
}

func (tca *Tca9534) SetOutput(val byte) error {
	return tca.dev.Tx([]byte{tcaRegOutput, val}, nil)
}
