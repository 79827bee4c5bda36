package drivers

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

var errNack = errors.New("i2c: no ack")

// fakeBus simulates the register maps of an ADS1115 and a TCA9534 and acks
// one byte reads on any other present address.
type fakeBus struct {
	present map[uint16]bool

	adsAddr uint16
	tcaAddr uint16

	// readings by mux word, for the thermistor pair
	muxRaw   map[byte]int16
	shuntRaw int16

	busyPolls int
	polls     int
	config    uint16
	configs   []uint16

	tcaOutput byte
	tcaConfig byte

	txCount int
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		present:   map[uint16]bool{72: true, 32: true, 80: true},
		adsAddr:   72,
		tcaAddr:   32,
		muxRaw:    map[byte]int16{},
		tcaConfig: 0xff,
	}
}

func (fb *fakeBus) String() string {
	return "fake"
}

func (fb *fakeBus) SetSpeed(f physic.Frequency) error {
	return nil
}

func (fb *fakeBus) Tx(addr uint16, w, r []byte) error {
	fb.txCount++
	if !fb.present[addr] {
		return errNack
	}

	switch addr {
	case fb.adsAddr:
		return fb.adsTx(w, r)
	case fb.tcaAddr:
		return fb.tcaTx(w, r)
	}
	return nil
}

func (fb *fakeBus) adsTx(w, r []byte) error {
	if len(w) == 3 && w[0] == adsRegConfig {
		fb.config = binary.BigEndian.Uint16(w[1:])
		fb.configs = append(fb.configs, fb.config)
		fb.polls = 0
		return nil
	}

	if len(w) == 1 && len(r) == 2 {
		switch w[0] {
		case adsRegConfig:
			fb.polls++
			status := fb.config &^ adsConfigStart
			if fb.polls > fb.busyPolls {
				status |= adsConfigStart
			}
			binary.BigEndian.PutUint16(r, status)
		case adsRegConversion:
			binary.BigEndian.PutUint16(r, uint16(fb.result()))
		}
		return nil
	}

	// bare probe read during discovery
	return nil
}

func (fb *fakeBus) result() int16 {
	pair := InputPair(fb.config>>adsPairShift) & 0b111
	if pair == shuntPair {
		return fb.shuntRaw
	}
	return fb.muxRaw[fb.tcaOutput]
}

func (fb *fakeBus) tcaTx(w, r []byte) error {
	if len(w) == 2 {
		switch w[0] {
		case tcaRegOutput:
			fb.tcaOutput = w[1]
		case tcaRegConfig:
			fb.tcaConfig = w[1]
		}
		return nil
	}
	if len(w) == 1 && w[0] == tcaRegOutput && len(r) == 1 {
		r[0] = fb.tcaOutput
	}
	return nil
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (sr *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	sr.sleeps = append(sr.sleeps, d)
	return ctx.Err()
}
