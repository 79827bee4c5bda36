package drivers

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
)

const (
	adsRegConversion byte = 0x00
	adsRegConfig     byte = 0x01

	adsConfigStart      uint16 = 1 << 15
	adsConfigSingleShot uint16 = 1 << 8

	adsPairShift  = 12
	adsRangeShift = 9
	adsRateShift  = 5

	defaultSampleRate  = 128
	defaultPollTimeout = 100 * time.Millisecond
	adsPollInterval    = time.Millisecond
)

var (
	ErrInvalidSampleRate = errors.New("unsupported sample rate")
	ErrConversionTimeout = errors.New("conversion did not complete")
)

// InputPair selects the positive and negative converter inputs.
type InputPair uint16

const (
	PairAin0Ain1 InputPair = iota
	PairAin0Ain3
	PairAin1Ain3
	PairAin2Ain3
	PairAin0Gnd
	PairAin1Gnd
	PairAin2Gnd
	PairAin3Gnd
)

// FullScaleRange is the programmable gain setting of the converter.
type FullScaleRange uint16

const (
	Range6V144 FullScaleRange = iota
	Range4V096
	Range2V048
	Range1V024
	Range0V512
	Range0V256
)

var rangeVolts = map[FullScaleRange]float64{
	Range6V144: 6.144,
	Range4V096: 4.096,
	Range2V048: 2.048,
	Range1V024: 1.024,
	Range0V512: 0.512,
	Range0V256: 0.256,
}

// Volts returns the maximum magnitude the range can represent.
func (fsr FullScaleRange) Volts() float64 {
	return rangeVolts[fsr]
}

var sampleRateCodes = map[int]uint16{
	8:   0b000,
	16:  0b001,
	32:  0b010,
	64:  0b011,
	128: 0b100,
	250: 0b101,
	475: 0b110,
	860: 0b111,
}

// Ads1115 runs single-shot differential conversions on an ADS1115.
type Ads1115 struct {
	dev        i2c.Dev
	sampleRate int

	// PollTimeout bounds the completion poll after the expected conversion time.
	PollTimeout time.Duration

	sleep func(context.Context, time.Duration) error
}

func NewAds1115(bus i2c.Bus, addr uint16) *Ads1115 {
	return &Ads1115{
		dev:         i2c.Dev{Bus: bus, Addr: addr},
		sampleRate:  defaultSampleRate,
		PollTimeout: defaultPollTimeout,
		sleep:       SleepContext,
	}
}

func (ads *Ads1115) SampleRate() int {
	return ads.sampleRate
}

// SetSampleRate accepts one of 8, 16, 32, 64, 128, 250, 475 or 860 samples per
// second. Other values leave the current rate unchanged.
func (ads *Ads1115) SetSampleRate(sps int) error {
	if _, ok := sampleRateCodes[sps]; !ok {
		return errors.Wrapf(ErrInvalidSampleRate, "%d sps", sps)
	}
	ads.sampleRate = sps
	return nil
}

func (ads *Ads1115) configWord(pair InputPair, fsr FullScaleRange) uint16 {
	word := adsConfigStart
	word |= uint16(pair&0b111) << adsPairShift
	word |= uint16(fsr&0b111) << adsRangeShift
	word |= adsConfigSingleShot
	word |= sampleRateCodes[ads.sampleRate] << adsRateShift
	return word
}

// conversionTime is how long a single conversion takes at the current rate.
func (ads *Ads1115) conversionTime() time.Duration {
	return time.Duration(1000/ads.sampleRate+1) * time.Millisecond
}

// Read triggers one single-shot conversion of pair and returns the signed result.
// It blocks for the conversion time, then polls the busy flag every millisecond
// until it clears or PollTimeout runs out.
func (ads *Ads1115) Read(ctx context.Context, pair InputPair, fsr FullScaleRange) (int16, error) {
	err := ads.writeRegister(adsRegConfig, ads.configWord(pair, fsr))
	if err != nil {
		return 0, errors.Wrap(err, "failed to start conversion")
	}

	err = ads.sleep(ctx, ads.conversionTime())
	if err != nil {
		return 0, err
	}

	maxPolls := int(ads.PollTimeout / adsPollInterval)
	for polls := 0; ; polls++ {
		config, err := ads.readRegister(adsRegConfig)
		if err != nil {
			return 0, errors.Wrap(err, "failed to poll conversion status")
		}
		if config&adsConfigStart != 0 {
			break
		}
		if polls >= maxPolls {
			return 0, errors.Wrapf(ErrConversionTimeout, "still busy after %v", ads.conversionTime()+ads.PollTimeout)
		}

		err = ads.sleep(ctx, adsPollInterval)
		if err != nil {
			return 0, err
		}
	}

	raw, err := ads.readRegister(adsRegConversion)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read conversion result")
	}

	return int16(raw), nil
}

func (ads *Ads1115) writeRegister(reg byte, val uint16) error {
	w := []byte{reg, 0, 0}
	binary.BigEndian.PutUint16(w[1:], val)
	return ads.dev.Tx(w, nil)
}

func (ads *Ads1115) readRegister(reg byte) (uint16, error) {
	r := make([]byte, 2)
	err := ads.dev.Tx([]byte{reg}, r)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r), nil
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
