package drivers

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"

	"github.com/hubertat/sapflow/conversion"
)

const (
	// ProbeCount is the number of ribbons a board carries.
	ProbeCount = 2
	// ChannelsPerProbe is the number of thermistors on one ribbon.
	ChannelsPerProbe = 5
	// ThermistorCount is the number of valid thermistor indexes.
	ThermistorCount = ProbeCount * ChannelsPerProbe

	thermistorPair  = PairAin0Ain1
	thermistorRange = Range2V048
	shuntPair       = PairAin2Ain3
	shuntRange      = Range0V256
)

var (
	ErrBoardInvalid   = errors.New("ribbon board is not valid")
	ErrInvalidProbe   = errors.New("invalid probe number")
	ErrInvalidChannel = errors.New("invalid channel number")
	ErrInvalidIndex   = errors.New("invalid thermistor index")
)

// Addresses of the three devices on a ribbon board. Zero means not found.
type Addresses struct {
	Converter uint16
	Mux       uint16
	Store     uint16
}

const maxAddress = 0x7f

// Valid reports whether every device was found at a 7 bit address.
func (a Addresses) Valid() bool {
	for _, addr := range []uint16{a.Converter, a.Mux, a.Store} {
		if addr == 0 || addr > maxAddress {
			return false
		}
	}
	return true
}

// Selection is the mux channel last written to the board.
type Selection struct {
	Probe   int
	Channel int
}

// Word is the value written to the mux controller for this selection.
func (s Selection) Word() byte {
	return byte(s.Probe<<3 | s.Channel)
}

// RibbonBoard drives one sensor head: an ADS1115 measuring across either the
// mux common (thermistors) or the heater shunt, a TCA9534 selecting the mux
// channel and an EEPROM that is only checked for presence.
//
// The board is not safe for concurrent use. Selecting a channel and reading it
// are separate bus transactions, callers sharing a board must hold their own
// lock around each whole read.
type RibbonBoard struct {
	addrs  Addresses
	adc    *Ads1115
	mux    *Tca9534
	table  *conversion.Table
	logger *log.Logger

	selected    Selection
	hasSelected bool
}

// NewRibbonBoard returns a board for the given addresses. A nil logger discards
// diagnostics.
func NewRibbonBoard(bus i2c.Bus, addrs Addresses, logger *log.Logger) *RibbonBoard {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &RibbonBoard{
		addrs:  addrs,
		adc:    NewAds1115(bus, addrs.Converter),
		mux:    NewTca9534(bus, addrs.Mux),
		table:  conversion.DefaultTable,
		logger: logger,
	}
}

func (rb *RibbonBoard) Addresses() Addresses {
	return rb.addrs
}

func (rb *RibbonBoard) IsValid() bool {
	return rb.addrs.Valid()
}

// Converter exposes the ADS1115, e.g. to tune its PollTimeout.
func (rb *RibbonBoard) Converter() *Ads1115 {
	return rb.adc
}

// SetTable replaces the thermistor curve used for temperature reads.
func (rb *RibbonBoard) SetTable(table *conversion.Table) {
	rb.table = table
}

func (rb *RibbonBoard) SetSampleRate(sps int) error {
	err := rb.adc.SetSampleRate(sps)
	if err != nil {
		rb.logger.Warn("sample rate rejected", "sps", sps, "keeping", rb.adc.SampleRate())
	}
	return err
}

func (rb *RibbonBoard) SampleRate() int {
	return rb.adc.SampleRate()
}

// Selection returns the mux channel currently connected to the converter.
// ok is false until the first successful selection.
func (rb *RibbonBoard) Selection() (sel Selection, ok bool) {
	return rb.selected, rb.hasSelected
}

func (rb *RibbonBoard) checkValid() error {
	if !rb.IsValid() {
		rb.logger.Warn("ribbon board is not valid", "addresses", rb.addrs)
		return ErrBoardInvalid
	}
	return nil
}

// Setup drives the mux controller pins low and makes them outputs.
func (rb *RibbonBoard) Setup() error {
	if err := rb.checkValid(); err != nil {
		return err
	}

	err := rb.mux.Setup()
	if err != nil {
		return errors.Wrapf(err, "failed to setup mux controller at %d", rb.addrs.Mux)
	}

	rb.selected = Selection{}
	rb.hasSelected = true
	return nil
}

// SelectThermistor connects thermistor channel of ribbon probe to the
// converter. Any earlier reading of another channel is stale from here on.
func (rb *RibbonBoard) SelectThermistor(probe, channel int) error {
	if err := rb.checkValid(); err != nil {
		return err
	}

	if probe < 0 || probe >= ProbeCount {
		rb.logger.Warn("invalid probe number", "probe", probe)
		return errors.Wrapf(ErrInvalidProbe, "probe %d", probe)
	}
	if channel < 0 || channel >= ChannelsPerProbe {
		rb.logger.Warn("invalid channel number", "channel", channel)
		return errors.Wrapf(ErrInvalidChannel, "channel %d", channel)
	}

	sel := Selection{Probe: probe, Channel: channel}
	err := rb.mux.SetOutput(sel.Word())
	if err != nil {
		rb.hasSelected = false
		return errors.Wrapf(err, "failed to select probe %d channel %d", probe, channel)
	}

	rb.selected = sel
	rb.hasSelected = true
	return nil
}

// ThermistorSelection splits a thermistor index into ribbon and channel.
func ThermistorSelection(index int) (Selection, error) {
	if index < 0 || index >= ThermistorCount {
		return Selection{}, errors.Wrapf(ErrInvalidIndex, "index %d", index)
	}
	return Selection{Probe: index / ChannelsPerProbe, Channel: index % ChannelsPerProbe}, nil
}

// ReadThermistor selects thermistor index (0..9) and returns its temperature
// in °C. The mux stays on that channel afterwards.
func (rb *RibbonBoard) ReadThermistor(ctx context.Context, index int) (float64, error) {
	if err := rb.checkValid(); err != nil {
		return 0, err
	}

	sel, err := ThermistorSelection(index)
	if err != nil {
		rb.logger.Warn("invalid thermistor index", "index", index)
		return 0, err
	}

	err = rb.SelectThermistor(sel.Probe, sel.Channel)
	if err != nil {
		return 0, err
	}

	raw, err := rb.adc.Read(ctx, thermistorPair, thermistorRange)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read thermistor %d", index)
	}

	temp, err := rb.table.TemperatureFromRaw(raw, thermistorRange.Volts())
	if err != nil {
		rb.logger.Warn("couldn't find temperature in table", "index", index, "raw", raw)
		return 0, errors.Wrapf(err, "thermistor %d", index)
	}

	rb.logger.Debug("thermistor read", "index", index, "raw", raw, "temperature", temp)
	return temp, nil
}

// ReadShunt measures across the heater shunt resistor.
func (rb *RibbonBoard) ReadShunt(ctx context.Context) (conversion.Shunt, error) {
	if err := rb.checkValid(); err != nil {
		return conversion.Shunt{}, err
	}

	raw, err := rb.adc.Read(ctx, shuntPair, shuntRange)
	if err != nil {
		return conversion.Shunt{}, errors.Wrap(err, "failed to read shunt")
	}

	shunt := conversion.ShuntFromRaw(raw, shuntRange.Volts())
	rb.logger.Debug("shunt read", "raw", raw, "current", shunt.Current, "heater_voltage", shunt.HeaterVoltage)
	return shunt, nil
}

// ReadShuntVoltage returns the voltage across the heater, derived from the
// current through the shunt.
func (rb *RibbonBoard) ReadShuntVoltage(ctx context.Context) (float64, error) {
	shunt, err := rb.ReadShunt(ctx)
	if err != nil {
		return 0, err
	}
	return shunt.HeaterVoltage, nil
}
