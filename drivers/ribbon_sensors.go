package drivers

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/hubertat/sapflow/conversion"
)

const ribbonSensorDriverName = "ribbon"

// RibbonSensors reads a ribbon board on a host I²C bus. With all addresses
// left at zero the board is found by scanning the bus.
type RibbonSensors struct {
	// BusName as understood by i2creg, empty for the first bus.
	BusName     string
	SampleRate  int
	PollTimeout string

	Converter uint16
	Mux       uint16
	Store     uint16

	bus    i2c.BusCloser
	board  *RibbonBoard
	logger *log.Logger
	ready  bool
}

func (rs *RibbonSensors) Name() string {
	return ribbonSensorDriverName
}

func (rs *RibbonSensors) IsReady() bool {
	return rs.ready
}

// Board returns the underlying driver, nil before Setup.
func (rs *RibbonSensors) Board() *RibbonBoard {
	return rs.board
}

func (rs *RibbonSensors) Setup(ctx context.Context) (err error) {
	rs.logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "ribbon",
		Level:  log.GetLevel(),
	})

	_, err = host.Init()
	if err != nil {
		return errors.Wrap(err, "failed to init periph host drivers")
	}

	rs.bus, err = i2creg.Open(rs.BusName)
	if err != nil {
		return errors.Wrapf(err, "failed to open i2c bus %q", rs.BusName)
	}

	return rs.setupBoard(rs.bus)
}

func (rs *RibbonSensors) setupBoard(bus i2c.Bus) error {
	if rs.logger == nil {
		rs.logger = log.Default()
	}

	addrs := Addresses{Converter: rs.Converter, Mux: rs.Mux, Store: rs.Store}
	if addrs == (Addresses{}) {
		rs.board = FindRibbonBoard(bus, rs.logger)
	} else {
		rs.board = NewRibbonBoard(bus, addrs, rs.logger)
	}

	if rs.SampleRate != 0 {
		err := rs.board.SetSampleRate(rs.SampleRate)
		if err != nil {
			return err
		}
	}

	if len(rs.PollTimeout) > 0 {
		timeout, err := time.ParseDuration(rs.PollTimeout)
		if err != nil {
			return errors.Wrapf(err, "failed to parse PollTimeout %q", rs.PollTimeout)
		}
		rs.board.Converter().PollTimeout = timeout
	}

	err := rs.board.Setup()
	if err != nil {
		return errors.Wrapf(err, "failed to setup ribbon board %+v", rs.board.Addresses())
	}

	rs.ready = true
	return nil
}

func (rs *RibbonSensors) Close() error {
	rs.ready = false
	if rs.bus == nil {
		return nil
	}
	return rs.bus.Close()
}

func (rs *RibbonSensors) ReadThermistor(ctx context.Context, index int) (float64, error) {
	if rs.board == nil {
		return 0, ErrBoardInvalid
	}
	return rs.board.ReadThermistor(ctx, index)
}

func (rs *RibbonSensors) ReadShunt(ctx context.Context) (conversion.Shunt, error) {
	if rs.board == nil {
		return conversion.Shunt{}, ErrBoardInvalid
	}
	return rs.board.ReadShunt(ctx)
}
