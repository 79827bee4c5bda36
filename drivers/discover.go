package drivers

import (
	"io"

	"github.com/charmbracelet/log"
	"periph.io/x/conn/v3/i2c"
)

// Address windows selectable by the solder jumpers on the board.
var (
	converterAddrRange = addrRange{first: 72, last: 73}
	muxAddrRange       = addrRange{first: 32, last: 39}
	storeAddrRange     = addrRange{first: 80, last: 87}
)

type addrRange struct {
	first, last uint16
}

// scan returns the first address in the range that acknowledges a one byte
// read, or 0.
func (ar addrRange) scan(bus i2c.Bus) uint16 {
	for addr := ar.first; addr <= ar.last; addr++ {
		if bus.Tx(addr, nil, make([]byte, 1)) == nil {
			return addr
		}
	}
	return 0
}

// FindRibbonBoard scans bus for the converter, the mux controller and the
// EEPROM. Roles that don't answer are left at 0, which makes the returned
// board invalid.
func FindRibbonBoard(bus i2c.Bus, logger *log.Logger) *RibbonBoard {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	addrs := Addresses{
		Converter: converterAddrRange.scan(bus),
		Mux:       muxAddrRange.scan(bus),
		Store:     storeAddrRange.scan(bus),
	}

	logFound(logger, "ADS1115", addrs.Converter)
	logFound(logger, "TCA9534", addrs.Mux)
	logFound(logger, "EEPROM", addrs.Store)

	if addrs.Valid() {
		logger.Info("ribbon board found", "bus", bus.String())
	} else {
		logger.Error("no ribbon board found", "bus", bus.String())
	}

	return NewRibbonBoard(bus, addrs, logger)
}

func logFound(logger *log.Logger, device string, addr uint16) {
	if addr == 0 {
		logger.Warn("device not found", "device", device)
		return
	}
	logger.Info("device found", "device", device, "addr", addr)
}
