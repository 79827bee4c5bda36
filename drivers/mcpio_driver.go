package drivers

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/racerxdl/go-mcp23017"
)

const mcpioDriverName = "mcpio"

// McpIO drives heater outputs through an MCP23017 expander, for setups where
// the heater MOSFET hangs off the same I²C bus as the sensor head.
type McpIO struct {
	device *mcp23017.Device

	outputs []McpOutput
	isReady bool

	BusNo         uint8
	DevNo         uint8
	InvertOutputs bool
}

type McpOutput struct {
	pin    uint8
	invert bool

	device *mcp23017.Device
}

func (mout *McpOutput) GetState() (state bool, err error) {
	rawState, err := mout.device.DigitalRead(mout.pin)
	if err != nil {
		return
	}

	if mout.invert {
		state = !bool(rawState)
	} else {
		state = bool(rawState)
	}
	return
}

func (mout *McpOutput) Set(state bool) (err error) {
	if mout.invert {
		state = !state
	}

	err = mout.device.DigitalWrite(mout.pin, mcp23017.PinLevel(state))

	return
}

func (mcp *McpIO) String() string {
	return mcpioDriverName
}

func (mcp *McpIO) IsReady() bool {
	return mcp.isReady
}

func (mcp *McpIO) Setup(outputs []uint16) (err error) {
	mcp.device, err = mcp23017.Open(mcp.BusNo, mcp.DevNo)
	if err != nil {
		return errors.Wrapf(err, "failed to open mcp23017 on bus %d dev %d", mcp.BusNo, mcp.DevNo)
	}

	for _, outputPin := range outputs {
		if outputPin > 15 {
			return errors.Errorf("output pin %d out of range (mcp23017 has 16 pins)", outputPin)
		}
		err = mcp.device.PinMode(uint8(outputPin), mcp23017.OUTPUT)
		if err != nil {
			return errors.Wrapf(err, "failed to set pin %d as output", outputPin)
		}
		out := McpOutput{pin: uint8(outputPin), invert: mcp.InvertOutputs, device: mcp.device}
		err = out.Set(false)
		if err != nil {
			return errors.Wrapf(err, "failed to switch pin %d off", outputPin)
		}
		mcp.outputs = append(mcp.outputs, out)
	}

	mcp.isReady = true

	return
}

func (mcp *McpIO) GetOutput(id uint16) (output DigitalOutput, err error) {
	for i := range mcp.outputs {
		if mcp.outputs[i].pin == uint8(id) {
			output = &mcp.outputs[i]
			return
		}
	}

	err = fmt.Errorf("McpIO Output (id: %d) not found", id)
	return
}

func (mcp *McpIO) Close() error {
	if mcp.device == nil {
		return nil
	}
	mcp.isReady = false
	for _, output := range mcp.outputs {
		output.Set(false)
	}
	return mcp.device.Close()
}

func (mcp *McpIO) GetAllOutputs() (outputs []uint16) {
	for _, output := range mcp.outputs {
		outputs = append(outputs, uint16(output.pin))
	}

	return
}
