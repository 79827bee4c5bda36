package drivers

import (
	"fmt"
	"io"
)

type MockOutput struct {
	state            bool
	pin              uint16
	switches         int
	writeTo          io.Writer
	writeStateChange bool
}

func (mo *MockOutput) GetState() (bool, error) {
	return mo.state, nil
}

func (mo *MockOutput) Set(state bool) error {
	if state != mo.state {
		mo.switches++
		if mo.writeStateChange {
			fmt.Fprintf(mo.writeTo, "[pin %d] state changed to %v\n", mo.pin, state)
		}
	}
	mo.state = state
	return nil
}

// Switches counts the state changes since Setup.
func (mo *MockOutput) Switches() int {
	return mo.switches
}

type MockIoDriver struct {
	outputs []*MockOutput
	ready   bool
}

func (md *MockIoDriver) Setup(outputs []uint16) error {
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

func (md *MockIoDriver) Close() error {
	for _, out := range md.outputs {
		out.Set(false)
	}
	md.ready = false
	return nil
}

func (md *MockIoDriver) String() string {
	return "mock_driver"
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetAllOutputs() (outputs []uint16) {
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.writeTo = writer
		out.writeStateChange = true
	}
}
