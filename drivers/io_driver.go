package drivers

// OutputDriver switches the digital outputs the heater pulse is wired to.
type OutputDriver interface {
	Setup(outputs []uint16) error
	Close() error
	String() string
	IsReady() bool
	GetOutput(pin uint16) (DigitalOutput, error)
	GetAllOutputs() []uint16
}

func MapAllOutputDrivers() map[string]OutputDriver {
	drivers := []OutputDriver{
		&GpIO{},
		&McpIO{},
		&MockIoDriver{},
	}

	mapped := make(map[string]OutputDriver)
	for _, driver := range drivers {
		mapped[driver.String()] = driver
	}
	return mapped
}

type DigitalOutput interface {
	GetState() (bool, error)
	Set(bool) error
}
