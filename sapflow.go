package sapflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/hubertat/sapflow/drivers"
	"github.com/hubertat/sapflow/mqtt"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "sapflow"
const homeKitBridgeAuthor = "github.com/hubertat"
const defaultMqttTopic = "sapflow"

// SapFlow is one sensor head with its probes, optional heater and outputs.
// The exported fields are filled from the JSON config file.
type SapFlow struct {
	Name string

	Probes []*Probe
	Heater *Heater

	Ribbon    *drivers.RibbonSensors
	FakeBoard *drivers.MockSensors

	Gpio       *drivers.GpIO
	Mcp23017   *drivers.McpIO
	FakeDriver *drivers.MockIoDriver

	MqttBroker string
	MqttTopic  string
	Influx     *InfluxSink

	HttpAddr string

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	sensors    drivers.SensorDriver
	outDrivers map[string]drivers.OutputDriver
	sinks      []Sink
	logger     *log.Logger

	// boardLock serialises whole measurement cycles on the shared bus
	boardLock sync.Mutex
	lastLock  sync.RWMutex
	last      Measurement
}

func (sf *SapFlow) getLogger() *log.Logger {
	if sf.logger == nil {
		sf.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "sapflow",
			Level:  log.GetLevel(),
		})
	}
	return sf.logger
}

func (sf *SapFlow) getName() string {
	if len(sf.Name) == 0 {
		return homeKitBridgeName
	}
	return sf.Name
}

// InitDrivers sets up the sensor driver and, when a heater is configured, the
// output driver it is wired to.
func (sf *SapFlow) InitDrivers(ctx context.Context) error {
	switch {
	case sf.Ribbon != nil:
		sf.sensors = sf.Ribbon
	case sf.FakeBoard != nil:
		sf.sensors = sf.FakeBoard
	default:
		return errors.New("no sensor driver configured (Ribbon or FakeBoard)")
	}

	err := sf.sensors.Setup(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to setup %s sensor driver", sf.sensors.Name())
	}

	sf.outDrivers = make(map[string]drivers.OutputDriver)
	if sf.Gpio != nil {
		sf.outDrivers[sf.Gpio.String()] = sf.Gpio
	}
	if sf.Mcp23017 != nil {
		sf.outDrivers[sf.Mcp23017.String()] = sf.Mcp23017
	}
	if sf.FakeDriver != nil {
		sf.outDrivers[sf.FakeDriver.String()] = sf.FakeDriver
	}

	if sf.Heater == nil {
		return nil
	}

	driver, driverFound := sf.outDrivers[sf.Heater.GetDriverName()]
	if !driverFound {
		if _, known := drivers.MapAllOutputDrivers()[sf.Heater.GetDriverName()]; known {
			return errors.Errorf("heater driver %s not configured", sf.Heater.GetDriverName())
		}
		return errors.Errorf("unknown heater driver %q", sf.Heater.GetDriverName())
	}

	err = driver.Setup([]uint16{sf.Heater.Pin})
	if err != nil {
		return errors.Wrapf(err, "failed to setup %s driver", driver)
	}

	return errors.Wrap(sf.Heater.Init(driver), "failed to init heater")
}

// InitProbes validates the probe list and prepares their HomeKit accessories.
func (sf *SapFlow) InitProbes() error {
	if len(sf.Probes) == 0 {
		return errors.New("no probes configured")
	}

	ids := make(map[string]bool)
	indexes := make(map[int]bool)
	for _, probe := range sf.Probes {
		err := probe.Validate()
		if err != nil {
			return err
		}
		if ids[probe.Id] {
			return errors.Errorf("duplicate probe id %s", probe.Id)
		}
		if indexes[probe.Index] {
			return errors.Errorf("duplicate probe index %d (%s)", probe.Index, probe.Id)
		}
		ids[probe.Id] = true
		indexes[probe.Index] = true

		probe.InitHk()
	}

	return nil
}

// InitSinks connects the configured outputs. MQTT and Influx are both optional.
// A failing sink doesn't stop the others from being set up.
func (sf *SapFlow) InitSinks(ctx context.Context) (err error) {
	if sf.Influx != nil {
		influxErr := sf.Influx.Setup(sf.getName())
		if influxErr == nil {
			sf.AddSink(sf.Influx)
		} else {
			err = multierr.Append(err, errors.Wrap(influxErr, "failed to setup influx sink"))
		}
	}

	if len(sf.MqttBroker) > 0 {
		err = multierr.Append(err, sf.initMqttSink(ctx))
	}

	return
}

func (sf *SapFlow) initMqttSink(ctx context.Context) error {
	mc, err := mqtt.NewMqttClient(sf.MqttBroker, sf.getName())
	if err != nil {
		return errors.Wrap(err, "failed to create mqtt client")
	}

	err = mc.Connect(ctx)
	if err != nil {
		// stop the connection manager retrying in the background
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		mc.Disconnect(disconnectCtx)
		return errors.Wrap(err, "failed to connect to mqtt broker")
	}

	topic := sf.MqttTopic
	if len(topic) == 0 {
		topic = defaultMqttTopic
	}
	sf.AddSink(&MqttSink{topic: topic, publisher: mc, client: mc})
	return nil
}

func (sf *SapFlow) AddSink(sink Sink) {
	sf.sinks = append(sf.sinks, sink)
}

// StartTicker measures and publishes every interval until ctx is done.
func (sf *SapFlow) StartTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		sf.getLogger().Error("ticker not started, interval has to be positive", "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sf.measureAndPublish(ctx)
		}
	}
}

func (sf *SapFlow) measureAndPublish(ctx context.Context) {
	m, err := sf.Measure(ctx)
	if err != nil {
		sf.getLogger().Error("measurement incomplete", "err", err)
	}
	if len(m.Temperatures) == 0 && m.Shunt == nil {
		return
	}

	err = sf.Publish(ctx, m)
	if err != nil {
		sf.getLogger().Error("failed to publish measurement", "err", err)
	}
}

func (sf *SapFlow) Close() (err error) {
	for _, sink := range sf.sinks {
		err = multierr.Append(err, sink.Close())
	}
	for _, driver := range sf.outDrivers {
		if driver.IsReady() {
			err = multierr.Append(err, driver.Close())
		}
	}
	if sf.sensors != nil {
		err = multierr.Append(err, sf.sensors.Close())
	}

	return
}

func (sf *SapFlow) PrintStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== sapflow ===")
	if sf.sensors != nil {
		fmt.Fprintf(writer, "| sensors: %s (ready: %v)\n", sf.sensors.Name(), sf.sensors.IsReady())
	}
	if sf.Ribbon != nil && sf.Ribbon.Board() != nil {
		board := sf.Ribbon.Board()
		addrs := board.Addresses()
		fmt.Fprintf(writer, "| board: ads1115 %d, tca9534 %d, eeprom %d, %d sps\n", addrs.Converter, addrs.Mux, addrs.Store, board.SampleRate())
	}
	fmt.Fprintln(writer, "| probes:")
	for _, probe := range sf.Probes {
		fmt.Fprintf(writer, "|   %s (%s) index %d\n", probe.Id, probe.Name, probe.Index)
	}
	if sf.Heater != nil {
		fmt.Fprintf(writer, "| heater: %s pin %d, pulse %v\n", sf.Heater.DriverName, sf.Heater.Pin, sf.Heater.pulse)
	}
	fmt.Fprint(writer, "| sinks: ")
	for _, sink := range sf.sinks {
		fmt.Fprintf(writer, "%s, ", sink.Name())
	}
	fmt.Fprintln(writer)
}
