package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hubertat/sapflow"
	"github.com/hubertat/sapflow/drivers"
)

var (
	Version string
	Build   string
)

func main() {
	log.SetLevel(log.DebugLevel)
	log.Info("sapflow started")
	log.Info("mock instance for testing puproses, no board needed")

	syncDuration := 5 * time.Second
	log.Info("measuring", "every", syncDuration)

	sf := &sapflow.SapFlow{
		Name:     "sapflow mock",
		HkPin:    "88008800",
		HttpAddr: "localhost:8088",
	}

	sf.Probes = []*sapflow.Probe{
		{Id: "upper-inner", Name: "upper ribbon inner", Index: 0},
		{Id: "upper-outer", Name: "upper ribbon outer", Index: 4},
		{Id: "lower-inner", Name: "lower ribbon inner", Index: 5},
		{Id: "lower-outer", Name: "lower ribbon outer", Index: 9},
	}
	sf.Heater = &sapflow.Heater{DriverName: "mock_driver", Pin: 1, PulseDuration: "500ms"}
	sf.FakeBoard = &drivers.MockSensors{
		Temperatures:  map[int]float64{0: 18.5, 4: 18.1, 5: 17.9, 9: 17.6},
		HeaterVoltage: 11.8,
	}
	sf.FakeDriver = &drivers.MockIoDriver{}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("will init sapflow drivers...")
	err := sf.InitDrivers(ctx)
	defer sf.Close()
	if err != nil {
		panic(err)
	}
	log.Info("will init probes...")
	err = sf.InitProbes()
	if err != nil {
		panic(err)
	}

	sf.FakeDriver.MonitorStateChanges(os.Stdout)
	sf.PrintStatus(os.Stdout)

	go func() {
		log.Error("http api stopped", "err", sf.StartHttp())
	}()
	go sf.StartTicker(ctx, syncDuration)

	log.Info("starting mock with HomeKit service")
	sf.HkDirectory = "./mock_homekit"
	log.Fatal(sf.StartHomeKit(ctx, "mock: "+Version))
}
