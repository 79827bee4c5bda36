package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"

	"github.com/hubertat/sapflow"
)

const defaultSyncInterval = "1m"

var (
	Version string
	Build   string

	config       = flag.String("config", "config.json", "path of the configuration file")
	flagInstall  = flag.Bool("install", false, "Install service in os")
	syncInterval = flag.String("sync", defaultSyncInterval, "measurement interval (time.Duration)")
	logLevel     = flag.String("loglevel", "info", "log level: debug, info, warn, error")

	sfService = servicemaker.ServiceMaker{
		User:               "sapflow",
		UserGroups:         []string{"gpio", "i2c"},
		ServicePath:        "/etc/systemd/system/sapflow.service",
		ServiceDescription: "SapFlow service: ribbon thermistor board sampler with heat pulse. github.com/hubertat/sapflow",
		ExecDir:            "/srv/sapflow",
		ExecName:           "sapflow",
	}
)

func main() {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal("bad log level", "level", *logLevel, "err", err)
	}
	log.SetLevel(level)
	log.Info("sapflow started", "version", Version, "build", Build)

	if *flagInstall {
		err := sfService.InstallService()
		if err != nil {
			panic(err)
		}
		log.Info("service installed!")
		return
	}

	syncDuration, err := time.ParseDuration(*syncInterval)
	if err != nil {
		panic(err)
	}
	if syncDuration <= 0 {
		log.Fatal("sync interval has to be positive", "sync", *syncInterval)
	}

	sf := &sapflow.SapFlow{}
	configFile, err := os.Open(*config)
	if err != nil {
		log.Fatal("can't find/open config file, will terminate", "path", *config, "err", err)
	}
	cBuff, err := io.ReadAll(configFile)
	configFile.Close()
	if err != nil {
		log.Fatal("failed reading config file", "err", err)
	}
	err = json.Unmarshal(cBuff, sf)
	if err != nil {
		log.Fatal("failed unmarshalling json config", "err", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("will init sapflow drivers...")
	err = sf.InitDrivers(ctx)
	defer sf.Close()
	if err != nil {
		log.Fatal("failed to init drivers", "err", err)
	}

	log.Info("will init probes...")
	err = sf.InitProbes()
	if err != nil {
		log.Fatal("failed to init probes", "err", err)
	}

	err = sf.InitSinks(ctx)
	if err != nil {
		log.Error("sinks not fully configured, we will proceed", "err", err)
	}

	sf.PrintStatus(os.Stdout)

	if len(sf.HttpAddr) > 0 {
		log.Info("starting http api", "addr", sf.HttpAddr)
		go func() {
			log.Error("http api stopped", "err", sf.StartHttp())
		}()
	}

	if len(sf.HkPin) == 8 {
		log.Info("starting with HomeKit server")
		go sf.StartTicker(ctx, syncDuration)
		err = sf.StartHomeKit(ctx, Version)
		if err != nil {
			log.Error("HomeKit server stopped", "err", err)
		}
		return
	}

	log.Info("HomeKit not configured, disabled")
	sf.StartTicker(ctx, syncDuration)
}
