package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/gr-butler/plantmon/buttons"
	"github.com/gr-butler/plantmon/cloud"
	"github.com/gr-butler/plantmon/config"
	"github.com/gr-butler/plantmon/db/postgres"
	"github.com/gr-butler/plantmon/display"
	"github.com/gr-butler/plantmon/env"
	"github.com/gr-butler/plantmon/led"
	"github.com/gr-butler/plantmon/pub"
	"github.com/gr-butler/plantmon/sensors"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const version = "plantmon-1.0.2"

var Prom_soilMoisture = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "soil_moisture_raw",
		Help: "Raw soil moisture count from the ADC (higher = drier)",
	},
)

var Prom_temperature = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "temperature",
		Help: "Temperature C",
	},
)

var Prom_humidity = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "relative_humidity",
		Help: "Relative Humidity",
	},
)

var Prom_cloudPosts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "cloud_posts",
		Help: "Accepted cloud channel updates",
	},
)

var Prom_cloudPostFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "cloud_post_failures",
		Help: "Rejected or failed cloud channel updates",
	},
)

// called by prometheus
func init() {
	logger.Infof("%v: Initialize prometheus...", time.Now().Format(time.RFC822))
	prometheus.MustRegister(
		Prom_soilMoisture,
		Prom_temperature,
		Prom_humidity,
		Prom_cloudPosts,
		Prom_cloudPostFailures)
}

func main() {
	logger.Infof("Starting plant monitor [%v]", version)

	configPath := flag.String("config", "plantmon.yaml", "path to the configuration file")
	testMode := flag.Bool("test", false, "test mode, does not send cloud data")
	flag.Parse()

	if *testMode {
		logger.Info("TEST MODE")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("Failed to load configuration [%v]", err)
		logger.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("Bad configuration [%v]", err)
		logger.Exit(1)
	}
	logger.Infof("Loaded %v plant profiles", len(cfg.Profiles))

	logger.Infof("%v: Initialize hardware...", time.Now().Format(time.RFC822))
	if _, err := host.Init(); err != nil {
		logger.Errorf("Failed to init host [%v]", err)
		logger.Exit(1)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		logger.Errorf("failed to open I²C: %v", err)
		logger.Exit(1)
	}
	defer bus.Close()

	lcd, err := display.NewLCD(bus)
	if err != nil {
		logger.Errorf("Failed to initialise display!! [%v]", err)
		logger.Exit(1)
	}

	up, err := buttons.NewButton("up", env.ButtonUpIn, env.DebounceWindow)
	if err != nil {
		logger.Errorf("Failed to initialise buttons!! [%v]", err)
		logger.Exit(1)
	}
	down, err := buttons.NewButton("down", env.ButtonDownIn, env.DebounceWindow)
	if err != nil {
		logger.Errorf("Failed to initialise buttons!! [%v]", err)
		logger.Exit(1)
	}
	sel, err := buttons.NewButton("select", env.ButtonSelectIn, env.DebounceWindow)
	if err != nil {
		logger.Errorf("Failed to initialise buttons!! [%v]", err)
		logger.Exit(1)
	}

	soil := sensors.NewSoil(bus)
	climate := sensors.NewClimate(bus)
	if soil == nil || climate == nil {
		logger.Error("Failed to initialise sensors!!")
		logger.Exit(1)
	}

	clock := clockwork.NewRealClock()

	s := &station{
		cfg:      cfg,
		soil:     soil,
		climate:  climate,
		lcd:      lcd,
		up:       up,
		down:     down,
		sel:      sel,
		cloud:    cloud.NewClient(cfg.Cloud, clock),
		act:      led.NewLED("Activity", env.ActivityLed),
		clock:    clock,
		testMode: *testMode,
	}

	if cfg.Database.DSN != "" {
		db, err := postgres.Open(cfg.Database.DSN)
		if err != nil {
			logger.Errorf("Failed to open readings db [%v]", err)
		} else {
			defer db.Close()
			if err := db.EnsureSchema(context.Background()); err != nil {
				logger.Errorf("Failed to ensure readings schema [%v]", err)
			} else {
				s.db = db
			}
		}
	}

	if cfg.Mqtt.Broker != "" {
		publisher, err := pub.New(cfg.Mqtt.Broker, cfg.Mqtt.ClientID, cfg.Mqtt.Topic)
		if err != nil {
			logger.Errorf("Failed to connect to mqtt broker [%v]", err)
		} else {
			defer publisher.Close()
			s.pub = publisher
		}
	}

	if cfg.Metrics.Addr != "" {
		logger.Info("Starting metrics endpoint...")
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			logger.Error(http.ListenAndServe(cfg.Metrics.Addr, nil))
		}()
	}

	st := appState{mode: ModeSelecting}
	if sel.Held() {
		logger.Info("Select held at power-on: calibration mode")
		st.mode = ModeCalibration
	}

	if !*testMode {
		s.draw(0, "Connecting...")
		if !s.cloud.Connect() {
			s.draw(1, "Connection failed")
		}
	}

	logger.Info("Starting control loop")
	for {
		st = s.tick(st)
		s.clock.Sleep(env.PollInterval)
	}
}
