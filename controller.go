package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"

	"github.com/gr-butler/plantmon/config"
	"github.com/gr-butler/plantmon/db/postgres"
	"github.com/gr-butler/plantmon/display"
	"github.com/gr-butler/plantmon/env"
	"github.com/gr-butler/plantmon/led"
	"github.com/gr-butler/plantmon/pub"
	"github.com/gr-butler/plantmon/sensors"
)

type Mode int

const (
	// ModeCalibration streams raw probe values for manual threshold
	// discovery. Entered only when select is held at power-on; terminal
	// for the run.
	ModeCalibration Mode = iota
	ModeSelecting
	ModeMonitoring
)

const (
	statusNeedsWater = "needs water"
	statusTooWet     = "too wet"
	statusIdeal      = "ideal"
)

// appState is the whole mutable controller state. tick takes and returns
// it; nothing else mutates it.
type appState struct {
	mode     Mode
	selected int
	lastPost time.Time
}

type soilReader interface {
	ReadRaw() (int, error)
}

type climateReader interface {
	Read() (sensors.TemperatureC, sensors.RelHumidity, error)
}

type poster interface {
	Connect() bool
	Post(p config.Profile, tempC float64, soilRaw int, humidity float64, status string) (int, error)
}

type pressInput interface {
	Pressed(now time.Time) bool
}

type recordWriter interface {
	WriteReading(ctx context.Context, p postgres.WriteReadingParams) error
}

type publisher interface {
	Publish(r pub.Reading) error
}

type station struct {
	cfg     *config.Config
	soil    soilReader
	climate climateReader
	lcd     display.Display
	up      pressInput
	down    pressInput
	sel     pressInput
	cloud   poster
	db      recordWriter // optional
	pub     publisher    // optional
	act     *led.LED
	clock   clockwork.Clock

	testMode bool
	drawn    [env.LcdRows]string
}

// classify maps a raw probe count onto the profile's calibration band.
// Higher counts mean drier soil; a value sitting exactly on a threshold
// counts as ideal.
func classify(raw int, p config.Profile) string {
	switch {
	case raw > p.DrySoil:
		return statusNeedsWater
	case raw < p.WetSoil:
		return statusTooWet
	default:
		return statusIdeal
	}
}

// tick runs one pass of the control loop and returns the next state.
func (s *station) tick(st appState) appState {
	now := s.clock.Now()

	switch st.mode {
	case ModeCalibration:
		s.calibrationTick()

	case ModeSelecting:
		n := len(s.cfg.Profiles)
		if s.up.Pressed(now) {
			st.selected = (st.selected - 1 + n) % n
		}
		if s.down.Pressed(now) {
			st.selected = (st.selected + 1) % n
		}
		if s.sel.Pressed(now) {
			logger.Infof("Monitoring [%v]", s.cfg.Profiles[st.selected].Name)
			st.mode = ModeMonitoring
			// the zero value forces a post on the next tick
			st.lastPost = time.Time{}
			return st
		}
		s.draw(0, "Select plant:")
		s.draw(1, "> "+s.cfg.Profiles[st.selected].Name)

	case ModeMonitoring:
		if s.sel.Pressed(now) {
			logger.Info("Back to plant selection")
			st.mode = ModeSelecting
			return st
		}
		if st.lastPost.IsZero() || now.Sub(st.lastPost) >= s.cfg.Cloud.PostInterval {
			if s.postCycle(s.cfg.Profiles[st.selected]) {
				st.lastPost = now
			}
		}
	}
	return st
}

// postCycle runs one read-classify-display-upload sequence and reports
// whether an upload was attempted. A failed sensor read aborts the cycle
// with nothing but a log line; the next tick tries again.
func (s *station) postCycle(p config.Profile) bool {
	tempC, humidity, err := s.climate.Read()
	if err != nil {
		logger.Errorf("Climate read failed, skipping cycle [%v]", err)
		return false
	}
	raw, err := s.soil.ReadRaw()
	if err != nil {
		logger.Errorf("Soil read failed, skipping cycle [%v]", err)
		return false
	}
	status := classify(raw, p)

	Prom_temperature.Set(tempC.Float64())
	Prom_humidity.Set(humidity.Float64())
	Prom_soilMoisture.Set(float64(raw))

	s.draw(0, p.Name)
	s.draw(1, fmt.Sprintf("%4d %s", raw, status))

	logger.Infof("[%v] temp [%v] hum [%v] soil [%v] -> %v",
		p.Name, tempC.Float64(), humidity.Float64(), raw, status)

	if s.testMode {
		return true
	}

	if !s.cloud.Connect() {
		s.draw(1, "Connection failed")
		return true
	}

	code, err := s.cloud.Post(p, tempC.Float64(), raw, humidity.Float64(), status)
	if err != nil {
		logger.Errorf("Failed to POST data [%v]", err)
		Prom_cloudPostFailures.Inc()
		return true
	}
	if code != http.StatusOK {
		logger.Errorf("Failed to POST data HTTP [%v]", code)
		Prom_cloudPostFailures.Inc()
		return true
	}
	Prom_cloudPosts.Inc()
	if s.act != nil {
		s.act.Flash()
	}

	if s.db != nil {
		err := s.db.WriteReading(context.Background(), postgres.WriteReadingParams{
			Profile:     p.Name,
			Temperature: tempC.Float64(),
			Humidity:    humidity.Float64(),
			SoilRaw:     raw,
			Status:      status,
		})
		if err != nil {
			logger.Errorf("Failed to write reading to db [%v]", err)
		}
	}
	if s.pub != nil {
		err := s.pub.Publish(pub.Reading{
			Profile:     p.Name,
			Temperature: tempC.Float64(),
			Humidity:    humidity.Float64(),
			SoilRaw:     raw,
			Status:      status,
			Time:        s.clock.Now(),
		})
		if err != nil {
			logger.Errorf("Failed to publish reading [%v]", err)
		}
	}
	return true
}

func (s *station) calibrationTick() {
	raw, err := s.soil.ReadRaw()
	if err != nil {
		logger.Errorf("Soil read failed [%v]", err)
		return
	}
	s.draw(0, "Calibration")
	s.draw(1, fmt.Sprintf("raw: %d", raw))
	logger.Infof("Calibration soil raw [%v]", raw)
}

// draw pads text to the full row width and skips the write when the row
// already shows it.
func (s *station) draw(row int, text string) {
	if len(text) < env.LcdCols {
		text = fmt.Sprintf("%-*s", env.LcdCols, text)
	}
	if s.drawn[row] == text {
		return
	}
	if err := s.lcd.WriteAt(row, 0, text); err != nil {
		logger.Errorf("Display write failed [%v]", err)
		return
	}
	s.drawn[row] = text
}
