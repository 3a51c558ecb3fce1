package sensors

import (
	"errors"
	"math"

	"github.com/gr-butler/plantmon/env"
	logger "github.com/sirupsen/logrus"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

type TemperatureC float64
type RelHumidity float64

func (t TemperatureC) Float64() float64 {
	return float64(t)
}

func (r RelHumidity) Float64() float64 {
	return float64(r)
}

// ErrInvalidReading is returned when the sensor answers but the values are
// corrupt. The caller skips the cycle, it must never crash on this.
var ErrInvalidReading = errors.New("climate: invalid reading")

type Climate struct {
	dev *bmxx80.Dev // BME280 temperature & humidity
}

func NewClimate(bus i2c.Bus) *Climate {
	logger.Infof("Starting BME280 reader [%x]", env.Bme280I2C)
	bme, err := bmxx80.NewI2C(bus, env.Bme280I2C, &bmxx80.DefaultOpts)
	if err != nil {
		logger.Errorf("failed to initialize bme280: %v", err)
		return nil
	}
	return &Climate{dev: bme}
}

// Read returns the current temperature and relative humidity.
func (c *Climate) Read() (TemperatureC, RelHumidity, error) {
	em := physic.Env{}
	if err := c.dev.Sense(&em); err != nil {
		return 0, 0, err
	}

	temp := em.Temperature.Celsius()
	humidity := float64(em.Humidity) / float64(physic.PercentRH)
	if math.IsNaN(temp) || math.IsNaN(humidity) {
		return 0, 0, ErrInvalidReading
	}

	return TemperatureC(temp), RelHumidity(math.Round(humidity)), nil
}
