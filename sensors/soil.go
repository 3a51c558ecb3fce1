package sensors

import (
	"math"

	"github.com/gr-butler/plantmon/buffer"
	"github.com/gr-butler/plantmon/env"
	logger "github.com/sirupsen/logrus"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// Soil reads the capacitive moisture probe through an ADS1115 ADC. Higher
// raw counts mean drier soil.
type Soil struct {
	probe   *ads1x15.PinADC
	samples *buffer.SampleBuffer
}

func NewSoil(bus i2c.Bus) *Soil {
	s := &Soil{}

	logger.Infof("Starting soil probe ADC I2C [%x]", ads1x15.DefaultOpts.I2cAddress)
	// Create a new ADS1115 ADC.
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		logger.Error(err)
		return nil
	}

	// Obtain an analog pin from the ADC.
	probe, err := adc.PinForChannel(ads1x15.Channel0, 5*physic.Volt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		logger.Error(err)
		return nil
	}
	s.probe = &probe

	s.samples = buffer.NewBuffer(env.SoilSampleBurst)
	return s
}

// ReadRaw samples the probe over a short burst and returns the averaged
// raw count.
func (s *Soil) ReadRaw() (int, error) {
	for i := 0; i < env.SoilSampleBurst; i++ {
		sample, err := (*s.probe).Read()
		if err != nil {
			return 0, err
		}
		s.samples.AddItem(float64(sample.Raw))
	}
	avg, _, _, _ := s.samples.GetAverageMinMaxSum()
	return int(math.Round(float64(avg))), nil
}
