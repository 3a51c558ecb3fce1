package led

import (
	"time"

	"github.com/gr-butler/plantmon/env"
	logger "github.com/sirupsen/logrus"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// LED is the activity light. A missing pin is not critical: every method
// degrades to a no-op so the control loop never cares.
type LED struct {
	Name    string
	gpioPin gpio.PinIO
}

func NewLED(name string, pinName string) *LED {
	logger.Infof("Creating new LED on pin [%v] called [%v]", pinName, name)
	l := &LED{Name: name}
	l.gpioPin = gpioreg.ByName(pinName)
	if l.gpioPin == nil {
		logger.Errorf("Failed to find %v pin", pinName)
		return l
	}

	// flicker to show it's working
	_ = l.gpioPin.Out(gpio.Low)
	l.Flicker(3)

	return l
}

func (l *LED) On() {
	if l.gpioPin == nil {
		return
	}
	_ = l.gpioPin.Out(gpio.High)
}

func (l *LED) Off() {
	if l.gpioPin == nil {
		return
	}
	_ = l.gpioPin.Out(gpio.Low)
}

func (l *LED) Flash() {
	if l.gpioPin == nil {
		return
	}
	_ = l.gpioPin.Out(gpio.High)
	time.Sleep(env.LEDFlashDuration)
	_ = l.gpioPin.Out(gpio.Low)
}

func (l *LED) Flicker(pulses int) {
	if l.gpioPin == nil {
		return
	}
	if pulses < 1 || pulses > 100 {
		// reject daft or excessive requests
		return
	}
	for i := 0; i < pulses; i++ {
		_ = l.gpioPin.Out(gpio.High)
		time.Sleep(env.LEDFlashDuration)
		_ = l.gpioPin.Out(gpio.Low)
		time.Sleep(env.LEDFlashDuration)
	}
}
